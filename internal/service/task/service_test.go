package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/model"
)

type fixture struct {
	svc   *Service
	tasks *fakeTaskStore
	logs  *fakeLogStore
}

func newFixture() *fixture {
	logs := &fakeLogStore{}
	tasks := newFakeTaskStore(logs)
	users := &fakeUserStore{users: map[int]*model.User{
		1: {ID: 1, FirstName: "Ada", LastName: "Admin", Email: "ada@example.com", Role: model.RoleAdmin},
		2: {ID: 2, FirstName: "Uma", LastName: "User", Email: "uma@example.com", Role: model.RoleUser},
		3: {ID: 3, FirstName: "Omar", LastName: "Other", Email: "omar@example.com", Role: model.RoleUser},
	}}
	projects := &fakeProjectStore{projects: map[int]*model.Project{
		10: {ID: 10, Name: "Apollo", CreatedBy: 1},
	}}
	svc := NewService(tasks, logs, users, projects, zap.NewNop())
	return &fixture{svc: svc, tasks: tasks, logs: logs}
}

func admin() model.Principal { return model.Principal{UserID: 1, Role: model.RoleAdmin} }
func uma() model.Principal   { return model.Principal{UserID: 2, Role: model.RoleUser} }
func omar() model.Principal  { return model.Principal{UserID: 3, Role: model.RoleUser} }

func validInput(assignee int) Input {
	return Input{
		Title:      "Write release notes",
		DueDate:    time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		AssignedTo: assignee,
	}
}

func mustCreate(t *testing.T, fx *fixture, principal model.Principal, in Input) *model.Task {
	t.Helper()
	task, warn, err := fx.svc.Create(context.Background(), principal, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if warn != "" {
		t.Fatalf("Create warn = %q", warn)
	}
	return task
}

func TestCreate_PendingWithInitialLog(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	task := mustCreate(t, fx, uma(), validInput(2))
	if task.Status != model.StatusPending {
		t.Fatalf("Status = %q, want %q", task.Status, model.StatusPending)
	}
	if task.CreatedBy != 2 {
		t.Fatalf("CreatedBy = %d, want 2", task.CreatedBy)
	}

	logs := fx.logs.forTask(task.ID)
	if len(logs) != 1 {
		t.Fatalf("log count = %d, want 1", len(logs))
	}
	if logs[0].OldStatus != nil {
		t.Fatalf("initial OldStatus = %v, want nil", *logs[0].OldStatus)
	}
	if logs[0].NewStatus != model.StatusPending {
		t.Fatalf("initial NewStatus = %q, want Pending", logs[0].NewStatus)
	}
	if logs[0].ChangedBy != 2 {
		t.Fatalf("initial ChangedBy = %d, want 2", logs[0].ChangedBy)
	}
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name      string
		in        Input
		wantField string
	}{
		{"missing title", Input{DueDate: time.Now(), AssignedTo: 2}, "title"},
		{"short title", Input{Title: "x", DueDate: time.Now(), AssignedTo: 2}, "title"},
		{"long description", Input{Title: "ok title", Description: string(long), DueDate: time.Now(), AssignedTo: 2}, "description"},
		{"missing due date", Input{Title: "ok title", AssignedTo: 2}, "dueDate"},
		{"missing assignee", Input{Title: "ok title", DueDate: time.Now()}, "assignedTo"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := fx.svc.Create(context.Background(), uma(), tc.in)
			fe, ok := model.AsFieldErrors(err)
			if !ok {
				t.Fatalf("expected FieldErrors, got %v", err)
			}
			if _, present := fe[tc.wantField]; !present {
				t.Fatalf("expected error on %q, got %v", tc.wantField, fe)
			}
		})
	}

	if len(fx.tasks.tasks) != 0 || len(fx.logs.entries) != 0 {
		t.Fatal("validation failures must not write")
	}
}

func TestCreate_LogFailureIsWarning(t *testing.T) {
	t.Parallel()
	fx := newFixture()
	fx.logs.failInsert = true

	task, warn, err := fx.svc.Create(context.Background(), uma(), validInput(2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if warn != WarnLogFailed {
		t.Fatalf("warn = %q, want %q", warn, WarnLogFailed)
	}
	if _, ok := fx.tasks.tasks[task.ID]; !ok {
		t.Fatal("task write must survive a log failure")
	}
}

func TestUpdateStatus_SequenceLogsInOrder(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	task := mustCreate(t, fx, uma(), validInput(2))

	for _, next := range []string{model.StatusInProgress, model.StatusCompleted} {
		got, err := fx.svc.UpdateStatus(context.Background(), uma(), task.ID, next)
		if err != nil {
			t.Fatalf("UpdateStatus(%q): %v", next, err)
		}
		if got.Status != next {
			t.Fatalf("Status = %q, want %q", got.Status, next)
		}
	}

	logs, err := fx.svc.Logs(context.Background(), uma(), task.ID)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("log count = %d, want 3", len(logs))
	}

	wantOld := []*string{nil, ptr(model.StatusPending), ptr(model.StatusInProgress)}
	wantNew := []string{model.StatusPending, model.StatusInProgress, model.StatusCompleted}
	for i, l := range logs {
		if (l.OldStatus == nil) != (wantOld[i] == nil) {
			t.Fatalf("log %d OldStatus nil mismatch", i)
		}
		if l.OldStatus != nil && *l.OldStatus != *wantOld[i] {
			t.Fatalf("log %d OldStatus = %q, want %q", i, *l.OldStatus, *wantOld[i])
		}
		if l.NewStatus != wantNew[i] {
			t.Fatalf("log %d NewStatus = %q, want %q", i, l.NewStatus, wantNew[i])
		}
	}
}

func TestUpdateStatus_SameStatusStillLogs(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	task := mustCreate(t, fx, uma(), validInput(2))
	if _, err := fx.svc.UpdateStatus(context.Background(), uma(), task.ID, model.StatusPending); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	logs := fx.logs.forTask(task.ID)
	if len(logs) != 2 {
		t.Fatalf("log count = %d, want 2", len(logs))
	}
	last := logs[1]
	if last.OldStatus == nil || *last.OldStatus != model.StatusPending || last.NewStatus != model.StatusPending {
		t.Fatalf("expected Pending to Pending entry, got %+v", last)
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	task := mustCreate(t, fx, uma(), validInput(2))

	if _, err := fx.svc.UpdateStatus(context.Background(), uma(), task.ID, "Done"); err == nil {
		t.Fatal("expected validation error for unknown status")
	} else if _, ok := model.AsFieldErrors(err); !ok {
		t.Fatalf("expected FieldErrors, got %v", err)
	}

	if _, err := fx.svc.UpdateStatus(context.Background(), uma(), 999, model.StatusCompleted); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("missing task: expected ErrNotFound, got %v", err)
	}

	if _, err := fx.svc.UpdateStatus(context.Background(), omar(), task.ID, model.StatusCompleted); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("unrelated user: expected ErrForbidden, got %v", err)
	}

	fx.tasks.failUpdateStatus = true
	if _, err := fx.svc.UpdateStatus(context.Background(), uma(), task.ID, model.StatusCompleted); err == nil {
		t.Fatal("expected store error to surface")
	}
	if got, _ := fx.tasks.GetByID(context.Background(), task.ID); got.Status != model.StatusPending {
		t.Fatalf("failed transition must leave status untouched, got %q", got.Status)
	}
}

func TestUpdate_LogsOnlyOnStatusChange(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	task := mustCreate(t, fx, uma(), validInput(2))

	in := validInput(2)
	in.Description = "now with details"
	if _, warn, err := fx.svc.Update(context.Background(), uma(), task.ID, in, model.StatusPending); err != nil || warn != "" {
		t.Fatalf("Update same status: warn=%q err=%v", warn, err)
	}
	if n := len(fx.logs.forTask(task.ID)); n != 1 {
		t.Fatalf("unchanged status logged, count = %d", n)
	}

	got, warn, err := fx.svc.Update(context.Background(), uma(), task.ID, in, model.StatusInProgress)
	if err != nil || warn != "" {
		t.Fatalf("Update new status: warn=%q err=%v", warn, err)
	}
	if got.Status != model.StatusInProgress {
		t.Fatalf("Status = %q, want In Progress", got.Status)
	}
	logs := fx.logs.forTask(task.ID)
	if len(logs) != 2 {
		t.Fatalf("log count = %d, want 2", len(logs))
	}
	if logs[1].OldStatus == nil || *logs[1].OldStatus != model.StatusPending {
		t.Fatalf("OldStatus = %v, want Pending", logs[1].OldStatus)
	}
}

func TestUpdate_LogFailureIsWarning(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	task := mustCreate(t, fx, uma(), validInput(2))
	fx.logs.failInsert = true

	got, warn, err := fx.svc.Update(context.Background(), uma(), task.ID, validInput(2), model.StatusCompleted)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if warn != WarnLogFailed {
		t.Fatalf("warn = %q, want %q", warn, WarnLogFailed)
	}
	if got.Status != model.StatusCompleted {
		t.Fatalf("primary write must land despite log failure, Status = %q", got.Status)
	}
}

func TestDelete_AuthzAndCascade(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	// Created by uma, assigned to omar. The assignee may view and move
	// the task but only the creator or an admin may delete it.
	task := mustCreate(t, fx, uma(), validInput(3))
	if _, err := fx.svc.UpdateStatus(context.Background(), omar(), task.ID, model.StatusInProgress); err != nil {
		t.Fatalf("assignee UpdateStatus: %v", err)
	}

	if err := fx.svc.Delete(context.Background(), omar(), task.ID); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("assignee delete: expected ErrForbidden, got %v", err)
	}

	if err := fx.svc.Delete(context.Background(), uma(), task.ID); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if _, err := fx.svc.Get(context.Background(), admin(), task.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if n := len(fx.logs.forTask(task.ID)); n != 0 {
		t.Fatalf("logs must be removed with the task, %d left", n)
	}
}

func TestGet_Visibility(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	pid := 10
	in := validInput(3)
	in.ProjectID = &pid
	task := mustCreate(t, fx, uma(), in)

	for _, p := range []model.Principal{uma(), omar(), admin()} {
		got, err := fx.svc.Get(context.Background(), p, task.ID)
		if err != nil {
			t.Fatalf("Get as user %d: %v", p.UserID, err)
		}
		if got.Assignee == nil || got.Assignee.ID != 3 {
			t.Fatalf("assignee not resolved: %+v", got.Assignee)
		}
		if got.Project == nil || got.Project.Name != "Apollo" {
			t.Fatalf("project not resolved: %+v", got.Project)
		}
	}

	other := mustCreate(t, fx, admin(), validInput(1))
	if _, err := fx.svc.Get(context.Background(), uma(), other.ID); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("unrelated user: expected ErrForbidden, got %v", err)
	}
	if _, err := fx.svc.Logs(context.Background(), uma(), other.ID); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("logs of unrelated task: expected ErrForbidden, got %v", err)
	}
}

func TestList_NonAdminSeesOwnOnly(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	mine := mustCreate(t, fx, uma(), validInput(2))
	assigned := mustCreate(t, fx, admin(), validInput(2))
	foreign := mustCreate(t, fx, admin(), validInput(1))

	got, err := fx.svc.List(context.Background(), uma(), ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ids := map[int]bool{}
	for _, task := range got {
		ids[task.ID] = true
	}
	if !ids[mine.ID] || !ids[assigned.ID] || ids[foreign.ID] {
		t.Fatalf("wrong visibility set: %v", ids)
	}

	all, err := fx.svc.List(context.Background(), admin(), ListFilter{})
	if err != nil {
		t.Fatalf("admin List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("admin sees %d tasks, want 3", len(all))
	}

	status := model.StatusPending
	bad := "Archived"
	if _, err := fx.svc.List(context.Background(), uma(), ListFilter{Status: &bad}); err == nil {
		t.Fatal("expected error for unknown status filter")
	}
	filtered, err := fx.svc.List(context.Background(), uma(), ListFilter{Status: &status})
	if err != nil {
		t.Fatalf("filtered List: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("filtered count = %d, want 2", len(filtered))
	}
}

func TestDashboard_SummaryCounts(t *testing.T) {
	t.Parallel()
	fx := newFixture()

	a := mustCreate(t, fx, uma(), validInput(2))
	b := mustCreate(t, fx, uma(), validInput(2))
	mustCreate(t, fx, uma(), validInput(2))
	mustCreate(t, fx, uma(), validInput(1)) // created by uma, assigned elsewhere

	if _, err := fx.svc.UpdateStatus(context.Background(), uma(), a.ID, model.StatusInProgress); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := fx.svc.UpdateStatus(context.Background(), uma(), b.ID, model.StatusCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	d, err := fx.svc.GetDashboard(context.Background(), uma(), nil, nil)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	want := Summary{Total: 3, Pending: 1, InProgress: 1, Completed: 1}
	if d.Summary != want {
		t.Fatalf("Summary = %+v, want %+v", d.Summary, want)
	}
	if len(d.AssignedTasks) != 3 {
		t.Fatalf("AssignedTasks = %d, want 3", len(d.AssignedTasks))
	}
	if len(d.CreatedTasks) != 4 {
		t.Fatalf("CreatedTasks = %d, want 4", len(d.CreatedTasks))
	}
}

func ptr(s string) *string { return &s }
