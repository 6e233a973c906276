package task

import (
	"context"
	"errors"
	"sort"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// fakeTaskStore keeps tasks and their logs together so the
// transactional operations can mutate both in one step.
type fakeTaskStore struct {
	tasks  map[int]*model.Task
	logs   *fakeLogStore
	nextID int

	failUpdateStatus bool
}

func newFakeTaskStore(logs *fakeLogStore) *fakeTaskStore {
	return &fakeTaskStore{tasks: map[int]*model.Task{}, logs: logs, nextID: 1}
}

func (f *fakeTaskStore) GetByID(_ context.Context, id int) (*model.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskStore) List(_ context.Context, filter repository.TaskFilter) ([]model.Task, error) {
	out := []model.Task{}
	for _, t := range f.tasks {
		if filter.AssigneeID != nil && t.AssignedTo != *filter.AssigneeID {
			continue
		}
		if filter.CreatorID != nil && t.CreatedBy != *filter.CreatorID {
			continue
		}
		if filter.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *filter.ProjectID) {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.OwnedBy != nil && t.AssignedTo != *filter.OwnedBy && t.CreatedBy != *filter.OwnedBy {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeTaskStore) Insert(_ context.Context, t *model.Task) (int, error) {
	t.ID = f.nextID
	f.nextID++
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	f.tasks[t.ID] = &cp
	return t.ID, nil
}

func (f *fakeTaskStore) Update(_ context.Context, t *model.Task) error {
	if _, ok := f.tasks[t.ID]; !ok {
		return model.ErrNotFound
	}
	cp := *t
	cp.UpdatedAt = time.Now()
	f.tasks[t.ID] = &cp
	return nil
}

func (f *fakeTaskStore) UpdateStatusWithLog(ctx context.Context, taskID int, oldStatus, newStatus string, changedBy int) error {
	if f.failUpdateStatus {
		return errors.New("tx failed")
	}
	t, ok := f.tasks[taskID]
	if !ok {
		return model.ErrNotFound
	}
	t.Status = newStatus
	old := oldStatus
	return f.logs.Insert(ctx, &model.TaskLog{
		TaskID:    taskID,
		OldStatus: &old,
		NewStatus: newStatus,
		ChangedBy: changedBy,
	})
}

func (f *fakeTaskStore) DeleteWithLogs(_ context.Context, taskID int) error {
	if _, ok := f.tasks[taskID]; !ok {
		return model.ErrNotFound
	}
	delete(f.tasks, taskID)
	kept := f.logs.entries[:0]
	for _, l := range f.logs.entries {
		if l.TaskID != taskID {
			kept = append(kept, l)
		}
	}
	f.logs.entries = kept
	return nil
}

func (f *fakeTaskStore) StatusCounts(_ context.Context, assigneeID int) (map[string]int, error) {
	counts := map[string]int{}
	for _, t := range f.tasks {
		if t.AssignedTo == assigneeID {
			counts[t.Status]++
		}
	}
	return counts, nil
}

type fakeLogStore struct {
	entries []model.TaskLog
	nextID  int

	failInsert bool
}

func (f *fakeLogStore) Insert(_ context.Context, l *model.TaskLog) error {
	if f.failInsert {
		return errors.New("log insert failed")
	}
	f.nextID++
	l.ID = f.nextID
	l.ChangedAt = time.Now()
	f.entries = append(f.entries, *l)
	return nil
}

func (f *fakeLogStore) ListByTask(_ context.Context, taskID int) ([]model.TaskLog, error) {
	out := []model.TaskLog{}
	for _, l := range f.entries {
		if l.TaskID == taskID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLogStore) forTask(taskID int) []model.TaskLog {
	out, _ := f.ListByTask(context.Background(), taskID)
	return out
}

type fakeUserStore struct {
	users map[int]*model.User
}

func (f *fakeUserStore) GetByID(_ context.Context, id int) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeProjectStore struct {
	projects map[int]*model.Project
}

func (f *fakeProjectStore) GetByID(_ context.Context, id int) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
