package project

import (
	"context"
	"sort"

	"taskhub/internal/model"
)

type fakeProjectStore struct {
	projects   map[int]*model.Project
	taskCounts map[int]int
	nextID     int
}

func newFakeProjectStore() *fakeProjectStore {
	return &fakeProjectStore{
		projects:   map[int]*model.Project{},
		taskCounts: map[int]int{},
		nextID:     1,
	}
}

func (f *fakeProjectStore) GetByID(_ context.Context, id int) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *p
	cp.TaskCount = f.taskCounts[id]
	return &cp, nil
}

func (f *fakeProjectStore) List(_ context.Context) ([]model.Project, error) {
	out := []model.Project{}
	for id, p := range f.projects {
		cp := *p
		cp.TaskCount = f.taskCounts[id]
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeProjectStore) ListByCreator(_ context.Context, creatorID int) ([]model.Project, error) {
	out := []model.Project{}
	for id, p := range f.projects {
		if p.CreatedBy == creatorID {
			cp := *p
			cp.TaskCount = f.taskCounts[id]
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeProjectStore) Insert(_ context.Context, p *model.Project) (int, error) {
	id := f.nextID
	f.nextID++
	cp := *p
	cp.ID = id
	f.projects[id] = &cp
	return id, nil
}

func (f *fakeProjectStore) Update(_ context.Context, p *model.Project) error {
	if _, ok := f.projects[p.ID]; !ok {
		return model.ErrNotFound
	}
	cp := *p
	f.projects[p.ID] = &cp
	return nil
}

func (f *fakeProjectStore) Delete(_ context.Context, id int) error {
	if _, ok := f.projects[id]; !ok {
		return model.ErrNotFound
	}
	if f.taskCounts[id] > 0 {
		return model.ErrProjectHasTasks
	}
	delete(f.projects, id)
	return nil
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
