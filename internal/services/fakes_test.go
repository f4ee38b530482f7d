package services

import (
	"context"
	"errors"
	"sync"

	"github.com/farmtrack/apiserver/internal/store"
	"github.com/farmtrack/apiserver/types"
)

type memoryUserRepo struct {
	mu         sync.Mutex
	users      map[int]types.User
	nextID     int
	nextOperID int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[int]types.User{}, nextID: 1, nextOperID: 100}
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memoryUserRepo) Create(_ context.Context, user types.User, operator *types.Operator) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	if operator != nil {
		id := r.nextOperID
		r.nextOperID++
		user.OperatorID = &id
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) UpdatePasswordHash(_ context.Context, id int, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = hash
	r.users[id] = user
	return nil
}

func (r *memoryUserRepo) UpdateUsername(_ context.Context, id int, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Username = username
	r.users[id] = user
	return nil
}

type memoryTaskRepo struct {
	mu     sync.Mutex
	tasks  map[int]types.Task
	nextID int
}

func newMemoryTaskRepo(tasks ...types.Task) *memoryTaskRepo {
	repo := &memoryTaskRepo{tasks: map[int]types.Task{}, nextID: 1}
	for _, task := range tasks {
		repo.tasks[task.ID] = task
		if task.ID >= repo.nextID {
			repo.nextID = task.ID + 1
		}
	}
	return repo
}

func (r *memoryTaskRepo) List(_ context.Context) ([]types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Task, 0, len(r.tasks))
	for id := 1; id < r.nextID; id++ {
		if task, ok := r.tasks[id]; ok {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *memoryTaskRepo) ListByOperator(ctx context.Context, operatorID int) ([]types.Task, error) {
	all, _ := r.List(ctx)
	out := make([]types.Task, 0)
	for _, task := range all {
		if task.OperatorID == operatorID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *memoryTaskRepo) Get(_ context.Context, id int) (types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return types.Task{}, store.ErrNotFound
	}
	return task, nil
}

func (r *memoryTaskRepo) Create(_ context.Context, task types.Task) (types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = r.nextID
	r.nextID++
	r.tasks[task.ID] = task
	return task, nil
}

func (r *memoryTaskRepo) UpdateStatus(_ context.Context, id int, status string) (types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return types.Task{}, store.ErrNotFound
	}
	task.Status = status
	r.tasks[id] = task
	return task, nil
}

func (r *memoryTaskRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

type publishedMessage struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type recordingPublisher struct {
	messages []publishedMessage
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, publishedMessage{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

var errBrokerDown = errors.New("broker down")

func testUser(email, role string) types.User {
	return types.User{Email: email, Username: email, Role: role, PasswordHash: "x"}
}
