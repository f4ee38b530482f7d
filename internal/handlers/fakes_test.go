package handlers

import (
	"context"
	"sync"

	"github.com/farmtrack/apiserver/internal/store"
	"github.com/farmtrack/apiserver/types"
)

type memoryUsers struct {
	mu     sync.Mutex
	byID   map[int]types.User
	nextID int
	nextOp int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[int]types.User{}, nextID: 1, nextOp: 1}
}

func (m *memoryUsers) GetByID(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.byID[id]; ok {
		return user, nil
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryUsers) Create(_ context.Context, user types.User, operator *types.Operator) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if operator != nil {
		id := m.nextOp
		m.nextOp++
		user.OperatorID = &id
	}
	user.ID = m.nextID
	m.nextID++
	m.byID[user.ID] = user
	return user, nil
}

func (m *memoryUsers) UpdatePasswordHash(_ context.Context, id int, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = hash
	m.byID[id] = user
	return nil
}

func (m *memoryUsers) UpdateUsername(_ context.Context, id int, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Username = username
	m.byID[id] = user
	return nil
}

type memoryTasks struct {
	mu     sync.Mutex
	tasks  []types.Task
	nextID int
}

func (m *memoryTasks) List(_ context.Context) ([]types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Task{}, m.tasks...), nil
}

func (m *memoryTasks) ListByOperator(_ context.Context, operatorID int) ([]types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Task{}
	for _, task := range m.tasks {
		if task.OperatorID == operatorID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *memoryTasks) Get(_ context.Context, id int) (types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return types.Task{}, store.ErrNotFound
}

func (m *memoryTasks) Create(_ context.Context, task types.Task) (types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	task.ID = m.nextID
	m.tasks = append(m.tasks, task)
	return task, nil
}

func (m *memoryTasks) UpdateStatus(_ context.Context, id int, status string) (types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks[i].Status = status
			return m.tasks[i], nil
		}
	}
	return types.Task{}, store.ErrNotFound
}

func (m *memoryTasks) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type memoryOperators struct {
	mu        sync.Mutex
	operators []types.Operator
}

func (m *memoryOperators) List(_ context.Context) ([]types.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Operator{}, m.operators...), nil
}

func (m *memoryOperators) Get(_ context.Context, id int) (types.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, operator := range m.operators {
		if operator.ID == id {
			return operator, nil
		}
	}
	return types.Operator{}, store.ErrNotFound
}

func (m *memoryOperators) Create(_ context.Context, operator types.Operator) (types.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	operator.ID = len(m.operators) + 1
	m.operators = append(m.operators, operator)
	return operator, nil
}

func (m *memoryOperators) Update(_ context.Context, operator types.Operator) (types.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.operators {
		if m.operators[i].ID == operator.ID {
			m.operators[i] = operator
			return operator, nil
		}
	}
	return types.Operator{}, store.ErrNotFound
}

func (m *memoryOperators) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.operators {
		if m.operators[i].ID == id {
			m.operators = append(m.operators[:i], m.operators[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}
