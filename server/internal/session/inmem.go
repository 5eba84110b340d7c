package session

import (
	"context"
	"errors"
	"sync"

	"case-coach/server/internal/model"
)

var ErrNotFound = errors.New("session not found")

type entry struct {
	mu      sync.Mutex
	session *model.Session
}

// InMemoryStore 是一个基于内存的会话注册表。
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*entry
}

func NewInMemoryStore() *InMemoryStore {
	// 注意：重启即丢数据；多实例部署需要替换实现。
	return &InMemoryStore{data: make(map[string]*entry)}
}

// Get 根据 ID 获取会话。返回的指针只应在 With 内修改。
func (s *InMemoryStore) Get(_ context.Context, id string) (*model.Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, nil
}

// Save 保存或替换会话。
func (s *InMemoryStore) Save(_ context.Context, sess *model.Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.data[sess.ID]; ok {
		e.mu.Lock()
		e.session = sess
		e.mu.Unlock()
		return nil
	}
	s.data[sess.ID] = &entry{session: sess}
	return nil
}

// With 串行化同一会话上的操作。
func (s *InMemoryStore) With(ctx context.Context, id string, fn func(*model.Session) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

func (s *InMemoryStore) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}
