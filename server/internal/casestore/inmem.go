package casestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"case-coach/server/internal/model"

	"github.com/go-viper/mapstructure/v2"
)

var (
	ErrNotFound      = errors.New("case not found")
	ErrStageNotFound = errors.New("stage content not found")
)

// InMemoryStore 基于内存的案例存储。
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*model.Case
}

func NewInMemoryStore() *InMemoryStore {
	// 重启即丢数据；案例持久化不在本服务范围内。
	return &InMemoryStore{data: make(map[string]*model.Case)}
}

// Get 返回案例。
func (s *InMemoryStore) Get(_ context.Context, caseID string) (*model.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[caseID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Put 保存或覆盖案例。
func (s *InMemoryStore) Put(_ context.Context, caseID string, c *model.Case) error {
	if c == nil {
		return errors.New("nil case")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = caseID
	s.data[caseID] = c
	return nil
}

// StageContext 返回指定阶段的上下文；阶段内容用 mapstructure 从原始 map 解码。
func (s *InMemoryStore) StageContext(ctx context.Context, caseID, stageID string) (*model.StageContext, error) {
	c, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	raw, ok := c.Stages[stageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrStageNotFound, caseID, stageID)
	}

	content, err := DecodeStageContent(raw)
	if err != nil {
		return nil, fmt.Errorf("decode stage %s: %w", stageID, err)
	}

	return &model.StageContext{
		CaseID:     caseID,
		Background: c.Background,
		StageID:    stageID,
		Stage:      content,
	}, nil
}

// DecodeStageContent 把生成的阶段内容解码为结构体，未知字段保留在 Extra。
func DecodeStageContent(raw map[string]any) (model.StageContent, error) {
	var content model.StageContent
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &content,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return content, err
	}
	if err := dec.Decode(raw); err != nil {
		return content, err
	}
	return content, nil
}
