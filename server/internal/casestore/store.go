package casestore

import (
	"context"

	"case-coach/server/internal/model"
)

// Store 以案例 ID 为键的案例存储。实现需保证按键独立的一致性。
type Store interface {
	Get(ctx context.Context, caseID string) (*model.Case, error)
	Put(ctx context.Context, caseID string, c *model.Case) error
	StageContext(ctx context.Context, caseID, stageID string) (*model.StageContext, error)
}
