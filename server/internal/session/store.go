package session

import (
	"context"

	"case-coach/server/internal/model"
)

// Store 以会话 ID 为键的会话注册表。
type Store interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	// With 在独占该会话的前提下执行 fn；不同会话互不阻塞。
	With(ctx context.Context, id string, fn func(*model.Session) error) error
}
