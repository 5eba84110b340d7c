package session

import (
	"context"
	"sync"
	"testing"

	"case-coach/server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWithSerializesSameSession 验证同一会话上的并发修改被串行化。
func TestWithSerializesSameSession(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Save(ctx, model.NewSession("s1", "c1", model.CaseParams{})))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.With(ctx, "s1", func(s *model.Session) error {
				s.UtterancesThisStage++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 50, got.UtterancesThisStage)
}

// TestMissingSession 验证未知会话返回 ErrNotFound。
func TestMissingSession(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.With(context.Background(), "nope", func(*model.Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestWithHonoursCancelledContext 验证已取消的 context 不会执行 fn。
func TestWithHonoursCancelledContext(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Save(context.Background(), model.NewSession("s1", "c1", model.CaseParams{})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.With(ctx, "s1", func(*model.Session) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSaveRequiresID(t *testing.T) {
	store := NewInMemoryStore()
	assert.Error(t, store.Save(context.Background(), &model.Session{}))
}
