package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/logicflow/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// tickClock advances one millisecond per reading so every write gets a distinct time.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTickClock() *tickClock {
	return &tickClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type mockPurger struct{ mock.Mock }

func (m *mockPurger) EnqueueVersionPurge(ctx context.Context, userID, projectID string) error {
	args := m.Called(userID, projectID)
	return args.Error(0)
}
