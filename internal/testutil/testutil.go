// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"schedule-bot/internal/storage"
	"schedule-bot/pkg/logx"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns c.Now as a plain func for options that take one.
func (c *Clock) NowFunc() func() time.Time { return c.Now }

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// NewStore opens an in-memory store driven by clock and closes it with the
// test.
func NewStore(t testing.TB, clock *Clock) *storage.Store {
	t.Helper()
	s, err := storage.OpenInMemory(context.Background(), logx.Nop(), storage.WithClock(clock.NowFunc()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
