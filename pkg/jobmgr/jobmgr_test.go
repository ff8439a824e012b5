package jobmgr

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) report(s string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, s)
	r.mu.Unlock()
}

func (r *recorder) has(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func TestStartAsyncRejectsDuplicate(t *testing.T) {
	m := NewManager(context.Background(), nil)
	started := make(chan struct{})
	if err := m.StartAsync("loop", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}); err != nil {
		t.Fatal(err)
	}
	<-started

	if err := m.StartAsync("loop", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if got := m.Status(); got != "Running jobs: loop" {
		t.Fatalf("Status() = %q", got)
	}
	if err := m.Stop("loop"); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop("loop"); err == nil {
		t.Fatal("second stop should fail")
	}
}

func TestStopAllAndWait(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), rec.report)

	for _, name := range []string{"a", "b", "c"} {
		if err := m.StartAsync(name, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}); err != nil {
			t.Fatal(err)
		}
	}
	m.StopAll()
	m.Wait()

	if len(m.List()) != 0 {
		t.Fatalf("jobs left: %v", m.List())
	}
	if rec.has("error:") {
		t.Fatalf("cancellation must not be reported as error: %v", rec.msgs)
	}
	if !rec.has("done:a") {
		t.Fatalf("missing done report: %v", rec.msgs)
	}
}

func TestParentCancellationStopsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(ctx, nil)
	_ = m.StartAsync("x", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	cancel()
	m.Wait()
	if m.Status() != "No jobs are running." {
		t.Fatalf("Status() = %q", m.Status())
	}
}

func TestErrorIsReported(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), rec.report)
	_ = m.StartAsync("bad", func(context.Context) error { return errors.New("boom") })
	m.Wait()
	if !rec.has("error:bad:boom") {
		t.Fatalf("reports = %v", rec.msgs)
	}
}

func TestStartSyncReturnsResult(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), rec.report)

	if err := m.StartSync("once", func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if err := m.StartSync("fail", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("StartSync = %v", err)
	}
	if !rec.has("running:once") || !rec.has("done:once") || !rec.has("error:fail:boom") {
		t.Fatalf("reports = %v", rec.msgs)
	}
	if len(m.List()) != 0 {
		t.Fatalf("sync jobs are not tracked: %v", m.List())
	}
}
