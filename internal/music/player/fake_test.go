package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeTransport struct {
	mu           sync.Mutex
	ch           Channel
	current      *PlayRequest
	paused       bool
	active       int
	overlapped   bool
	plays        []PlayRequest
	volume       float64
	stops        int
	moves        int
	disconnected bool
	playErr      error
	events       chan Event
}

func newFakeTransport(ch Channel) *fakeTransport {
	return &fakeTransport{ch: ch, events: make(chan Event, 64)}
}

func (f *fakeTransport) Channel() Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch
}

func (f *fakeTransport) Move(_ context.Context, ch Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch = ch
	f.moves++
	return nil
}

func (f *fakeTransport) Play(_ context.Context, req PlayRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.active++
	if f.active > 1 {
		f.overlapped = true
	}
	r := req
	f.current = &r
	f.paused = false
	f.volume = req.Volume
	f.plays = append(f.plays, req)
	return nil
}

func (f *fakeTransport) Pause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil || f.paused {
		return false
	}
	f.paused = true
	return true
}

func (f *fakeTransport) Resume() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil || !f.paused {
		return false
	}
	f.paused = false
	return true
}

func (f *fakeTransport) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return false
	}
	f.current = nil
	f.paused = false
	f.active--
	f.stops++
	return true
}

func (f *fakeTransport) SetVolume(v float64) {
	f.mu.Lock()
	f.volume = v
	f.mu.Unlock()
}

func (f *fakeTransport) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.disconnected {
		f.disconnected = true
		close(f.events)
	}
	return nil
}

func (f *fakeTransport) Events() <-chan Event { return f.events }

// finish simulates the decoder reaching the end of the current track.
func (f *fakeTransport) finish() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return 0
	}
	id := f.current.ID
	f.current = nil
	f.active--
	f.events <- Event{PlayID: id}
	return id
}

type fakeConnector struct {
	mu         sync.Mutex
	transports []*fakeTransport
	err        error
}

func (c *fakeConnector) Connect(_ context.Context, _ string, ch Channel) (Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	t := newFakeTransport(ch)
	c.transports = append(c.transports, t)
	return t, nil
}

func (c *fakeConnector) last() *fakeTransport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transports[len(c.transports)-1]
}

type memVolumes struct {
	mu   sync.Mutex
	vals map[string]float64
	err  error
}

func (m *memVolumes) Load(g string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[g]
	return v, ok
}

func (m *memVolumes) Save(g string, v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.vals == nil {
		m.vals = map[string]float64{}
	}
	m.vals[g] = v
	return nil
}

var errDenied = errors.New("missing permissions")

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
