package commands

import (
	"context"
	"errors"
	"sync"

	"schedule-bot/internal/apperr"
	"schedule-bot/internal/music/media"
	"schedule-bot/internal/music/player"
)

type fakeTransport struct {
	mu       sync.Mutex
	ch       player.Channel
	current  *player.PlayRequest
	paused   bool
	active   int
	released int
	closed   bool
	events   chan player.Event
}

func (f *fakeTransport) Channel() player.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch
}

func (f *fakeTransport) Move(_ context.Context, ch player.Channel) error {
	f.mu.Lock()
	f.ch = ch
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Play(_ context.Context, req player.PlayRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = &req
	f.paused = false
	f.active++
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
	f.active--
	f.released++
	return true
}

func (f *fakeTransport) SetVolume(float64) {}

func (f *fakeTransport) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeTransport) Events() <-chan player.Event { return f.events }

type fakeConnector struct {
	mu         sync.Mutex
	transports []*fakeTransport
	err        error
}

func (c *fakeConnector) Connect(_ context.Context, _ string, ch player.Channel) (player.Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	t := &fakeTransport{ch: ch, events: make(chan player.Event, 8)}
	c.transports = append(c.transports, t)
	return t, nil
}

type fakeResolver struct {
	byURL  map[string]media.Track
	search map[string][]media.Track
}

func (r *fakeResolver) ResolveByURL(_ context.Context, url string, _ bool) (media.Track, error) {
	if t, ok := r.byURL[url]; ok {
		return t, nil
	}
	return media.Track{}, &apperr.ResolutionError{Input: url, Err: errors.New("video unavailable")}
}

func (r *fakeResolver) Search(_ context.Context, term string) []media.Track {
	return r.search[term]
}

type memVolumes struct {
	mu sync.Mutex
	m  map[string]float64
}

func (v *memVolumes) Load(guildID string) (float64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	x, ok := v.m[guildID]
	return x, ok
}

func (v *memVolumes) Save(guildID string, x float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.m == nil {
		v.m = map[string]float64{}
	}
	v.m[guildID] = x
	return nil
}
