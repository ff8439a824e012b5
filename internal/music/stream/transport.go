// Package stream plays decoded PCM into a voice connection as opus frames.
// Each play runs one goroutine that reads 20ms frames from the decoder,
// applies the live volume, encodes and hands the packet to the voice link.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"schedule-bot/internal/music/player"
	"schedule-bot/pkg/logx"
)

const (
	maxOpusPacket = FrameSize * Channels * 2
	sendTimeout   = 2 * time.Second
	eventBuffer   = 16
)

// Link is the voice connection the transport drives.
type Link interface {
	Speaking(on bool) error
	ChangeChannel(channelID string, mute, deaf bool) error
	Disconnect() error
}

// Encoder turns one PCM frame into an opus packet.
type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// Config wires a transport to a voice connection.
type Config struct {
	Link       Link
	Opus       chan<- []byte
	Open       Opener
	NewEncoder func() (Encoder, error)
	Channel    player.Channel
	Logger     logx.Logger
}

// Transport implements player.Transport for one voice connection.
type Transport struct {
	link       Link
	opus       chan<- []byte
	open       Opener
	newEncoder func() (Encoder, error)
	log        logx.Logger

	mu      sync.Mutex
	channel player.Channel
	cur     *playback
	closed  bool

	wg     sync.WaitGroup
	events chan player.Event
}

var _ player.Transport = (*Transport)(nil)

func New(cfg Config) (*Transport, error) {
	if cfg.Link == nil || cfg.Opus == nil || cfg.Open == nil || cfg.NewEncoder == nil {
		return nil, errors.New("stream: link, opus channel, opener and encoder are required")
	}
	return &Transport{
		link:       cfg.Link,
		opus:       cfg.Opus,
		open:       cfg.Open,
		newEncoder: cfg.NewEncoder,
		channel:    cfg.Channel,
		log:        cfg.Logger.With(logx.String("component", "stream")),
		events:     make(chan player.Event, eventBuffer),
	}, nil
}

type playback struct {
	id     uint64
	source string
	volume atomic.Uint64
	paused atomic.Bool
	wake   chan struct{}
	stop   chan struct{}
	halt   func()
	once   sync.Once
}

func (p *playback) setVolume(v float64) { p.volume.Store(math.Float64bits(v)) }
func (p *playback) vol() float64         { return math.Float64frombits(p.volume.Load()) }

// end stops the goroutine and the decoder; it never blocks.
func (p *playback) end() {
	p.once.Do(func() {
		close(p.stop)
		if p.halt != nil {
			p.halt()
		}
	})
}

func (t *Transport) Channel() player.Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channel
}

func (t *Transport) Move(ctx context.Context, ch player.Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("transport closed")
	}
	if err := t.link.ChangeChannel(ch.ID, false, true); err != nil {
		return fmt.Errorf("change channel: %w", err)
	}
	t.channel = ch
	return nil
}

// Play starts the decoder and returns; completion arrives on Events.
func (t *Transport) Play(ctx context.Context, req player.PlayRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	source := req.Track.SourceURL
	if source == "" {
		return errors.New("track has no source")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("transport closed")
	}
	if t.cur != nil {
		t.cur.end()
		t.cur = nil
	}

	enc, err := t.newEncoder()
	if err != nil {
		return fmt.Errorf("opus encoder: %w", err)
	}
	pcm, halt, err := t.open(source)
	if err != nil {
		return err
	}

	pb := &playback{
		id:     req.ID,
		source: source,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		halt:   halt,
	}
	pb.setVolume(req.Volume)
	t.cur = pb

	t.wg.Add(1)
	go t.run(pb, pcm, enc)
	return nil
}

func (t *Transport) Pause() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil || t.cur.paused.Load() {
		return false
	}
	t.cur.paused.Store(true)
	return true
}

func (t *Transport) Resume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil || !t.cur.paused.Load() {
		return false
	}
	t.cur.paused.Store(false)
	select {
	case t.cur.wake <- struct{}{}:
	default:
	}
	return true
}

// Stop ends the current play without reporting an event.
func (t *Transport) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil {
		return false
	}
	t.cur.end()
	t.cur = nil
	return true
}

func (t *Transport) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur != nil {
		t.cur.setVolume(v)
	}
}

// Disconnect stops playback, waits for the stream goroutine and leaves the
// channel. Events is closed afterwards.
func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.cur != nil {
		t.cur.end()
		t.cur = nil
	}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		close(t.events)
	case <-ctx.Done():
		// the stream goroutine still owns events; close it once it exits
		go func() {
			<-done
			close(t.events)
		}()
	}
	return t.link.Disconnect()
}

func (t *Transport) Events() <-chan player.Event { return t.events }

func (t *Transport) run(pb *playback, pcm io.ReadCloser, enc Encoder) {
	defer t.wg.Done()
	defer pcm.Close()
	defer pb.end()

	log := t.log.With(logx.Uint64("play_id", pb.id))
	err := t.stream(pb, pcm, enc)

	select {
	case <-pb.stop:
		log.Debug("stream stopped")
		return
	default:
	}

	t.mu.Lock()
	if t.cur == pb {
		t.cur = nil
	}
	t.mu.Unlock()

	if err != nil {
		log.Warn("stream failed", logx.String("source", pb.source), logx.Err(err))
	} else {
		log.Debug("stream finished")
	}
	t.emit(player.Event{PlayID: pb.id, Err: err})
}

func (t *Transport) stream(pb *playback, pcm io.Reader, enc Encoder) error {
	_ = t.link.Speaking(true)
	defer func() { _ = t.link.Speaking(false) }()

	buf := make([]byte, frameBytes)
	samples := make([]int16, FrameSize*Channels)
	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	for {
		select {
		case <-pb.stop:
			return nil
		default:
		}

		n, err := io.ReadFull(pcm, buf)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// pad the tail frame with silence
			clear(buf[n:])
		} else if err != nil {
			return fmt.Errorf("read pcm: %w", err)
		}

		// a frame read before a pause is held until resume
		for pb.paused.Load() {
			_ = t.link.Speaking(false)
			select {
			case <-pb.stop:
				return nil
			case <-pb.wake:
			}
			_ = t.link.Speaking(true)
		}

		decodeFrame(samples, buf)
		scaleVolume(samples, pb.vol())
		packet, encErr := enc.Encode(samples, FrameSize, maxOpusPacket)
		if encErr != nil {
			return fmt.Errorf("encode opus: %w", encErr)
		}

		timer.Reset(sendTimeout)
		select {
		case t.opus <- packet:
		case <-pb.stop:
			return nil
		case <-timer.C:
			return errors.New("voice connection is not accepting audio")
		}

		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
	}
}

func (t *Transport) emit(ev player.Event) {
	select {
	case t.events <- ev:
	default:
		t.log.Warn("playback event dropped", logx.Uint64("play_id", ev.PlayID))
	}
}
