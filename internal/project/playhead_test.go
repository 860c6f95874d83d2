package project

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"
)

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { close(m.stopped) }

func testPlayhead(s *Session) (*Playhead, *manualTicker) {
	mt := newManualTicker()
	p := NewPlayhead(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.newTicker = func(d time.Duration) Ticker {
		if d != PlayheadInterval {
			panic("unexpected interval")
		}
		return mt
	}
	return p, mt
}

func TestPlayhead_AdvancesByStep(t *testing.T) {
	s := NewSession("SELECT")
	p, mt := testPlayhead(s)

	p.Play(context.Background())
	if !s.IsPlaying() {
		t.Fatal("session should be playing")
	}

	for i := 1; i <= 5; i++ {
		mt.ch <- time.Now()
	}
	p.Pause()

	if got := s.CurrentTime(); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("CurrentTime = %v, want 0.5", got)
	}
	if s.IsPlaying() || p.IsPlaying() {
		t.Fatal("playhead should be paused")
	}
}

func TestPlayhead_RewindsAtCeiling(t *testing.T) {
	s := NewSession("SELECT")
	s.Seek(PlayheadCeiling - PlayheadStep/2)
	p, mt := testPlayhead(s)

	p.Play(context.Background())
	mt.ch <- time.Now() // crosses the ceiling
	mt.ch <- time.Now() // observes it and rewinds

	p.Wait()
	if got := s.CurrentTime(); got != 0 {
		t.Fatalf("CurrentTime = %v, want 0", got)
	}
	if s.IsPlaying() || p.IsPlaying() {
		t.Fatal("playback should stop at the ceiling")
	}
	select {
	case <-mt.stopped:
	case <-time.After(time.Second):
		t.Fatal("ticker not stopped")
	}
}

func TestPlayhead_ContextCancelStops(t *testing.T) {
	s := NewSession("SELECT")
	p, mt := testPlayhead(s)

	ctx, cancel := context.WithCancel(context.Background())
	p.Play(ctx)
	cancel()

	select {
	case <-mt.stopped:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit on cancel")
	}
	p.Pause()
	if s.IsPlaying() {
		t.Fatal("session still playing")
	}
}

func TestPlayhead_Toggle(t *testing.T) {
	s := NewSession("SELECT")
	p, _ := testPlayhead(s)

	if !p.Toggle(context.Background()) {
		t.Fatal("first toggle should start playback")
	}
	if p.Toggle(context.Background()) {
		t.Fatal("second toggle should pause")
	}
}
