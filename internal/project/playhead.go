package project

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	PlayheadStep     = 0.1
	PlayheadInterval = 100 * time.Millisecond
	PlayheadCeiling  = Duration
)

// Ticker abstracts time.Ticker so tests can drive the playhead by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Playhead advances the session clock while playing.
type Playhead struct {
	session   *Session
	logger    *slog.Logger
	newTicker func(time.Duration) Ticker

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPlayhead(session *Session, logger *slog.Logger) *Playhead {
	return &Playhead{
		session: session,
		logger:  logger,
		newTicker: func(d time.Duration) Ticker {
			return realTicker{time.NewTicker(d)}
		},
	}
}

// Play starts the ticker loop. It is bound to ctx and stops when ctx ends.
func (p *Playhead) Play(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.session.setPlaying(true)

	ticker := p.newTicker(PlayheadInterval)
	go p.loop(loopCtx, ticker, done)
	p.logger.Debug("playhead started", "at", p.session.CurrentTime())
}

func (p *Playhead) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if p.session.advance(PlayheadStep, PlayheadCeiling) {
				p.logger.Debug("playhead reached ceiling, rewinding")
				p.release()
				return
			}
		}
	}
}

// release clears the running loop after it stopped by itself.
func (p *Playhead) release() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
}

// Pause stops the loop and waits for it to exit.
func (p *Playhead) Pause() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.session.setPlaying(false)
	p.logger.Debug("playhead paused", "at", p.session.CurrentTime())
}

// Toggle flips between playing and paused and returns the new state.
func (p *Playhead) Toggle(ctx context.Context) bool {
	if p.IsPlaying() {
		p.Pause()
		return false
	}
	p.Play(ctx)
	return true
}

func (p *Playhead) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Wait blocks until the current loop, if any, has exited.
func (p *Playhead) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
