// Package bridge tracks the link to the local Munz AI Studio backend
// (a ComfyUI build, localhost:8188 by default). Connecting runs a fixed-delay
// handshake followed by a probe of the backend's /system_stats endpoint.
package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/munzgen/munzgen-agent/internal/logging"
)

type State string

const (
	StateSearching    State = "searching"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

const (
	StartDelay     = 2500 * time.Millisecond
	ReconnectDelay = 2 * time.Second

	// QRSize is the edge length of the pairing code in pixels.
	QRSize = 256
)

type Integration struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Badge  string `json:"badge"`
	Method string `json:"method"`
}

// Integrations lists the desktop tools the bridge can hand assets to.
var Integrations = []Integration{
	{ID: "blender", Name: "Blender", Badge: "B3D", Method: "Via Add-on Port 5500"},
	{ID: "davinci", Name: "DaVinci Resolve", Badge: "DVR", Method: "Via OpenFX Plugin"},
	{ID: "natron", Name: "Natron", Badge: "N", Method: "File Watcher Mode"},
}

// SessionInfo describes the active bridge session while connected.
type SessionInfo struct {
	Pipeline  string   `json:"pipeline"`
	Model     string   `json:"model"`
	Queue     string   `json:"queue"`
	LatencyMS int64    `json:"latency_ms"`
	Devices   []Device `json:"devices,omitempty"`
}

type Status struct {
	State     State        `json:"state"`
	Online    bool         `json:"online"`
	URL       string       `json:"url"`
	Session   *SessionInfo `json:"session,omitempty"`
	LastError string       `json:"last_error,omitempty"`
	CheckedAt time.Time    `json:"checked_at,omitzero"`
}

type Bridge struct {
	url    string
	prober Prober
	logger *slog.Logger

	startDelay     time.Duration
	reconnectDelay time.Duration
	after          func(time.Duration) <-chan time.Time
	now            func() time.Time

	mu       sync.Mutex
	status   Status
	gen      uint64
	cancel   context.CancelFunc
	onChange func(Status)

	wg sync.WaitGroup
}

func New(url string, prober Prober, logger *slog.Logger) *Bridge {
	return &Bridge{
		url:            url,
		prober:         prober,
		logger:         logging.WithComponent(logger, "bridge"),
		startDelay:     StartDelay,
		reconnectDelay: ReconnectDelay,
		after:          time.After,
		now:            time.Now,
		status:         Status{State: StateSearching, URL: url},
	}
}

// OnChange registers fn to receive every state transition.
func (b *Bridge) OnChange(fn func(Status)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Start begins the initial handshake.
func (b *Bridge) Start(ctx context.Context) {
	b.handshake(ctx, b.startDelay)
}

// Connect starts a reconnect handshake. It is a no-op while connected or searching.
func (b *Bridge) Connect(ctx context.Context) Status {
	b.mu.Lock()
	state := b.status.State
	b.mu.Unlock()
	if state != StateDisconnected {
		return b.Status()
	}
	b.handshake(ctx, b.reconnectDelay)
	return b.Status()
}

// Disconnect drops the link and abandons any pending handshake.
func (b *Bridge) Disconnect() Status {
	b.mu.Lock()
	b.gen++
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.status = Status{State: StateDisconnected, URL: b.url, CheckedAt: b.now()}
	st, fn := b.status, b.onChange
	b.mu.Unlock()

	b.logger.Info("bridge disconnected")
	if fn != nil {
		fn(st)
	}
	return st
}

// Toggle mirrors the panel's single connect/disconnect button.
func (b *Bridge) Toggle(ctx context.Context) Status {
	if b.Status().Online {
		return b.Disconnect()
	}
	b.mu.Lock()
	searching := b.status.State == StateSearching
	b.mu.Unlock()
	if searching {
		return b.Disconnect()
	}
	return b.Connect(ctx)
}

// Refresh re-probes a connected backend to update latency and devices.
func (b *Bridge) Refresh(ctx context.Context) Status {
	if !b.Status().Online {
		return b.Status()
	}
	b.mu.Lock()
	gen := b.gen
	b.mu.Unlock()
	b.probe(ctx, gen)
	return b.Status()
}

// Wait blocks until pending handshakes finish.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// QRCode renders the bridge URL as a PNG for pairing a remote device.
func (b *Bridge) QRCode() ([]byte, error) {
	return qrcode.Encode(b.url, qrcode.Medium, QRSize)
}

func (b *Bridge) handshake(ctx context.Context, delay time.Duration) {
	hctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	b.gen++
	gen := b.gen
	if b.cancel != nil {
		b.cancel()
	}
	b.cancel = cancel
	b.status = Status{State: StateSearching, URL: b.url}
	st, fn := b.status, b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(st)
	}
	b.logger.Debug("bridge handshake started", "url", b.url, "delay", delay)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()

		select {
		case <-hctx.Done():
			return
		case <-b.after(delay):
		}
		b.probe(hctx, gen)
	}()
}

func (b *Bridge) probe(ctx context.Context, gen uint64) {
	stats, latency, err := b.prober.Probe(ctx)

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	if err != nil {
		b.status = Status{State: StateDisconnected, URL: b.url, LastError: err.Error(), CheckedAt: b.now()}
	} else {
		info := &SessionInfo{
			Pipeline:  "Munz Studio V2 (ComfyUI)",
			Model:     "Wan 2.2 I2V 14B Q4_K_M",
			Queue:     "Idle",
			LatencyMS: latency.Milliseconds(),
		}
		if stats != nil {
			info.Devices = stats.Devices
		}
		b.status = Status{State: StateConnected, Online: true, URL: b.url, Session: info, CheckedAt: b.now()}
	}
	st, fn := b.status, b.onChange
	b.mu.Unlock()

	if err != nil {
		b.logger.Warn("studio backend unreachable", "url", b.url, "error", err)
	} else {
		b.logger.Info("bridge connected", "url", b.url, "latency_ms", latency.Milliseconds())
	}
	if fn != nil {
		fn(st)
	}
}
