package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeProber struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeProber) Probe(ctx context.Context) (*SystemStats, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	stats := &SystemStats{Devices: []Device{{Name: "cuda:0", Type: "cuda"}}}
	return stats, 12 * time.Millisecond, nil
}

// gate hands out one channel per handshake so tests decide when delays elapse.
type gate struct {
	mu     sync.Mutex
	delays []time.Duration
	chans  []chan time.Time
}

func (g *gate) after(d time.Duration) <-chan time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan time.Time, 1)
	g.delays = append(g.delays, d)
	g.chans = append(g.chans, ch)
	return ch
}

func (g *gate) fire(i int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chans[i] <- time.Time{}
}

func (g *gate) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		got := len(g.chans)
		g.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("handshake %d never started", n)
}

func newTestBridge(p Prober) (*Bridge, *gate) {
	b := New("http://127.0.0.1:8188", p, slog.New(slog.NewTextHandler(io.Discard, nil)))
	g := &gate{}
	b.after = g.after
	return b, g
}

func TestBridge_StartConnects(t *testing.T) {
	b, g := newTestBridge(&fakeProber{})

	var mu sync.Mutex
	var seen []State
	b.OnChange(func(s Status) {
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	})

	b.Start(context.Background())
	if st := b.Status(); st.State != StateSearching || st.Online {
		t.Fatalf("status = %+v, want searching", st)
	}

	g.waitFor(t, 1)
	g.fire(0)
	b.Wait()

	st := b.Status()
	if st.State != StateConnected || !st.Online || st.Session == nil {
		t.Fatalf("status = %+v, want connected", st)
	}
	if st.Session.LatencyMS != 12 || len(st.Session.Devices) != 1 {
		t.Errorf("session = %+v", st.Session)
	}
	if g.delays[0] != StartDelay {
		t.Errorf("delay = %v, want %v", g.delays[0], StartDelay)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != StateSearching || seen[1] != StateConnected {
		t.Errorf("transitions = %v", seen)
	}
}

func TestBridge_ProbeFailureDisconnects(t *testing.T) {
	b, g := newTestBridge(&fakeProber{err: errors.New("connection refused")})

	b.Start(context.Background())
	g.waitFor(t, 1)
	g.fire(0)
	b.Wait()

	st := b.Status()
	if st.State != StateDisconnected || st.Online || st.LastError == "" {
		t.Fatalf("status = %+v", st)
	}
}

func TestBridge_ToggleCycle(t *testing.T) {
	p := &fakeProber{}
	b, g := newTestBridge(p)
	ctx := context.Background()

	b.Start(ctx)
	g.waitFor(t, 1)
	g.fire(0)
	b.Wait()

	if st := b.Toggle(ctx); st.State != StateDisconnected {
		t.Fatalf("first toggle = %s, want disconnected", st.State)
	}
	if st := b.Toggle(ctx); st.State != StateSearching {
		t.Fatalf("second toggle = %s, want searching", st.State)
	}
	g.waitFor(t, 2)
	if g.delays[1] != ReconnectDelay {
		t.Errorf("reconnect delay = %v", g.delays[1])
	}
	g.fire(1)
	b.Wait()
	if st := b.Status(); st.State != StateConnected {
		t.Fatalf("after reconnect = %s", st.State)
	}
}

func TestBridge_DisconnectAbandonsHandshake(t *testing.T) {
	p := &fakeProber{}
	b, g := newTestBridge(p)

	b.Start(context.Background())
	g.waitFor(t, 1)
	b.Disconnect()
	b.Wait()

	if st := b.Status(); st.State != StateDisconnected {
		t.Fatalf("status = %s", st.State)
	}
	if p.calls != 0 {
		t.Errorf("probe ran %d times after disconnect", p.calls)
	}
}

func TestBridge_ConnectNoopWhenOnline(t *testing.T) {
	b, g := newTestBridge(&fakeProber{})
	ctx := context.Background()

	b.Start(ctx)
	g.waitFor(t, 1)
	g.fire(0)
	b.Wait()

	b.Connect(ctx)
	g.mu.Lock()
	n := len(g.chans)
	g.mu.Unlock()
	if n != 1 {
		t.Errorf("Connect while online started %d handshakes", n-1)
	}
}

func TestBridge_RefreshWhileDisconnected(t *testing.T) {
	p := &fakeProber{}
	b, _ := newTestBridge(p)
	b.Disconnect()

	if st := b.Refresh(context.Background()); st.State != StateDisconnected || p.calls != 0 {
		t.Fatalf("Refresh() = %+v, calls = %d", st, p.calls)
	}
}

func TestBridge_QRCode(t *testing.T) {
	b, _ := newTestBridge(&fakeProber{})
	png, err := b.QRCode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("QRCode() is not a PNG")
	}
}

func TestHTTPProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/system_stats" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"system":{"os":"posix","comfyui_version":"0.3.40"},"devices":[{"name":"cuda:0 RTX 4090","type":"cuda","vram_total":25757220864}]}`))
	}))
	defer srv.Close()

	stats, _, err := NewHTTPProber(srv.URL + "/").Probe(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.System.ComfyUIVersion != "0.3.40" || len(stats.Devices) != 1 || stats.Devices[0].VRAMTotal == 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHTTPProber_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := NewHTTPProber(srv.URL).Probe(context.Background())
	var pe *ProbeError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusInternalServerError {
		t.Fatalf("error = %v", err)
	}
}
