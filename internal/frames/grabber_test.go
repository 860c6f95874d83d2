package frames

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" {
		t.Fatalf("format = %s, want png", format)
	}
	return cfg.Width, cfg.Height
}

func TestNormalize_ScalesWideImages(t *testing.T) {
	m, err := Normalize(encodePNG(t, 2560, 1440))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	w, h := decodeSize(t, m.Data)
	if w != 1280 || h != 720 {
		t.Fatalf("size = %dx%d, want 1280x720", w, h)
	}
	if m.MimeType != "image/png" {
		t.Errorf("mime = %s", m.MimeType)
	}
}

func TestNormalize_SmallPNGUntouched(t *testing.T) {
	src := encodePNG(t, 320, 180)
	m, err := Normalize(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(m.Data, src) {
		t.Error("small png should pass through unchanged")
	}
}

func TestNormalize_JPEGToPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 32)), nil); err != nil {
		t.Fatal(err)
	}
	m, err := Normalize(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if w, h := decodeSize(t, m.Data); w != 64 || h != 32 {
		t.Fatalf("size = %dx%d", w, h)
	}
}

func TestNormalize_Garbage(t *testing.T) {
	if _, err := Normalize([]byte("not an image")); err == nil {
		t.Fatal("expected error")
	}
}

func TestFirstFrame_UsesExtractor(t *testing.T) {
	g := NewGrabber("ffmpeg", testLogger())
	still := encodePNG(t, 1920, 1080)
	g.extract = func(ctx context.Context, video []byte) ([]byte, error) {
		if string(video) != "mp4" {
			t.Errorf("video = %q", video)
		}
		if _, ok := ctx.Deadline(); !ok {
			t.Error("extract should run under a deadline")
		}
		return still, nil
	}

	m, err := g.FirstFrame(context.Background(), []byte("mp4"))
	if err != nil {
		t.Fatalf("FirstFrame() error = %v", err)
	}
	if w, _ := decodeSize(t, m.Data); w != MaxWidth {
		t.Errorf("width = %d", w)
	}
}

func TestFirstFrame_Budget(t *testing.T) {
	g := NewGrabber("ffmpeg", testLogger())
	g.budget = 20 * time.Millisecond
	g.extract = func(ctx context.Context, _ []byte) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	_, err := g.FirstFrame(context.Background(), []byte("mp4"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("budget not enforced")
	}
}

func TestFirstFrame_EmptyInput(t *testing.T) {
	g := NewGrabber("ffmpeg", testLogger())
	if _, err := g.FirstFrame(context.Background(), nil); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("error = %v", err)
	}
}

func TestFirstFrame_MissingBinary(t *testing.T) {
	g := NewGrabber("definitely-not-ffmpeg-binary", testLogger())
	if _, ok := g.Available(); ok {
		t.Fatal("binary should not resolve")
	}
	if _, err := g.FirstFrame(context.Background(), []byte("mp4")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLimitedWriter_KeepsOnlyTail(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 10}

	lw.Write([]byte("hello "))
	lw.Write([]byte("world, this is long"))

	got := buf.String()
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if !strings.HasSuffix("hello world, this is long", got) {
		t.Errorf("got %q, not a tail", got)
	}
}
