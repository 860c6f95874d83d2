// Package frames captures still frames from input video and normalizes
// reference images before they are sent for generation.
package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/munzgen/munzgen-agent/internal/genai"
	"github.com/munzgen/munzgen-agent/internal/logging"
)

const (
	// CaptureBudget is how long a frame capture may take before the
	// generation goes ahead without a reference.
	CaptureBudget = 2 * time.Second

	maxStderrBytes = 4 * 1024
)

var ErrNoFrame = errors.New("no frame captured")

// extractFunc turns encoded video bytes into one encoded still.
type extractFunc func(ctx context.Context, video []byte) ([]byte, error)

// Grabber pulls the first frame of a video through ffmpeg. Video is piped in
// on stdin and the frame read back from stdout, so nothing touches disk.
type Grabber struct {
	ffmpegPath string
	budget     time.Duration
	logger     *slog.Logger
	extract    extractFunc
}

func NewGrabber(ffmpegPath string, logger *slog.Logger) *Grabber {
	g := &Grabber{
		ffmpegPath: ffmpegPath,
		budget:     CaptureBudget,
		logger:     logging.WithComponent(logger, "frames"),
	}
	g.extract = g.runFFmpeg
	return g
}

// Available reports whether the ffmpeg binary resolves, and its path.
func (g *Grabber) Available() (string, bool) {
	p, err := exec.LookPath(g.ffmpegPath)
	if err != nil {
		return "", false
	}
	return p, true
}

// FirstFrame returns the first frame of video as a normalized PNG.
func (g *Grabber) FirstFrame(ctx context.Context, video []byte) (*genai.Media, error) {
	if len(video) == 0 {
		return nil, ErrNoFrame
	}

	ctx, cancel := context.WithTimeout(ctx, g.budget)
	defer cancel()

	start := time.Now()
	still, err := g.extract(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("extract frame: %w", err)
	}
	if len(still) == 0 {
		return nil, ErrNoFrame
	}

	m, err := Normalize(still)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("frame captured", "input_bytes", len(video), "png_bytes", len(m.Data), "duration_ms", time.Since(start).Milliseconds())
	return m, nil
}

func (g *Grabber) runFFmpeg(ctx context.Context, video []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, g.ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(video)
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{w: &stderr, limit: maxStderrBytes}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("ffmpeg failed",
			"error", err,
			"stderr_tail", logging.Truncate(stderr.String(), 512),
		)
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	return stdout.Bytes(), nil
}

// limitedWriter is an io.Writer that keeps only the last limit bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
