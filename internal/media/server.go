package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/munzgen/munzgen-agent/internal/logging"
)

// Server streams stored blobs with byte-range support so video elements can seek.
type Server struct {
	store  *Store
	logger *slog.Logger
}

func NewServer(store *Store, logger *slog.Logger) *Server {
	return &Server{store: store, logger: logging.WithComponent(logger, "media")}
}

// Serve writes blob id to w, honoring a Range header.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, id string) error {
	blob, err := s.store.Get(id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "media not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		return err
	}

	size := blob.Size
	contentType := blob.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")

	rng, err := ParseRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	body := bytes.NewReader(blob.Bytes())

	// A malformed Range header is ignored and the whole body is sent.
	if rng == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, body)
		}
		return nil
	}

	w.Header().Set("Content-Length", strconv.FormatInt(rng.ContentLength(), 10))
	w.Header().Set("Content-Range", rng.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := body.Seek(rng.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	io.CopyN(w, body, rng.ContentLength())
	s.logger.Debug("served range", "id", id, "range", rng.ContentRange(size))
	return nil
}
