package api

import (
	"net/http"
	"strconv"

	"github.com/munzgen/munzgen-agent/internal/export"
)

// exportEDLHandler renders the current timeline as a CMX3600 EDL download.
func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		opts := export.Options{ProjectName: q.Get("project_name")}
		if fr := q.Get("frame_rate"); fr != "" {
			rate, err := strconv.ParseFloat(fr, 64)
			if err != nil || rate <= 0 {
				WriteError(w, http.StatusBadRequest, "frame_rate must be a positive number", "BAD_REQUEST")
				return
			}
			opts.FrameRate = rate
		}
		if inc := q.Get("include_input"); inc != "" {
			v, err := strconv.ParseBool(inc)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "include_input must be a boolean", "BAD_REQUEST")
				return
			}
			opts.IncludeInput = v
		}

		edl, events := export.Timeline(cfg.Studio.Session().Snapshot().Tracks, opts)
		if len(events) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "timeline has no clips to export", "EMPTY_TIMELINE")
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(opts.ProjectName)+`"`)
		w.Header().Set("X-Event-Count", strconv.Itoa(len(events)))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(edl))
	}
}
