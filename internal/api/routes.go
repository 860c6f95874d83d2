package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/munzgen/munzgen-agent/internal/project"
	"github.com/munzgen/munzgen-agent/internal/router"
	"github.com/munzgen/munzgen-agent/internal/studio"
)

// multipartMemory is how much of an upload is buffered before spilling to
// temp files during parsing.
const multipartMemory = 32 << 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/tools", toolsHandler(cfg))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", snapshotHandler(cfg))
			r.Get("/display", displayHandler(cfg))
			r.Put("/view-mode", viewModeHandler(cfg))
			r.Put("/tool", toolHandler(cfg))
			r.Put("/prompt", promptDraftHandler(cfg))

			r.Post("/play", playHandler(cfg))
			r.Post("/pause", pauseHandler(cfg))
			r.Post("/toggle", toggleHandler(cfg))
			r.Post("/seek", seekHandler(cfg))

			r.Post("/tracks/{id}/clips", importClipHandler(cfg))
			r.Delete("/tracks/{id}/clips", clearTrackHandler(cfg))

			r.Put("/masking", maskingModeHandler(cfg))
			r.Post("/masking/points", addMaskPointHandler(cfg))
			r.Delete("/masking/points", clearMaskPointsHandler(cfg))

			r.Post("/layout/{panel}/resize", beginResizeHandler(cfg))
			r.Post("/layout/drag", dragHandler(cfg))
			r.Delete("/layout/resize", endResizeHandler(cfg))
			r.Post("/layout/{panel}/minimize", minimizeHandler(cfg))
		})

		r.Post("/generate", generateHandler(cfg))
		r.Post("/generate/cancel", cancelHandler(cfg))
		r.Post("/key/prompt", promptKeyHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))

		r.Get("/materials", listMaterialsHandler(cfg))
		r.Post("/materials", addMaterialHandler(cfg))
		r.Post("/materials/{id}/apply", applyMaterialHandler(cfg))

		r.Get("/templates", listTemplatesHandler(cfg))
		r.Post("/templates/{id}/load", loadTemplateHandler(cfg))

		r.Get("/bridge", bridgeStatusHandler(cfg))
		r.Post("/bridge/connect", bridgeActionHandler(cfg, bridgeConnect))
		r.Post("/bridge/disconnect", bridgeActionHandler(cfg, bridgeDisconnect))
		r.Post("/bridge/toggle", bridgeActionHandler(cfg, bridgeToggle))
		r.Post("/bridge/refresh", bridgeActionHandler(cfg, bridgeRefresh))
		r.Get("/bridge/qr.png", bridgeQRHandler(cfg))

		r.Get("/settings/models", modelsHandler(cfg))
		r.Get("/settings/api", apiSettingsHandler(cfg))
		r.Put("/settings/api", saveAPIKeyHandler(cfg))
		r.Get("/settings/optimization", optimizationHandler(cfg))
		r.Put("/settings/optimization", togglesHandler(cfg))

		r.Get("/script", getScriptHandler(cfg))
		r.Post("/script", generateScriptHandler(cfg))
		r.Post("/script/use", useScriptHandler(cfg))

		r.Get("/export/edl", exportEDLHandler(cfg))

		r.Get("/media/{id}", mediaHandler(cfg))
		if cfg.Hub != nil {
			r.Get("/events", cfg.Hub.ServeHTTP)
		}
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s := cfg.Studio

		jobs, _ := s.Jobs(ctx, 10)

		state := "idle"
		var activeJob *JobResponse
		lastError := ""
		for _, j := range jobs {
			if !j.Terminal() && activeJob == nil {
				state = "generating"
				resp := JobToResponse(j)
				activeJob = &resp
			}
			if j.Status == studio.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}
		if s.Session().IsPlaying() && state == "idle" {
			state = "playing"
		}

		resp := StatusResponse{
			State:      state,
			StatusLine: s.Session().Status(),
			LastError:  lastError,
			ActiveJob:  activeJob,
			HasAPIKey:  s.HasAPIKey(),
		}
		if b := s.Bridge(); b != nil {
			resp.Bridge = string(b.Status().State)
		}
		if cfg.Hub != nil {
			resp.EventClient = cfg.Hub.Clients()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func toolsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src := router.ModelSource(strings.ToUpper(r.URL.Query().Get("source")))
		WriteJSON(w, http.StatusOK, ToolsResponse{
			Tools:   router.Tools,
			Modules: router.Modules(src),
		})
	}
}

func snapshotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Studio.Session().Snapshot())
	}
}

func displayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		compare, _ := strconv.ParseBool(r.URL.Query().Get("compare"))
		WriteJSON(w, http.StatusOK, cfg.Studio.Session().Display(compare))
	}
}

func viewModeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ViewModeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := cfg.Studio.SetViewMode(req.Mode); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Studio.Session().Snapshot())
	}
}

func toolHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ToolRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := cfg.Studio.SetActiveTool(req.Tool); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Studio.Session().Snapshot())
	}
}

func promptDraftHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PromptDraftRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		cfg.Studio.Session().SetPromptDraft(req.Prompt)
		w.WriteHeader(http.StatusNoContent)
	}
}

func playbackState(s *studio.Studio) PlaybackResponse {
	return PlaybackResponse{
		Playing:     s.Session().IsPlaying(),
		CurrentTime: s.Session().CurrentTime(),
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Studio.Play() {
			WriteError(w, http.StatusConflict, "playback is only available in the editor", "INVALID_STATE")
			return
		}
		WriteJSON(w, http.StatusOK, playbackState(cfg.Studio))
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Studio.Pause()
		WriteJSON(w, http.StatusOK, playbackState(cfg.Studio))
	}
}

func toggleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Studio.TogglePlayback()
		WriteJSON(w, http.StatusOK, playbackState(cfg.Studio))
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		switch {
		case req.Time != nil:
			cfg.Studio.Seek(*req.Time)
		case req.Fraction != nil:
			cfg.Studio.Session().SeekFraction(*req.Fraction)
		default:
			WriteError(w, http.StatusBadRequest, "time or fraction is required", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, playbackState(cfg.Studio))
	}
}

type upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// readUpload pulls the "file" part out of a multipart body capped at limit
// bytes. It writes the error response itself and reports false on failure.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) (*upload, bool) {
	if limit > 0 {
		if r.ContentLength > limit {
			WriteError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit", "TOO_LARGE")
			return nil, false
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			WriteError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit", "TOO_LARGE")
			return nil, false
		}
		WriteError(w, http.StatusBadRequest, "invalid multipart form", "BAD_REQUEST")
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "file is required", "BAD_REQUEST")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read upload", "BAD_REQUEST")
		return nil, false
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "file is empty", "BAD_REQUEST")
		return nil, false
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return &upload{Name: header.Filename, MimeType: mimeType, Data: data}, true
}

// uploadKind picks the media kind for an import: an explicit kind wins,
// then the input audio track, then the content type.
func uploadKind(explicit, mimeType, trackID string) project.MediaKind {
	if k := project.MediaKind(explicit); explicit != "" {
		return k
	}
	if trackID == project.InputAudioTrackID {
		return project.MediaAudio
	}
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return project.MediaAudio
	case strings.HasPrefix(mimeType, "image/"):
		return project.MediaImage
	}
	return project.MediaVideo
}

func importClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trackID := chi.URLParam(r, "id")
		if _, ok := cfg.Studio.Session().Track(trackID); !ok {
			WriteError(w, http.StatusNotFound, "track not found", "NOT_FOUND")
			return
		}

		up, ok := readUpload(w, r, cfg.MaxUploadBytes)
		if !ok {
			return
		}
		kind := uploadKind(r.FormValue("kind"), up.MimeType, trackID)

		clip, err := cfg.Studio.ImportClip(trackID, up.Name, kind, up.MimeType, up.Data)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, clip)
	}
}

func clearTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Studio.ClearTrack(chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func maskingModeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MaskingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := cfg.Studio.Session().SetMaskingMode(req.Mode); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Studio.Session().Snapshot())
	}
}

func addMaskPointHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MaskPointRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		p, added := cfg.Studio.Session().AddMaskPoint(req.X, req.Y)
		resp := MaskPointResponse{Added: added}
		if added {
			resp.Point = &p
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func clearMaskPointsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Studio.Session().ClearMaskPoints()
		w.WriteHeader(http.StatusNoContent)
	}
}

func panelParam(w http.ResponseWriter, r *http.Request) (project.Panel, bool) {
	p, err := project.ParsePanel(chi.URLParam(r, "panel"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return "", false
	}
	return p, true
}

func beginResizeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := panelParam(w, r)
		if !ok {
			return
		}
		if err := cfg.Studio.Session().BeginResize(p); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Studio.Session().Layout())
	}
}

func dragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DragRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.WindowW <= 0 || req.WindowH <= 0 {
			WriteError(w, http.StatusBadRequest, "window size is required", "BAD_REQUEST")
			return
		}
		size, err := cfg.Studio.Session().DragTo(req.X, req.Y, req.WindowW, req.WindowH)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, DragResponse{Size: size})
	}
}

func endResizeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Studio.Session().EndResize()
		WriteJSON(w, http.StatusOK, cfg.Studio.Session().Layout())
	}
}

func minimizeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := panelParam(w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, MinimizeResponse{Panel: p, Minimized: cfg.Studio.Session().ToggleMinimize(p)})
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.MediaServer.Serve(w, r, id); err != nil {
			cfg.Logger.Error("media serve error", "error", err, "media_id", id)
		}
	}
}
