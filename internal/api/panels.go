package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/munzgen/munzgen-agent/internal/bridge"
	"github.com/munzgen/munzgen-agent/internal/frames"
	"github.com/munzgen/munzgen-agent/internal/genai"
	"github.com/munzgen/munzgen-agent/internal/library"
	"github.com/munzgen/munzgen-agent/internal/router"
	"github.com/munzgen/munzgen-agent/internal/settings"
)

// decodeReference turns a data: URL or bare base64 image into a normalized
// PNG reference.
func decodeReference(s string) (*genai.Media, error) {
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, fmt.Errorf("%w: malformed reference data URL", router.ErrInvalidRequest)
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: reference image is not base64", router.ErrInvalidRequest)
	}
	m, err := frames.Normalize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", router.ErrInvalidRequest, err)
	}
	return m, nil
}

func generateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ReferenceImage != "" {
			ref, err := decodeReference(req.ReferenceImage)
			if err != nil {
				writeServiceError(w, cfg.Logger, err)
				return
			}
			req.Request.Reference = ref
		}

		job, err := cfg.Studio.Generate(r.Context(), req.Request)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, JobToResponse(job))
	}
}

func cancelHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, CancelResponse{Cancelled: cfg.Studio.CancelGeneration()})
	}
}

func promptKeyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Studio.PromptKeySelection()
		w.WriteHeader(http.StatusAccepted)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		jobs, err := cfg.Studio.Jobs(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Studio.Job(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func listMaterialsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		items, err := cfg.Studio.Library().List(r.Context(), q.Get("tab"), q.Get("q"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, MaterialsResponse{Materials: items})
	}
}

func addMaterialHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up, ok := readUpload(w, r, cfg.MaxUploadBytes)
		if !ok {
			return
		}
		in := library.AddInput{
			FileName: up.Name,
			Name:     r.FormValue("name"),
			Kind:     library.Kind(r.FormValue("type")),
			Prompt:   r.FormValue("prompt"),
		}

		m, err := cfg.Studio.AddMaterial(r.Context(), in, up.MimeType, up.Data)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, m)
	}
}

func applyMaterialHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Studio.ApplyMaterial(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, JobToResponse(job))
	}
}

func listTemplatesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, TemplatesResponse{Templates: cfg.Studio.Templates()})
	}
}

func loadTemplateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := cfg.Studio.LoadTemplate(chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Studio.Session().Snapshot())
	}
}

type bridgeAction int

const (
	bridgeConnect bridgeAction = iota
	bridgeDisconnect
	bridgeToggle
	bridgeRefresh
)

func writeBridge(w http.ResponseWriter, st bridge.Status, ok bool) {
	if !ok {
		WriteError(w, http.StatusServiceUnavailable, "bridge is not configured", "UNAVAILABLE")
		return
	}
	WriteJSON(w, http.StatusOK, BridgeResponse{Status: st, Integrations: bridge.Integrations})
}

func bridgeStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := cfg.Studio.Bridge()
		if b == nil {
			writeBridge(w, bridge.Status{}, false)
			return
		}
		writeBridge(w, b.Status(), true)
	}
}

func bridgeActionHandler(cfg ServerConfig, action bridgeAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := cfg.Studio
		var (
			st bridge.Status
			ok bool
		)
		switch action {
		case bridgeConnect:
			st, ok = s.ConnectBridge()
		case bridgeDisconnect:
			st, ok = s.DisconnectBridge()
		case bridgeToggle:
			st, ok = s.ToggleBridge()
		case bridgeRefresh:
			st, ok = s.RefreshBridge()
		}
		writeBridge(w, st, ok)
	}
}

func bridgeQRHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := cfg.Studio.Bridge()
		if b == nil {
			WriteError(w, http.StatusServiceUnavailable, "bridge is not configured", "UNAVAILABLE")
			return
		}
		png, err := b.QRCode()
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}

func modelsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string][]settings.Category{"categories": cfg.Settings.Models()})
	}
}

func apiSettingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := cfg.Settings.API(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, st)
	}
}

func saveAPIKeyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SaveAPIKeyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		st, err := cfg.Settings.SaveAPIKey(r.Context(), req.Provider, req.Key)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, st)
	}
}

func optimizationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opt, err := cfg.Settings.Optimization(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, opt)
	}
}

func togglesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settings.Toggles
		if !decodeJSON(w, r, &req) {
			return
		}
		opt, err := cfg.Settings.SetToggles(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, opt)
	}
}

func getScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, ScriptResponse{Script: cfg.Studio.Script()})
	}
}

func generateScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScriptRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		text, err := cfg.Studio.GenerateScript(r.Context(), req.Idea)
		if err != nil {
			if status, _ := errorStatus(err); status == http.StatusInternalServerError {
				cfg.Logger.Error("script generation failed", "error", err)
				WriteError(w, http.StatusBadGateway, "Failed to generate script.", "SCRIPT_FAILED")
				return
			}
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ScriptResponse{Script: text})
	}
}

func useScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UseScriptRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}
		if err := cfg.Studio.UseScript(req.Text); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Studio.Session().Snapshot())
	}
}
