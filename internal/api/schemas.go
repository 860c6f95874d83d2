package api

import (
	"time"

	"github.com/munzgen/munzgen-agent/internal/bridge"
	"github.com/munzgen/munzgen-agent/internal/library"
	"github.com/munzgen/munzgen-agent/internal/project"
	"github.com/munzgen/munzgen-agent/internal/router"
	"github.com/munzgen/munzgen-agent/internal/studio"
	"github.com/munzgen/munzgen-agent/internal/templates"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State       string       `json:"state"`
	StatusLine  string       `json:"status_line,omitempty"`
	LastError   string       `json:"last_error,omitempty"`
	ActiveJob   *JobResponse `json:"active_job,omitempty"`
	HasAPIKey   bool         `json:"has_api_key"`
	Bridge      string       `json:"bridge,omitempty"`
	EventClient int          `json:"event_clients"`
}

type ViewModeRequest struct {
	Mode project.ViewMode `json:"mode"`
}

type ToolRequest struct {
	Tool string `json:"tool"`
}

type PromptDraftRequest struct {
	Prompt string `json:"prompt"`
}

type ToolsResponse struct {
	Tools   []router.ToolInfo   `json:"tools"`
	Modules []router.ModuleInfo `json:"modules"`
}

type SeekRequest struct {
	Time     *float64 `json:"time,omitempty"`
	Fraction *float64 `json:"fraction,omitempty"`
}

type PlaybackResponse struct {
	Playing     bool    `json:"playing"`
	CurrentTime float64 `json:"current_time"`
}

type MaskingRequest struct {
	Mode project.MaskMode `json:"mode"`
}

type MaskPointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type MaskPointResponse struct {
	Added bool               `json:"added"`
	Point *project.MaskPoint `json:"point,omitempty"`
}

type DragRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	WindowW float64 `json:"window_w"`
	WindowH float64 `json:"window_h"`
}

type DragResponse struct {
	Size float64 `json:"size"`
}

type MinimizeResponse struct {
	Panel     project.Panel `json:"panel"`
	Minimized bool          `json:"minimized"`
}

// GenerateRequest is a generate press. ReferenceImage is an optional
// data: URL or bare base64 image used instead of a captured frame.
type GenerateRequest struct {
	router.Request
	ReferenceImage string `json:"reference_image,omitempty"`
}

type JobResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Label     string `json:"label"`
	Engine    string `json:"engine,omitempty"`
	ResultURL string `json:"result_url,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

type MaterialsResponse struct {
	Materials []library.Material `json:"materials"`
}

type TemplatesResponse struct {
	Templates []templates.Template `json:"templates"`
}

type BridgeResponse struct {
	bridge.Status
	Integrations []bridge.Integration `json:"integrations"`
}

type SaveAPIKeyRequest struct {
	Provider string `json:"provider"`
	Key      string `json:"key"`
}

type ScriptRequest struct {
	Idea string `json:"idea"`
}

type ScriptResponse struct {
	Script string `json:"script"`
}

type UseScriptRequest struct {
	Text string `json:"text,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j *studio.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		Kind:      j.Kind,
		Status:    j.Status,
		Label:     j.Label,
		Engine:    j.Engine,
		ResultURL: j.ResultURL,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}
