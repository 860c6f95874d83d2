package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/munzgen/munzgen-agent/internal/genai"
	"github.com/munzgen/munzgen-agent/internal/logging"
)

// FrameSource yields a still from the input video, or nil when there is no
// input or no frame could be taken in time.
type FrameSource interface {
	CaptureInputFrame(ctx context.Context) *genai.Media
}

// StatusFunc receives progress lines for the status bar.
type StatusFunc func(msg string)

// Outcome is what a generate action produced: either a tool switch or media.
type Outcome struct {
	SwitchTool Tool         `json:"switch_tool,omitempty"`
	Message    string       `json:"message,omitempty"`
	Plan       *Plan        `json:"plan,omitempty"`
	Media      *genai.Media `json:"-"`
}

// Dispatcher runs generate actions against the generation client.
type Dispatcher struct {
	client genai.Client
	frames FrameSource
	logger *slog.Logger
}

func NewDispatcher(client genai.Client, frames FrameSource, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		frames: frames,
		logger: logging.WithComponent(logger, "router"),
	}
}

// Route consults the copilot when the request asks for it. A non-empty tool
// means the copilot switched tools and nothing should be generated.
func (d *Dispatcher) Route(ctx context.Context, r Request, status StatusFunc) (Routing, Tool, string) {
	rt := defaultRouting(r)
	if !r.NeedsRouting() {
		return rt, "", ""
	}

	status("Copilot Analyzing Request...")
	cmd := d.client.RouteCommand(ctx, r.Prompt)

	switch cmd.Action {
	case genai.ActionChangeTool:
		tool, err := ParseTool(cmd.ToolID)
		if err == nil {
			return rt, tool, cmd.Message
		}
		d.logger.Warn("copilot picked unknown tool, generating instead", "tool", cmd.ToolID)
	case genai.ActionGenerate:
		if cmd.Prompt != "" {
			rt.Prompt = cmd.Prompt
		}
		if cmd.Engine.Valid() {
			rt.Engine = cmd.Engine
		}
	}
	return rt, "", ""
}

// Generate validates, routes, resolves the reference and runs the plan.
func (d *Dispatcher) Generate(ctx context.Context, r Request, status StatusFunc) (*Outcome, error) {
	if status == nil {
		status = func(string) {}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	rt, switchTo, msg := d.Route(ctx, r, status)
	if switchTo != "" {
		if msg == "" {
			msg = "Switching tool..."
		}
		status(msg)
		return &Outcome{SwitchTool: switchTo, Message: msg}, nil
	}

	engineName := string(rt.Engine)
	if r.Tool == ToolSceneArchitect && r.Module != "" {
		engineName = r.Module.EngineLabel()
	}
	status("Active Engine: " + spaced(engineName) + "...")

	var ref *genai.Media
	if r.Tool != ToolAnimationStudio {
		ref = r.Reference
		if ref == nil {
			if frame := d.capture(ctx); frame != nil {
				ref = frame
				status("Processing Input with " + spaced(engineName) + "...")
			}
		}
	}

	plan := BuildPlan(r, rt, ref)
	if plan.Kind == PlanImage {
		status("Engine: Nano Banana Pro (Gemini 3 Pro Image)")
	}

	media, err := d.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}
	return &Outcome{Plan: &plan, Media: media}, nil
}

// ApplyMaterial renders a library asset into the current scene.
func (d *Dispatcher) ApplyMaterial(ctx context.Context, name, promptEquivalent string, status StatusFunc) (*Outcome, error) {
	if status == nil {
		status = func(string) {}
	}
	status("Applying " + name + "...")

	plan := MaterialPlan(name, promptEquivalent, d.capture(ctx))
	media, err := d.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}
	return &Outcome{Plan: &plan, Media: media}, nil
}

// Execute sends a resolved plan to its entry point.
func (d *Dispatcher) Execute(ctx context.Context, p Plan) (*genai.Media, error) {
	d.logger.Info("dispatching generation",
		"kind", string(p.Kind),
		"engine", p.EngineLabel,
		"has_reference", p.Reference != nil,
		"label", logging.Truncate(p.Label, 80),
	)

	switch p.Kind {
	case PlanVideo:
		return d.client.GenerateVideo(ctx, p.Prompt, p.Reference, p.Engine)
	case PlanImage:
		return d.client.GenerateImage(ctx, p.Prompt)
	case PlanAnimation:
		return d.client.GenerateCharacterAnimation(ctx, p.Character, p.Motion, p.Animation)
	case PlanEnhance:
		return d.client.EnhanceScene(ctx, p.Prompt, p.Enhance, p.Reference)
	}
	return nil, fmt.Errorf("unknown plan kind %q", p.Kind)
}

func (d *Dispatcher) capture(ctx context.Context) *genai.Media {
	if d.frames == nil {
		return nil
	}
	return d.frames.CaptureInputFrame(ctx)
}

func spaced(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
