package router

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/munzgen/munzgen-agent/internal/genai"
	"github.com/munzgen/munzgen-agent/internal/project"
)

// AutoVFXSuffix is appended to prompts while the copilot is on.
const AutoVFXSuffix = " Professional VFX Studio: Ensure seamless integration, photorealistic lighting, and match input video perspective."

var ErrInvalidRequest = errors.New("invalid generation request")

// ModuleParams are the per-module knobs of the pro suite.
type ModuleParams struct {
	TerrainType    string  `json:"terrain_type,omitempty"`
	TextureScale   float64 `json:"texture_scale,omitempty"`
	DepthInfluence *bool   `json:"depth_influence,omitempty"`
	LightSource    string  `json:"light_source,omitempty"`
}

// Request is one press of the generate button.
type Request struct {
	Tool    Tool   `json:"tool"`
	Prompt  string `json:"prompt"`
	AutoVFX bool   `json:"auto_vfx"`

	Character string                 `json:"character,omitempty"`
	Motion    string                 `json:"motion,omitempty"`
	Animation genai.AnimationOptions `json:"animation"`

	Module       Module               `json:"module,omitempty"`
	ModelSource  ModelSource          `json:"model_source,omitempty"`
	ModuleParams ModuleParams         `json:"module_params"`
	Enhance      genai.EnhanceOptions `json:"enhance"`
	MaskPoints   []project.MaskPoint  `json:"-"`

	// Reference is an explicitly supplied image. It wins over a captured frame.
	Reference *genai.Media `json:"-"`
}

// Validate rejects requests the panel would not let through.
func (r Request) Validate() error {
	if _, err := ParseTool(string(r.Tool)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if !r.Tool.Generates() {
		return fmt.Errorf("%w: tool %s has no generate action", ErrInvalidRequest, r.Tool)
	}
	switch r.Tool {
	case ToolAnimationStudio:
		if r.Character == "" || r.Motion == "" {
			return fmt.Errorf("%w: character and motion are required", ErrInvalidRequest)
		}
	case ToolSceneArchitect:
		if r.Module != "" {
			if _, err := ParseModule(string(r.Module)); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			}
		}
	default:
		if r.Prompt == "" {
			return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
		}
	}
	return nil
}

// NeedsRouting reports whether the copilot is consulted first.
func (r Request) NeedsRouting() bool {
	return r.AutoVFX && r.Prompt != "" && r.Tool != ToolSceneArchitect
}

func (r Request) suffix() string {
	if r.AutoVFX {
		return AutoVFXSuffix
	}
	return ""
}

type PlanKind string

const (
	PlanVideo     PlanKind = "video"
	PlanImage     PlanKind = "image"
	PlanAnimation PlanKind = "animation"
	PlanEnhance   PlanKind = "enhance"
)

// Plan is a fully resolved generation: which entry point, with what prompt,
// and how the result is labelled.
type Plan struct {
	Kind        PlanKind               `json:"kind"`
	Prompt      string                 `json:"prompt"`
	Engine      genai.Engine           `json:"engine"`
	EngineLabel string                 `json:"engine_label"`
	Character   string                 `json:"character,omitempty"`
	Motion      string                 `json:"motion,omitempty"`
	Animation   genai.AnimationOptions `json:"animation"`
	Enhance     genai.EnhanceOptions   `json:"enhance"`
	Reference   *genai.Media           `json:"-"`
	Result      project.MediaKind      `json:"result"`
	Label       string                 `json:"label"`
}

// Routing is what the copilot settled on for a generate action.
type Routing struct {
	Prompt string
	Engine genai.Engine
}

func defaultRouting(r Request) Routing {
	return Routing{Prompt: r.Prompt, Engine: genai.EngineVeo2}
}

type planner func(r Request, rt Routing, ref *genai.Media) Plan

// planners maps the tools with their own entry point. Every other
// generating tool renders a video.
var planners = map[Tool]planner{
	ToolAnimationStudio:  planAnimation,
	ToolSceneArchitect:   planArchitect,
	ToolCharacterCreator: planCharacter,
}

// BuildPlan resolves a validated request. ref is the reference image in
// effect, explicit or captured.
func BuildPlan(r Request, rt Routing, ref *genai.Media) Plan {
	if p, ok := planners[r.Tool]; ok {
		return p(r, rt, ref)
	}
	return planVideo(r, rt, ref)
}

func planVideo(r Request, rt Routing, ref *genai.Media) Plan {
	return Plan{
		Kind:        PlanVideo,
		Prompt:      rt.Prompt + r.suffix(),
		Engine:      rt.Engine,
		EngineLabel: string(rt.Engine),
		Reference:   ref,
		Result:      project.MediaVideo,
		Label:       rt.Prompt,
	}
}

func planCharacter(r Request, rt Routing, ref *genai.Media) Plan {
	if ref != nil {
		return planVideo(r, rt, ref)
	}
	return Plan{
		Kind:        PlanImage,
		Prompt:      r.Prompt + r.suffix(),
		Engine:      genai.EngineNanoBananaPro,
		EngineLabel: string(genai.EngineNanoBananaPro),
		Result:      project.MediaImage,
		Label:       r.Prompt,
	}
}

func planAnimation(r Request, rt Routing, _ *genai.Media) Plan {
	return Plan{
		Kind:        PlanAnimation,
		Engine:      rt.Engine,
		EngineLabel: string(rt.Engine),
		Character:   r.Character + r.suffix(),
		Motion:      r.Motion,
		Animation:   r.Animation,
		Result:      project.MediaVideo,
		Label:       "Anim: " + r.Character + " - " + r.Motion,
	}
}

func planArchitect(r Request, rt Routing, ref *genai.Media) Plan {
	opts := r.Enhance
	opts.Reconstruction = r.Prompt
	opts.Notes = append(append([]string(nil), opts.Notes...), architectNotes(r)...)

	label := "Architect: " + r.Prompt
	engineLabel := string(rt.Engine)
	if r.Module != "" {
		label = string(r.Module) + ": " + r.Prompt
		engineLabel = r.Module.EngineLabel()
	}

	return Plan{
		Kind:        PlanEnhance,
		Prompt:      r.Prompt + r.suffix(),
		Engine:      rt.Engine,
		EngineLabel: engineLabel,
		Enhance:     opts,
		Reference:   ref,
		Result:      project.MediaVideo,
		Label:       label,
	}
}

// MaterialPlan applies a library asset to the scene as an enhancement.
func MaterialPlan(name, promptEquivalent string, ref *genai.Media) Plan {
	return Plan{
		Kind:        PlanEnhance,
		Prompt:      "Apply " + promptEquivalent + " to the scene",
		Engine:      genai.EngineVeo2,
		EngineLabel: string(genai.EngineVeo2),
		Enhance:     genai.EnhanceOptions{Textures: promptEquivalent},
		Reference:   ref,
		Result:      project.MediaVideo,
		Label:       "Material: " + name,
	}
}

// architectNotes turns the module selection, its parameters and the mask
// points into prompt sentences.
func architectNotes(r Request) []string {
	var notes []string
	if r.Module == "" {
		return nil
	}
	notes = append(notes, "Module: "+r.Module.EngineLabel()+".")
	if r.ModelSource == SourceOpen {
		notes = append(notes, "Use open-source model weights.")
	}

	p := r.ModuleParams
	if p.TerrainType != "" {
		notes = append(notes, "Terrain preset: "+p.TerrainType+".")
	}
	if p.TextureScale > 0 {
		notes = append(notes, "Texture scale: "+strconv.FormatFloat(p.TextureScale, 'f', -1, 64)+"x.")
	}
	if p.DepthInfluence != nil && !*p.DepthInfluence {
		notes = append(notes, "Ignore scene depth.")
	}
	if p.LightSource != "" {
		notes = append(notes, "Lighting: "+p.LightSource+".")
	}

	if r.Module.MaskingRelevant() {
		if s := pointsClause("Include", r.MaskPoints, project.MaskInclude); s != "" {
			notes = append(notes, s)
		}
		if s := pointsClause("Exclude", r.MaskPoints, project.MaskExclude); s != "" {
			notes = append(notes, s)
		}
	}
	return notes
}

func pointsClause(verb string, points []project.MaskPoint, mode project.MaskMode) string {
	var coords []string
	for _, p := range points {
		if p.Mode == mode {
			coords = append(coords, fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y))
		}
	}
	if len(coords) == 0 {
		return ""
	}
	out := verb + " regions at normalized points"
	for i, c := range coords {
		if i > 0 {
			out += ","
		}
		out += " " + c
	}
	return out + "."
}
