package genai

import "strings"

// Engine names the stylistic backend a generation is routed to. Only the
// prompt changes; every engine renders through the same video model.
type Engine string

const (
	EngineVeo2          Engine = "VEO_2"
	EngineNanoBananaPro Engine = "NANO_BANANA_PRO"
	EngineMagicMask     Engine = "DAVINCI_MAGIC_MASK"
	EngineTopaz         Engine = "TOPAZ_VIDEO_AI"
	EngineBlender       Engine = "BLENDER_CYCLES"
	EngineAdobeSensei   Engine = "ADOBE_SENSEI"
	EngineNotebookLM    Engine = "NOTEBOOK_LM"
)

// Engines lists the engines the copilot may pick, in declaration order.
var Engines = []Engine{
	EngineVeo2, EngineNanoBananaPro, EngineMagicMask, EngineTopaz,
	EngineBlender, EngineAdobeSensei, EngineNotebookLM,
}

func (e Engine) Valid() bool {
	for _, v := range Engines {
		if v == e {
			return true
		}
	}
	return false
}

var engineSuffix = map[Engine]string{
	EngineMagicMask: " (Use perfect rotoscoping, clean matte extraction, high contrast separation).",
	EngineTopaz:     " (4k resolution, ultra-sharp, noise reduction, artifact removal, 60fps smoothness).",
	EngineBlender:   " (3D Raytraced render, physically based materials, global illumination).",
}

// StyledPrompt appends the engine's style clause, if it has one.
func StyledPrompt(prompt string, engine Engine) string {
	return prompt + engineSuffix[engine]
}

type AnimationOptions struct {
	UsePhysics bool `json:"use_physics"`
	UseMocap   bool `json:"use_mocap"`
	AutoRig    bool `json:"auto_rig"`
}

func CharacterAnimationPrompt(character, motion string, opts AnimationOptions) string {
	var b strings.Builder
	b.WriteString("High-fidelity 3D character animation. Character: ")
	b.WriteString(character)
	b.WriteString(". Movement: ")
	b.WriteString(motion)
	b.WriteString(". Render style: Physically based rendering, 8k, cinematic lighting.")
	if opts.UsePhysics {
		b.WriteString(" detailed physics simulation for clothing, hair, and accessories, reacting naturally to movement and wind (Blender Cloth/Hair Sim).")
	}
	if opts.UseMocap {
		b.WriteString(" Extremely lifelike, motion-captured movement data style (Rokoko/Mixamo style), realistic weight and balance.")
	}
	if opts.AutoRig {
		b.WriteString(" Perfectly articulated skeletal animation.")
	}
	return b.String()
}

type EnhanceOptions struct {
	Upscale        bool   `json:"upscale"`
	Denoise        bool   `json:"denoise"`
	ColorGrade     string `json:"color_grade,omitempty"`
	Reconstruction string `json:"reconstruction,omitempty"`
	Textures       string `json:"textures,omitempty"`

	// Notes are extra sentences appended verbatim, e.g. selection points.
	Notes []string `json:"notes,omitempty"`
}

func EnhancePrompt(base string, opts EnhanceOptions) string {
	var b strings.Builder
	b.WriteString("Professional VFX Edit. ")
	b.WriteString(base)
	b.WriteString(".")
	if opts.Upscale {
		b.WriteString(" Ultra-high resolution 4K style, sharp details (Topaz Video AI Quality).")
	}
	if opts.Denoise {
		b.WriteString(" Clean, noise-free, restoration quality (DeNoise AI).")
	}
	if opts.ColorGrade != "" {
		b.WriteString(" Professional color grading: " + opts.ColorGrade + " (DaVinci Resolve Color).")
	}
	if opts.Reconstruction != "" {
		b.WriteString(" Reconstructed details: " + opts.Reconstruction + " (Adobe Sensei Fill).")
	}
	if opts.Textures != "" {
		b.WriteString(" Material change: " + opts.Textures + ".")
	}
	for _, n := range opts.Notes {
		b.WriteString(" " + n)
	}
	return b.String()
}

// ScriptPrompt wraps a scene idea into the screenplay request.
func ScriptPrompt(idea string) string {
	return "Write a short movie scene script about: " + idea + ". Include visual descriptions for VFX."
}

const (
	scriptInstruction  = "You are a Hollywood professional screenwriter using NotebookLM Plus research capabilities. Output formatted screenplay text."
	copilotInstruction = "You are MunzGen AI Copilot. Map user requests to the most advanced AI engine available. For example, 'remove background' -> DAVINCI_MAGIC_MASK. 'Upscale' -> TOPAZ_VIDEO_AI. 'Create character' -> NANO_BANANA_PRO or VEO_2. 'Physics simulation' -> BLENDER_CYCLES."
)
