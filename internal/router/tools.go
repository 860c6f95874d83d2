package router

import (
	"fmt"
	"strings"
)

type Tool string

const (
	ToolSelect           Tool = "SELECT"
	ToolCut              Tool = "CUT"
	ToolMagicVFX         Tool = "MAGIC_VFX"
	ToolSceneReplace     Tool = "SCENE_REPLACE"
	ToolCharacterCreator Tool = "CHARACTER_CREATOR"
	ToolObjectTrack      Tool = "OBJECT_TRACK"
	ToolAnimationStudio  Tool = "ANIMATION_STUDIO"
	ToolSceneArchitect   Tool = "SCENE_ARCHITECT"
	ToolMaterialLibrary  Tool = "MATERIAL_LIBRARY"
	ToolBridge           Tool = "BRIDGE"
	ToolTemplates        Tool = "TEMPLATES"
	ToolSettings         Tool = "SETTINGS"
)

// ToolInfo is a palette entry.
type ToolInfo struct {
	ID    Tool   `json:"id"`
	Label string `json:"label"`
}

// Tools is the palette in display order.
var Tools = []ToolInfo{
	{ToolSelect, "Select"},
	{ToolCut, "Cut"},
	{ToolMagicVFX, "Magic VFX"},
	{ToolSceneReplace, "Scene Swap"},
	{ToolCharacterCreator, "Character"},
	{ToolObjectTrack, "Track"},
	{ToolAnimationStudio, "Anim Studio"},
	{ToolSceneArchitect, "Pro AI Suite"},
	{ToolMaterialLibrary, "Materials"},
	{ToolBridge, "Bridge"},
	{ToolTemplates, "Templates"},
	{ToolSettings, "Settings"},
}

func ParseTool(s string) (Tool, error) {
	for _, t := range Tools {
		if string(t.ID) == s {
			return t.ID, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// IsGeneric reports whether the tool uses the plain prompt form.
func (t Tool) IsGeneric() bool {
	switch t {
	case ToolAnimationStudio, ToolSceneArchitect, ToolMaterialLibrary,
		ToolSettings, ToolBridge, ToolTemplates:
		return false
	}
	return true
}

// CanUseAutoVFX reports whether the copilot toggle is offered for the tool.
func (t Tool) CanUseAutoVFX() bool {
	switch t {
	case ToolMagicVFX, ToolSceneReplace, ToolCharacterCreator,
		ToolSceneArchitect, ToolAnimationStudio:
		return true
	}
	return false
}

// Generates reports whether the tool has a generate action at all.
func (t Tool) Generates() bool {
	return t.IsGeneric() || t == ToolAnimationStudio || t == ToolSceneArchitect
}

type Module string

const (
	ModuleGenFill       Module = "GEN_FILL"
	ModuleMagicMask     Module = "MAGIC_MASK"
	ModuleRotobot       Module = "ROTOBOT"
	ModuleRelight       Module = "RELIGHT"
	ModuleSkyReplace    Module = "SKY_REPLACE"
	ModuleTerrainAI     Module = "TERRAIN_AI"
	ModuleAutoMap       Module = "AUTO_MAP"
	ModuleDenoise       Module = "DENOISE"
	ModuleSharpen       Module = "SHARPEN"
	ModuleDepthMap      Module = "DEPTH_MAP"
	ModuleNeuralFilter  Module = "NEURAL_FILTER"
	ModuleSAM3Segment   Module = "SAM3_SEGMENT"
	ModuleWanInpaint    Module = "WAN_INPAINT"
	ModuleDepthAnything Module = "DEPTH_ANYTHING"
	ModuleFluxFill      Module = "FLUX_FILL"
)

type ModelSource string

const (
	SourceClosed ModelSource = "CLOSED"
	SourceOpen   ModelSource = "OPEN"
)

type ModuleInfo struct {
	ID          Module `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

var closedModules = []ModuleInfo{
	{ID: ModuleGenFill, Label: "Gen Fill"},
	{ID: ModuleMagicMask, Label: "Magic Mask"},
	{ID: ModuleRotobot, Label: "Rotobot"},
	{ID: ModuleRelight, Label: "Relight"},
	{ID: ModuleSkyReplace, Label: "Sky AI"},
	{ID: ModuleTerrainAI, Label: "Terrain AI"},
	{ID: ModuleAutoMap, Label: "Auto Map"},
	{ID: ModuleDenoise, Label: "DeNoise"},
	{ID: ModuleSharpen, Label: "Sharpen"},
	{ID: ModuleDepthMap, Label: "Depth AI"},
}

var openModules = []ModuleInfo{
	{ID: ModuleSAM3Segment, Label: "SAM 3", Description: "Segment Anything 3"},
	{ID: ModuleWanInpaint, Label: "Wan 2.1", Description: "Wan Video Inpainting"},
	{ID: ModuleDepthAnything, Label: "Depth V2", Description: "Depth Anything V2"},
	{ID: ModuleFluxFill, Label: "Flux Fill", Description: "Flux Inpainting"},
}

// Modules returns the module set offered for a model source.
func Modules(src ModelSource) []ModuleInfo {
	if src == SourceOpen {
		return openModules
	}
	return closedModules
}

// ParseModule accepts any declared module id, including ones not offered
// in either palette.
func ParseModule(s string) (Module, error) {
	if Module(s) == ModuleNeuralFilter {
		return ModuleNeuralFilter, nil
	}
	for _, set := range [][]ModuleInfo{closedModules, openModules} {
		for _, m := range set {
			if string(m.ID) == s {
				return m.ID, nil
			}
		}
	}
	return "", fmt.Errorf("unknown module %q", s)
}

// MaskingRelevant reports whether the module takes selection points.
func (m Module) MaskingRelevant() bool {
	switch m {
	case ModuleMagicMask, ModuleRotobot, ModuleGenFill, ModuleTerrainAI,
		ModuleAutoMap, ModuleSAM3Segment, ModuleWanInpaint:
		return true
	}
	return false
}

// EngineLabel is the module id with its first underscore turned into a space.
func (m Module) EngineLabel() string {
	return strings.Replace(string(m), "_", " ", 1)
}
