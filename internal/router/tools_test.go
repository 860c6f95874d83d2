package router

import "testing"

func TestToolPredicates(t *testing.T) {
	generic := map[Tool]bool{}
	auto := map[Tool]bool{}
	for _, info := range Tools {
		generic[info.ID] = info.ID.IsGeneric()
		auto[info.ID] = info.ID.CanUseAutoVFX()
	}

	for _, tool := range []Tool{ToolSelect, ToolCut, ToolMagicVFX, ToolSceneReplace, ToolCharacterCreator, ToolObjectTrack} {
		if !generic[tool] {
			t.Errorf("%s should be generic", tool)
		}
	}
	for _, tool := range []Tool{ToolAnimationStudio, ToolSceneArchitect, ToolMaterialLibrary, ToolBridge, ToolTemplates, ToolSettings} {
		if generic[tool] {
			t.Errorf("%s should not be generic", tool)
		}
	}

	count := 0
	for _, v := range auto {
		if v {
			count++
		}
	}
	if count != 5 || !auto[ToolSceneArchitect] || auto[ToolCut] {
		t.Errorf("auto-vfx tools = %v", auto)
	}
	if len(Tools) != 12 {
		t.Errorf("tool count = %d, want 12", len(Tools))
	}
}

func TestModules(t *testing.T) {
	if n := len(Modules(SourceClosed)); n != 10 {
		t.Errorf("closed modules = %d, want 10", n)
	}
	if n := len(Modules(SourceOpen)); n != 4 {
		t.Errorf("open modules = %d, want 4", n)
	}
	if _, err := ParseModule("NEURAL_FILTER"); err != nil {
		t.Errorf("NEURAL_FILTER should parse: %v", err)
	}
	if _, err := ParseModule("nope"); err == nil {
		t.Error("expected error")
	}
}

func TestModuleEngineLabel(t *testing.T) {
	tests := map[Module]string{
		ModuleMagicMask:     "MAGIC MASK",
		ModuleSAM3Segment:   "SAM3 SEGMENT",
		ModuleRotobot:       "ROTOBOT",
		ModuleDepthAnything: "DEPTH ANYTHING",
	}
	for m, want := range tests {
		if got := m.EngineLabel(); got != want {
			t.Errorf("%s.EngineLabel() = %q, want %q", m, got, want)
		}
	}
}

func TestMaskingRelevant(t *testing.T) {
	relevant := []Module{ModuleMagicMask, ModuleRotobot, ModuleGenFill, ModuleTerrainAI, ModuleAutoMap, ModuleSAM3Segment, ModuleWanInpaint}
	for _, m := range relevant {
		if !m.MaskingRelevant() {
			t.Errorf("%s should be masking-relevant", m)
		}
	}
	for _, m := range []Module{ModuleRelight, ModuleDenoise, ModuleFluxFill, ModuleDepthAnything} {
		if m.MaskingRelevant() {
			t.Errorf("%s should not be masking-relevant", m)
		}
	}
}
