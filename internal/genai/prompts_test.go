package genai

import (
	"errors"
	"fmt"
	"testing"
)

func TestStyledPrompt(t *testing.T) {
	tests := []struct {
		engine Engine
		want   string
	}{
		{EngineVeo2, "p"},
		{EngineNanoBananaPro, "p"},
		{EngineMagicMask, "p (Use perfect rotoscoping, clean matte extraction, high contrast separation)."},
		{EngineTopaz, "p (4k resolution, ultra-sharp, noise reduction, artifact removal, 60fps smoothness)."},
		{EngineBlender, "p (3D Raytraced render, physically based materials, global illumination)."},
		{"", "p"},
	}
	for _, tt := range tests {
		if got := StyledPrompt("p", tt.engine); got != tt.want {
			t.Errorf("StyledPrompt(%q) = %q, want %q", tt.engine, got, tt.want)
		}
	}
}

func TestCharacterAnimationPrompt(t *testing.T) {
	base := "High-fidelity 3D character animation. Character: a knight. Movement: a backflip. Render style: Physically based rendering, 8k, cinematic lighting."

	if got := CharacterAnimationPrompt("a knight", "a backflip", AnimationOptions{}); got != base {
		t.Errorf("no options = %q", got)
	}

	got := CharacterAnimationPrompt("a knight", "a backflip", AnimationOptions{UsePhysics: true, UseMocap: true, AutoRig: true})
	want := base +
		" detailed physics simulation for clothing, hair, and accessories, reacting naturally to movement and wind (Blender Cloth/Hair Sim)." +
		" Extremely lifelike, motion-captured movement data style (Rokoko/Mixamo style), realistic weight and balance." +
		" Perfectly articulated skeletal animation."
	if got != want {
		t.Errorf("all options = %q", got)
	}
}

func TestEnhancePrompt(t *testing.T) {
	got := EnhancePrompt("Apply rust to the scene", EnhanceOptions{Textures: "rust"})
	want := "Professional VFX Edit. Apply rust to the scene. Material change: rust."
	if got != want {
		t.Errorf("EnhancePrompt() = %q, want %q", got, want)
	}

	got = EnhancePrompt("fix it", EnhanceOptions{Upscale: true, Denoise: true, ColorGrade: "teal", Reconstruction: "fill"})
	want = "Professional VFX Edit. fix it." +
		" Ultra-high resolution 4K style, sharp details (Topaz Video AI Quality)." +
		" Clean, noise-free, restoration quality (DeNoise AI)." +
		" Professional color grading: teal (DaVinci Resolve Color)." +
		" Reconstructed details: fill (Adobe Sensei Fill)."
	if got != want {
		t.Errorf("EnhancePrompt() = %q, want %q", got, want)
	}
}

func TestIsCredentialError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("boom"), false},
		{errors.New("Requested entity was not found."), true},
		{errors.New("request failed with 404"), true},
		{fmt.Errorf("wrap: %w", &APIError{StatusCode: 403}), true},
		{&APIError{StatusCode: 400, Body: "Requested entity was not found"}, true},
		{&APIError{StatusCode: 500, Body: "internal"}, false},
		{fmt.Errorf("start: %w", ErrNoAPIKey), true},
	}
	for i, tt := range tests {
		if got := IsCredentialError(tt.err); got != tt.want {
			t.Errorf("%d: IsCredentialError(%v) = %v, want %v", i, tt.err, got, tt.want)
		}
	}
}

func TestKeyRing(t *testing.T) {
	k := NewKeyRing("")
	if k.HasAPIKeySelected() || k.Source() != "none" {
		t.Fatal("empty ring should have no key")
	}

	k = NewKeyRing("env")
	if k.Key() != "env" || k.Source() != "environment" {
		t.Fatalf("Key() = %q, Source() = %q", k.Key(), k.Source())
	}
	k.Select("picked")
	if k.Key() != "picked" || k.Source() != "selected" {
		t.Fatalf("Key() = %q, Source() = %q", k.Key(), k.Source())
	}
	k.Select("")
	if k.Key() != "env" {
		t.Fatalf("Key() after clear = %q", k.Key())
	}

	prompted := 0
	k.PromptAPIKeySelection()
	k.OnPrompt(func() { prompted++ })
	k.PromptAPIKeySelection()
	if prompted != 1 {
		t.Fatalf("prompted = %d, want 1", prompted)
	}
}
