package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/munzgen/munzgen-agent/internal/project"
	"github.com/munzgen/munzgen-agent/internal/router"
)

// GenerateScript writes a screenplay scene for idea and keeps it as the
// current script.
func (s *Studio) GenerateScript(ctx context.Context, idea string) (string, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return "", ErrEmptyIdea
	}

	text, err := s.client.GenerateScript(ctx, idea)
	if err != nil {
		s.logger.Error("script generation failed", "error", err)
		return "", fmt.Errorf("failed to generate script: %w", err)
	}

	s.scriptMu.Lock()
	s.script = text
	s.scriptMu.Unlock()
	s.publish(EventScript, map[string]string{"script": text})
	return text, nil
}

// Script returns the last generated screenplay.
func (s *Studio) Script() string {
	s.scriptMu.Lock()
	defer s.scriptMu.Unlock()
	return s.script
}

// UseScript returns to the editor with Magic VFX selected and text as the
// prompt draft. An empty text uses the last generated script.
func (s *Studio) UseScript(text string) error {
	if strings.TrimSpace(text) == "" {
		text = s.Script()
	}
	if strings.TrimSpace(text) == "" {
		return ErrNoScript
	}
	if err := s.SetViewMode(project.ViewEditor); err != nil {
		return err
	}
	s.session.SetActiveTool(string(router.ToolMagicVFX))
	s.session.SetPromptDraft(text)
	return nil
}
