package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/munzgen/munzgen-agent/internal/genai"
	"github.com/munzgen/munzgen-agent/internal/logging"
	"github.com/munzgen/munzgen-agent/internal/media"
	"github.com/munzgen/munzgen-agent/internal/project"
	"github.com/munzgen/munzgen-agent/internal/router"
)

// Generate validates r and queues it as a generation job. The current mask
// points are attached for the pro suite.
func (s *Studio) Generate(ctx context.Context, r router.Request) (*Job, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireKey(); err != nil {
		return nil, err
	}
	r.MaskPoints = s.session.MaskPoints()

	label := r.Prompt
	if r.Tool == router.ToolAnimationStudio {
		label = r.Character + " " + r.Motion
	}
	return s.runner.Submit(ctx, JobKindGenerate, logging.Truncate(label, 120), func(ctx context.Context, job *Job) (*taskResult, error) {
		return s.execute(ctx, func(status router.StatusFunc) (*router.Outcome, error) {
			return s.dispatcher.Generate(ctx, r, status)
		})
	})
}

// ApplyMaterial renders library material id into the current scene.
func (s *Studio) ApplyMaterial(ctx context.Context, id string) (*Job, error) {
	m, err := s.library.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireKey(); err != nil {
		return nil, err
	}
	return s.runner.Submit(ctx, JobKindMaterial, "Material: "+m.Name, func(ctx context.Context, job *Job) (*taskResult, error) {
		return s.execute(ctx, func(status router.StatusFunc) (*router.Outcome, error) {
			return s.dispatcher.ApplyMaterial(ctx, m.Name, m.Prompt, status)
		})
	})
}

// CancelGeneration aborts the running job.
func (s *Studio) CancelGeneration() bool {
	return s.runner.Cancel()
}

// requireKey prompts for a key when none is selected. The request is
// refused; the front end resubmits once a key has been picked.
func (s *Studio) requireKey() error {
	if s.keys == nil || s.keys.HasAPIKeySelected() {
		return nil
	}
	s.setStatus(StatusWaitingForKey)
	s.keys.PromptAPIKeySelection()
	return ErrKeyRequired
}

// execute runs one generation round-trip and applies its outcome to the
// session, mapping failures onto status lines.
func (s *Studio) execute(ctx context.Context, run func(router.StatusFunc) (*router.Outcome, error)) (*taskResult, error) {
	out, err := run(s.setStatus)
	if err != nil {
		s.reportFailure(ctx, err)
		return nil, err
	}

	if out.SwitchTool != "" {
		s.session.SetActiveTool(string(out.SwitchTool))
		return &taskResult{Label: out.Message}, nil
	}

	if out.Media == nil || len(out.Media.Data) == 0 {
		err := fmt.Errorf("generation returned no media")
		s.reportFailure(ctx, err)
		return nil, err
	}

	asset, err := s.storeResult(out.Plan, out.Media)
	if err != nil {
		s.reportFailure(ctx, err)
		return nil, err
	}

	s.flash(StatusComplete, flashLong)
	return &taskResult{Label: asset.Prompt, Engine: out.Plan.EngineLabel, ResultURL: asset.URL}, nil
}

// storeResult mints a local URL for the media and makes it the last
// generated asset, releasing the one it replaces.
func (s *Studio) storeResult(plan *router.Plan, m *genai.Media) (project.GeneratedAsset, error) {
	name := logging.Truncate(plan.Label, 80)
	blob, err := s.media.Put(name, m.MimeType, m.Data)
	if err != nil {
		return project.GeneratedAsset{}, fmt.Errorf("store result: %w", err)
	}

	asset, prev := s.session.SetGenerated(media.URL(blob.ID), plan.Result, plan.Label)
	if prev != nil {
		s.media.DeleteURL(prev.URL)
	}
	s.logger.Info("generation stored", "kind", string(plan.Kind), "bytes", blob.Size, "engine", plan.EngineLabel)
	return asset, nil
}

func (s *Studio) reportFailure(ctx context.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		s.setStatus(StatusCancelled)
	case genai.IsCredentialError(err):
		s.setStatus(StatusSessionExpired)
		if s.keys != nil {
			s.keys.PromptAPIKeySelection()
		}
	default:
		msg := err.Error()
		if strings.TrimSpace(msg) == "" {
			msg = "Generation failed"
		}
		s.setStatus("Error: " + msg)
	}
}
