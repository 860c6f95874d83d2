// Package settings backs the settings panel: the local model catalog, the
// API key used for generation, and host-aware optimization advice.
package settings

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/munzgen/munzgen-agent/internal/logging"
)

var ErrUnknownProvider = errors.New("unknown service provider")

//go:embed models.yaml
var modelsYAML []byte

const (
	keyProvider     = "api_provider"
	keyAutoUnload   = "opt_auto_unload"
	keyAggressiveGC = "opt_aggressive_gc"
)

var Providers = []string{
	"Custom / Generic OpenAI Compatible",
	"Hugging Face Inference",
	"Stability AI Cloud",
}

var APIFeatures = []string{
	"Cloud Rendering",
	"Premium Models (Gen-3, etc.)",
	"Auto-VFX Suite",
}

type Model struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Size        string `json:"size" yaml:"size"`
	Format      string `json:"format" yaml:"format"`
	Recommended bool   `json:"recommended" yaml:"recommended"`
}

type Category struct {
	Category string  `json:"category" yaml:"category"`
	Items    []Model `json:"items" yaml:"items"`
}

// ConfigStore persists small settings values (the sqlite config table).
type ConfigStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// KeySelector is the writable side of the generation key ring.
type KeySelector interface {
	Select(key string)
	Source() string
	Key() string
}

type APIStatus struct {
	Provider  string   `json:"provider"`
	Providers []string `json:"providers"`
	HasKey    bool     `json:"has_key"`
	KeySource string   `json:"key_source"`
	KeyHint   string   `json:"key_hint,omitempty"`
	Features  []string `json:"features"`
}

type Recommendation struct {
	Quantize     bool   `json:"quantize"`
	ComfyArgs    string `json:"comfyui_args"`
	VAETiling    bool   `json:"vae_tiling"`
	Quantization string `json:"quantization"`
}

// Recommend advises quantized models on hosts below QuantizeBelow bytes.
func Recommend(memoryTotal uint64) Recommendation {
	if memoryTotal < QuantizeBelow {
		return Recommendation{
			Quantize:     true,
			ComfyArgs:    "--lowvram --fp8_e4m3fn",
			VAETiling:    true,
			Quantization: "Q4_K_M / Q8_0",
		}
	}
	return Recommendation{Quantization: "FP16"}
}

type FFmpegStatus struct {
	Path      string `json:"path,omitempty"`
	Available bool   `json:"available"`
}

type Optimization struct {
	Host           *HostInfo      `json:"host,omitempty"`
	HostError      string         `json:"host_error,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
	AutoUnload     bool           `json:"auto_unload"`
	AggressiveGC   bool           `json:"aggressive_gc"`
	FFmpeg         FFmpegStatus   `json:"ffmpeg"`
}

// Toggles carries the memory-management switches; nil leaves a switch as is.
type Toggles struct {
	AutoUnload   *bool `json:"auto_unload"`
	AggressiveGC *bool `json:"aggressive_gc"`
}

type Service struct {
	store  ConfigStore
	keys   KeySelector
	host   *CachedProbe
	ffmpeg func() (string, bool)
	models []Category
	logger *slog.Logger
}

func New(store ConfigStore, keys KeySelector, host *CachedProbe, ffmpeg func() (string, bool), logger *slog.Logger) (*Service, error) {
	var models []Category
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	return &Service{
		store:  store,
		keys:   keys,
		host:   host,
		ffmpeg: ffmpeg,
		models: models,
		logger: logging.WithComponent(logger, "settings"),
	}, nil
}

func (s *Service) Models() []Category {
	out := make([]Category, len(s.models))
	for i, c := range s.models {
		out[i] = Category{Category: c.Category, Items: slices.Clone(c.Items)}
	}
	return out
}

func (s *Service) API(ctx context.Context) (APIStatus, error) {
	provider, err := s.store.GetConfig(ctx, keyProvider)
	if err != nil {
		return APIStatus{}, fmt.Errorf("read provider: %w", err)
	}
	if provider == "" {
		provider = Providers[0]
	}

	st := APIStatus{
		Provider:  provider,
		Providers: slices.Clone(Providers),
		HasKey:    s.keys.Key() != "",
		KeySource: s.keys.Source(),
		Features:  slices.Clone(APIFeatures),
	}
	if st.HasKey {
		st.KeyHint = logging.SanitizeToken(s.keys.Key())
	}
	return st, nil
}

// SaveAPIKey selects key for generation requests. The key lives only in
// memory; the provider choice is persisted. An empty key clears the
// selection and falls back to the environment key.
func (s *Service) SaveAPIKey(ctx context.Context, provider, key string) (APIStatus, error) {
	if provider != "" {
		if !slices.Contains(Providers, provider) {
			return APIStatus{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
		}
		if err := s.store.SetConfig(ctx, keyProvider, provider); err != nil {
			return APIStatus{}, fmt.Errorf("save provider: %w", err)
		}
	}

	s.keys.Select(strings.TrimSpace(key))
	s.logger.Info("api key updated", "source", s.keys.Source(), "key", logging.SanitizeToken(key))
	return s.API(ctx)
}

func (s *Service) Optimization(ctx context.Context) (Optimization, error) {
	var opt Optimization

	if s.host != nil {
		info, err := s.host.Get(ctx)
		if err != nil {
			opt.HostError = err.Error()
		} else {
			opt.Host = info
			opt.Recommendation = Recommend(info.MemoryTotal)
		}
	}
	if opt.Host == nil {
		opt.Recommendation = Recommend(0)
	}

	var err error
	if opt.AutoUnload, err = s.flag(ctx, keyAutoUnload, true); err != nil {
		return Optimization{}, err
	}
	if opt.AggressiveGC, err = s.flag(ctx, keyAggressiveGC, false); err != nil {
		return Optimization{}, err
	}

	if s.ffmpeg != nil {
		opt.FFmpeg.Path, opt.FFmpeg.Available = s.ffmpeg()
	}
	return opt, nil
}

func (s *Service) SetToggles(ctx context.Context, t Toggles) (Optimization, error) {
	if t.AutoUnload != nil {
		if err := s.store.SetConfig(ctx, keyAutoUnload, strconv.FormatBool(*t.AutoUnload)); err != nil {
			return Optimization{}, fmt.Errorf("save auto unload: %w", err)
		}
	}
	if t.AggressiveGC != nil {
		if err := s.store.SetConfig(ctx, keyAggressiveGC, strconv.FormatBool(*t.AggressiveGC)); err != nil {
			return Optimization{}, fmt.Errorf("save aggressive gc: %w", err)
		}
	}
	return s.Optimization(ctx)
}

func (s *Service) flag(ctx context.Context, key string, def bool) (bool, error) {
	v, err := s.store.GetConfig(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, nil
	}
	return b, nil
}
