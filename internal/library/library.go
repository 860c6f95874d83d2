// Package library is the material library: stock textures, effects and 3D
// objects plus the ones imported during the session. Each material carries
// the prompt text that stands in for it when applied to a scene.
package library

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/munzgen/munzgen-agent/internal/logging"
)

type Kind string

const (
	KindTexture Kind = "texture"
	KindVFX     Kind = "vfx"
	KindObject  Kind = "object"
)

func (k Kind) Valid() bool {
	return k == KindTexture || k == KindVFX || k == KindObject
}

// TabAll matches every kind.
const TabAll = "all"

// Placeholder marks a material without a visual preview.
const Placeholder = "placeholder"

var (
	ErrNotFound     = errors.New("material not found")
	ErrInvalidTab   = errors.New("invalid material tab")
	ErrInvalidInput = errors.New("material needs a name and a prompt")
)

var objectExts = []string{".glb", ".obj", ".fbx"}

//go:embed stock.yaml
var stockYAML []byte

type Material struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Kind      Kind      `json:"type" yaml:"type"`
	Thumbnail string    `json:"thumbnail" yaml:"thumbnail"`
	Prompt    string    `json:"prompt_equivalent" yaml:"prompt"`
	FileName  string    `json:"file_name,omitempty" yaml:"-"`
	UserAdded bool      `json:"user_added" yaml:"-"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// AddInput describes an imported asset. Empty fields are derived from FileName.
type AddInput struct {
	FileName  string `json:"file_name"`
	Name      string `json:"name"`
	Kind      Kind   `json:"type"`
	Prompt    string `json:"prompt_equivalent"`
	Thumbnail string `json:"thumbnail"`
}

// Infer derives the display name, kind and prompt of an imported file.
// 3D model files become objects; anything else is treated as a texture.
func Infer(fileName string) (string, Kind, string) {
	base := filepath.Base(fileName)
	name, _, _ := strings.Cut(base, ".")
	lower := strings.ToLower(base)
	if lo.SomeBy(objectExts, func(ext string) bool { return strings.HasSuffix(lower, ext) }) {
		return name, KindObject, "3D Model of " + name
	}
	return name, KindTexture, "Texture of " + name
}

type Library struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// New opens the library over db and seeds the stock assets on first use.
func New(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Library, error) {
	l := &Library{db: db, logger: logging.WithComponent(logger, "library"), now: time.Now}
	if err := l.seed(ctx); err != nil {
		return nil, fmt.Errorf("seed materials: %w", err)
	}
	return l, nil
}

func (l *Library) seed(ctx context.Context) error {
	var count int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM materials WHERE user_added = 0").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var stock []Material
	if err := yaml.Unmarshal(stockYAML, &stock); err != nil {
		return fmt.Errorf("parse stock catalog: %w", err)
	}
	for _, m := range stock {
		m.CreatedAt = l.now()
		if err := l.insert(ctx, m); err != nil {
			return fmt.Errorf("insert %s: %w", m.Name, err)
		}
	}
	l.logger.Debug("seeded stock materials", "count", len(stock))
	return nil
}

func (l *Library) insert(ctx context.Context, m Material) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO materials (id, name, type, thumbnail, prompt, file_name, user_added, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, string(m.Kind), m.Thumbnail, m.Prompt, m.FileName, boolToInt(m.UserAdded), m.CreatedAt.Format(time.RFC3339))
	return err
}

// List returns the materials matching tab and a case-insensitive name
// substring. Imported materials come first, newest first.
func (l *Library) List(ctx context.Context, tab, query string) ([]Material, error) {
	if tab == "" {
		tab = TabAll
	}
	if tab != TabAll && !Kind(tab).Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTab, tab)
	}

	all, err := l.all(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	return lo.Filter(all, func(m Material, _ int) bool {
		matchesTab := tab == TabAll || string(m.Kind) == tab
		return matchesTab && strings.Contains(strings.ToLower(m.Name), q)
	}), nil
}

func (l *Library) all(ctx context.Context) ([]Material, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, type, thumbnail, prompt, file_name, user_added, created_at
		FROM materials
		ORDER BY user_added DESC, CASE WHEN user_added = 1 THEN -seq ELSE seq END
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	materials := []Material{}
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, *m)
	}
	return materials, rows.Err()
}

func (l *Library) Get(ctx context.Context, id string) (Material, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, name, type, thumbnail, prompt, file_name, user_added, created_at
		FROM materials WHERE id = ?
	`, id)
	m, err := scanMaterial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Material{}, ErrNotFound
	}
	if err != nil {
		return Material{}, err
	}
	return *m, nil
}

// Add stores an imported material. Name, kind and prompt default to what
// Infer derives from the file name.
func (l *Library) Add(ctx context.Context, in AddInput) (Material, error) {
	name, kind, prompt := Infer(in.FileName)
	if in.FileName == "" {
		name, kind, prompt = "", KindTexture, ""
	}
	if s := strings.TrimSpace(in.Name); s != "" {
		name = s
	}
	if in.Kind != "" {
		if !in.Kind.Valid() {
			return Material{}, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, in.Kind)
		}
		kind = in.Kind
	}
	if s := strings.TrimSpace(in.Prompt); s != "" {
		prompt = s
	}
	if name == "" || prompt == "" {
		return Material{}, ErrInvalidInput
	}

	thumb := in.Thumbnail
	if thumb == "" || kind == KindObject {
		thumb = Placeholder
	}

	m := Material{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		Thumbnail: thumb,
		Prompt:    prompt,
		FileName:  in.FileName,
		UserAdded: true,
		CreatedAt: l.now(),
	}
	if err := l.insert(ctx, m); err != nil {
		return Material{}, fmt.Errorf("insert material: %w", err)
	}
	l.logger.Info("material added", "id", m.ID, "name", m.Name, "type", m.Kind)
	return m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMaterial(s scanner) (*Material, error) {
	var m Material
	var kind, createdAt string
	var userAdded int
	if err := s.Scan(&m.ID, &m.Name, &kind, &m.Thumbnail, &m.Prompt, &m.FileName, &userAdded, &createdAt); err != nil {
		return nil, err
	}
	m.Kind = Kind(kind)
	m.UserAdded = userAdded == 1
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
