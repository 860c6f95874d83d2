// Package studio is the application shell. It owns the editor session and
// wires the tool router, media store, material library, templates, bridge
// and key ring together behind one service that the API, tray and CLI drive.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/munzgen/munzgen-agent/internal/bridge"
	"github.com/munzgen/munzgen-agent/internal/genai"
	"github.com/munzgen/munzgen-agent/internal/library"
	"github.com/munzgen/munzgen-agent/internal/logging"
	"github.com/munzgen/munzgen-agent/internal/media"
	"github.com/munzgen/munzgen-agent/internal/project"
	"github.com/munzgen/munzgen-agent/internal/router"
	"github.com/munzgen/munzgen-agent/internal/templates"
)

// Status lines shown in the control panel.
const (
	StatusWaitingForKey  = "Waiting for API Key selection..."
	StatusComplete       = "Generation Complete!"
	StatusSessionExpired = "Session expired. Please re-select API Key."
	StatusTemplate       = "Template applied successfully."
	StatusCancelled      = "Generation cancelled."
)

const (
	flashShort = 2 * time.Second
	flashLong  = 3 * time.Second
)

// Event kinds published to front ends.
const (
	EventSnapshot     = "snapshot"
	EventJob          = "job"
	EventBridge       = "bridge"
	EventKeyRequired  = "key_selection_required"
	EventScript       = "script"
	EventMaterialAdds = "material_added"
)

var (
	ErrKeyRequired = errors.New("api key selection required")
	ErrEmptyIdea   = errors.New("story concept is required")
	ErrNoScript    = errors.New("no script to use")
)

// Publisher fans events out to connected front ends.
type Publisher interface {
	Publish(kind string, payload any)
}

// FrameGrabber pulls the first frame out of encoded video.
type FrameGrabber interface {
	FirstFrame(ctx context.Context, video []byte) (*genai.Media, error)
}

type Deps struct {
	Client    genai.Client
	Keys      *genai.KeyRing
	Media     *media.Store
	Frames    FrameGrabber
	Library   *library.Library
	Templates *templates.Catalog
	Bridge    *bridge.Bridge
	Jobs      JobRepository
	Publisher Publisher
	Logger    *slog.Logger
}

type Studio struct {
	session    *project.Session
	playhead   *project.Playhead
	dispatcher *router.Dispatcher
	runner     *Runner

	client    genai.Client
	keys      *genai.KeyRing
	media     *media.Store
	frames    FrameGrabber
	library   *library.Library
	templates *templates.Catalog
	bridge    *bridge.Bridge
	jobs      JobRepository
	events    Publisher
	logger    *slog.Logger

	flashMu    sync.Mutex
	flashTimer *time.Timer
	afterFunc  func(time.Duration, func()) *time.Timer

	scriptMu sync.Mutex
	script   string

	ctxMu  sync.Mutex
	runCtx context.Context
}

func New(d Deps) *Studio {
	s := &Studio{
		session:   project.NewSession(string(router.ToolSelect)),
		client:    d.Client,
		keys:      d.Keys,
		media:     d.Media,
		frames:    d.Frames,
		library:   d.Library,
		templates: d.Templates,
		bridge:    d.Bridge,
		jobs:      d.Jobs,
		events:    d.Publisher,
		logger:    logging.WithComponent(d.Logger, "studio"),
		afterFunc: time.AfterFunc,
		runCtx:    context.Background(),
	}
	s.playhead = project.NewPlayhead(s.session, d.Logger)
	s.dispatcher = router.NewDispatcher(d.Client, s, d.Logger)
	s.runner = NewRunner(d.Jobs, d.Logger)

	s.session.Subscribe(func() { s.publish(EventSnapshot, s.session.Snapshot()) })
	s.runner.OnUpdate(func(j *Job) { s.publish(EventJob, j) })
	if s.keys != nil {
		s.keys.OnPrompt(func() { s.publish(EventKeyRequired, map[string]string{"source": s.keys.Source()}) })
	}
	if s.bridge != nil {
		s.bridge.OnChange(func(st bridge.Status) { s.publish(EventBridge, st) })
	}
	return s
}

// Run drives the job runner and the bridge handshake until ctx is done.
func (s *Studio) Run(ctx context.Context) error {
	s.ctxMu.Lock()
	s.runCtx = ctx
	s.ctxMu.Unlock()

	if s.bridge != nil {
		s.bridge.Start(ctx)
	}
	s.runner.Start(ctx)
	s.playhead.Pause()
	return nil
}

func (s *Studio) Session() *project.Session { return s.session }
func (s *Studio) Runner() *Runner            { return s.runner }
func (s *Studio) Bridge() *bridge.Bridge     { return s.bridge }
func (s *Studio) Library() *library.Library  { return s.library }
func (s *Studio) Media() *media.Store        { return s.media }

func (s *Studio) Templates() []templates.Template {
	return s.templates.List()
}

func (s *Studio) publish(kind string, payload any) {
	if s.events != nil {
		s.events.Publish(kind, payload)
	}
}

// SetViewMode switches views. Leaving the editor stops playback.
func (s *Studio) SetViewMode(mode project.ViewMode) error {
	if err := s.session.SetViewMode(mode); err != nil {
		return err
	}
	if mode == project.ViewScript {
		s.playhead.Pause()
	}
	return nil
}

func (s *Studio) SetActiveTool(tool string) error {
	t, err := router.ParseTool(tool)
	if err != nil {
		return err
	}
	s.session.SetActiveTool(string(t))
	return nil
}

// lifetime is the context playback and jobs outlive requests on.
func (s *Studio) lifetime() context.Context {
	s.ctxMu.Lock()
	defer s.ctxMu.Unlock()
	return s.runCtx
}

// Play starts playback. It is ignored outside the editor view.
func (s *Studio) Play() bool {
	if s.session.ViewMode() != project.ViewEditor {
		return false
	}
	s.playhead.Play(s.lifetime())
	return true
}

func (s *Studio) Pause() { s.playhead.Pause() }

// TogglePlayback flips play/pause and reports whether it is now playing.
func (s *Studio) TogglePlayback() bool {
	if s.session.ViewMode() != project.ViewEditor && !s.playhead.IsPlaying() {
		return false
	}
	return s.playhead.Toggle(s.lifetime())
}

// Seek moves the playhead to t seconds, clamped to the timeline.
func (s *Studio) Seek(t float64) float64 {
	return s.session.Seek(t)
}

// setStatus replaces the status line and cancels any pending auto-clear.
func (s *Studio) setStatus(msg string) {
	s.flashMu.Lock()
	if s.flashTimer != nil {
		s.flashTimer.Stop()
		s.flashTimer = nil
	}
	s.flashMu.Unlock()
	s.session.SetStatus(msg)
}

// flash shows msg and clears it after d unless something replaced it.
func (s *Studio) flash(msg string, d time.Duration) {
	s.setStatus(msg)
	s.flashMu.Lock()
	s.flashTimer = s.afterFunc(d, func() {
		if s.session.Status() == msg {
			s.session.SetStatus("")
		}
	})
	s.flashMu.Unlock()
}

// ImportClip stores data and places it on trackID. Importing into an input
// track replaces and releases the previous upload.
func (s *Studio) ImportClip(trackID, name string, kind project.MediaKind, mimeType string, data []byte) (project.Clip, error) {
	if !kind.Valid() {
		return project.Clip{}, project.ErrInvalidKind
	}
	track, ok := s.session.Track(trackID)
	if !ok {
		return project.Clip{}, fmt.Errorf("%w: %s", project.ErrTrackNotFound, trackID)
	}

	blob, err := s.media.Put(name, mimeType, data)
	if err != nil {
		return project.Clip{}, fmt.Errorf("store %s: %w", name, err)
	}

	prev, hadPrev := s.session.InputClip(trackID)
	hadPrev = hadPrev && track.IsInput()
	clip, err := s.session.ImportClip(trackID, name, kind, media.URL(blob.ID))
	if err != nil {
		s.media.Delete(blob.ID)
		return project.Clip{}, err
	}
	if hadPrev {
		s.media.DeleteURL(prev.URL)
	}

	switch trackID {
	case project.InputVideoTrackID:
		s.flash("Imported "+name, flashShort)
	case project.InputAudioTrackID:
		s.flash("Imported Audio: "+name, flashShort)
	}
	s.logger.Info("clip imported", "track", trackID, "name", name, "bytes", blob.Size)
	return clip, nil
}

// ClearTrack empties a track and releases the uploads it held.
func (s *Studio) ClearTrack(trackID string) error {
	removed, err := s.session.ClearTrack(trackID)
	if err != nil {
		return err
	}
	for _, c := range removed {
		s.media.DeleteURL(c.URL)
	}
	return nil
}

// LoadTemplate swaps the editable tracks for template id.
func (s *Studio) LoadTemplate(id string) (templates.Template, error) {
	tpl, err := s.templates.Get(id)
	if err != nil {
		return templates.Template{}, err
	}

	before := s.session.Snapshot().Tracks
	s.session.LoadTemplate(tpl.Tracks)
	for _, t := range before {
		if t.IsInput() {
			continue
		}
		for _, c := range t.Clips {
			s.media.DeleteURL(c.URL)
		}
	}

	s.flash(StatusTemplate, flashShort)
	return tpl, nil
}

// CaptureInputFrame returns the first frame of the input video clip, or nil
// when there is none or it cannot be decoded in time.
func (s *Studio) CaptureInputFrame(ctx context.Context) *genai.Media {
	clip, ok := s.session.InputClip(project.InputVideoTrackID)
	if !ok || clip.Kind != project.MediaVideo || s.frames == nil {
		return nil
	}
	blob, err := s.media.GetURL(clip.URL)
	if err != nil {
		s.logger.Warn("input clip has no stored media", "url", clip.URL, "error", err)
		return nil
	}
	frame, err := s.frames.FirstFrame(ctx, blob.Bytes())
	if err != nil {
		s.logger.Warn("frame capture failed, generating without reference", "error", err)
		return nil
	}
	return frame
}

// ConnectBridge runs the handshake on the studio lifetime so it outlives
// the request that started it. ok is false when no bridge is configured.
func (s *Studio) ConnectBridge() (st bridge.Status, ok bool) {
	if s.bridge == nil {
		return bridge.Status{}, false
	}
	return s.bridge.Connect(s.lifetime()), true
}

func (s *Studio) DisconnectBridge() (bridge.Status, bool) {
	if s.bridge == nil {
		return bridge.Status{}, false
	}
	return s.bridge.Disconnect(), true
}

func (s *Studio) ToggleBridge() (bridge.Status, bool) {
	if s.bridge == nil {
		return bridge.Status{}, false
	}
	return s.bridge.Toggle(s.lifetime()), true
}

func (s *Studio) RefreshBridge() (bridge.Status, bool) {
	if s.bridge == nil {
		return bridge.Status{}, false
	}
	return s.bridge.Refresh(s.lifetime()), true
}

func (s *Studio) HasAPIKey() bool {
	return s.keys == nil || s.keys.HasAPIKeySelected()
}

// PromptKeySelection asks front ends to pick an API key.
func (s *Studio) PromptKeySelection() {
	if s.keys != nil {
		s.keys.PromptAPIKeySelection()
	}
}

func (s *Studio) Jobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.jobs.ListJobs(ctx, limit)
}

func (s *Studio) Job(ctx context.Context, id string) (*Job, error) {
	return s.jobs.GetJob(ctx, id)
}

// AddMaterial stores an imported asset's preview and adds it to the library.
func (s *Studio) AddMaterial(ctx context.Context, in library.AddInput, mimeType string, data []byte) (library.Material, error) {
	var blobID string
	if len(data) > 0 && in.Thumbnail == "" {
		_, kind, _ := library.Infer(in.FileName)
		if in.Kind != "" {
			kind = in.Kind
		}
		if kind != library.KindObject {
			blob, err := s.media.Put(in.FileName, mimeType, data)
			if err != nil {
				return library.Material{}, fmt.Errorf("store preview: %w", err)
			}
			blobID = blob.ID
			in.Thumbnail = media.URL(blob.ID)
		}
	}

	m, err := s.library.Add(ctx, in)
	if err != nil {
		if blobID != "" {
			s.media.Delete(blobID)
		}
		return library.Material{}, err
	}
	s.publish(EventMaterialAdds, m)
	return m, nil
}
