// Package project holds the editor session: tracks and clips, masking, the
// last generated asset, the playhead position and panel layout. All state is
// in memory and lost when the agent exits.
package project

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrTrackNotFound  = errors.New("track not found")
	ErrInvalidKind    = errors.New("invalid media kind")
	ErrPanelMinimized = errors.New("panel is minimized")
	ErrNotResizing    = errors.New("no resize in progress")
)

// Snapshot is a copy of the session state safe to hand to other goroutines.
type Snapshot struct {
	ViewMode      ViewMode        `json:"view_mode"`
	ActiveTool    string          `json:"active_tool"`
	PromptDraft   string          `json:"prompt_draft,omitempty"`
	CurrentTime   float64         `json:"current_time"`
	Duration      float64         `json:"duration"`
	Playing       bool            `json:"playing"`
	Tracks        []Track         `json:"tracks"`
	MaskingMode   MaskMode        `json:"masking_mode"`
	MaskPoints    []MaskPoint     `json:"mask_points"`
	LastGenerated *GeneratedAsset `json:"last_generated,omitempty"`
	Layout        Layout          `json:"layout"`
	Status        string          `json:"status,omitempty"`
}

// Session is the mutable project state. Every mutation notifies subscribers
// after the lock is released.
type Session struct {
	mu sync.RWMutex

	viewMode    ViewMode
	activeTool  string
	promptDraft string
	currentTime float64
	playing     bool
	tracks      []Track
	maskingMode MaskMode
	maskPoints  []MaskPoint
	generated   *GeneratedAsset
	layout      Layout
	status      string

	subMu       sync.Mutex
	subscribers map[int]func()
	nextSub     int

	now func() time.Time
}

func NewSession(defaultTool string) *Session {
	return &Session{
		viewMode:    ViewEditor,
		activeTool:  defaultTool,
		tracks:      SeedTracks(),
		maskPoints:  []MaskPoint{},
		layout:      DefaultLayout(),
		subscribers: make(map[int]func()),
		now:         time.Now,
	}
}

// Subscribe registers fn to run after each change. The returned func removes it.
func (s *Session) Subscribe(fn func()) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Session) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracks := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		tracks[i] = t.clone()
	}

	snap := Snapshot{
		ViewMode:    s.viewMode,
		ActiveTool:  s.activeTool,
		PromptDraft: s.promptDraft,
		CurrentTime: s.currentTime,
		Duration:    Duration,
		Playing:     s.playing,
		Tracks:      tracks,
		MaskingMode: s.maskingMode,
		MaskPoints:  append([]MaskPoint{}, s.maskPoints...),
		Layout:      s.layout.clone(),
		Status:      s.status,
	}
	if s.generated != nil {
		g := *s.generated
		snap.LastGenerated = &g
	}
	return snap
}

func (s *Session) ViewMode() ViewMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewMode
}

func (s *Session) SetViewMode(mode ViewMode) error {
	if mode != ViewEditor && mode != ViewScript {
		return fmt.Errorf("unknown view mode %q", mode)
	}
	s.mu.Lock()
	s.viewMode = mode
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Session) ActiveTool() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTool
}

// SetActiveTool stores the tool id. Validation of the id belongs to the router.
func (s *Session) SetActiveTool(tool string) {
	s.mu.Lock()
	s.activeTool = tool
	s.mu.Unlock()
	s.notify()
}

func (s *Session) SetPromptDraft(text string) {
	s.mu.Lock()
	s.promptDraft = text
	s.mu.Unlock()
	s.notify()
}

// SetStatus stores the status line shown to the user.
func (s *Session) SetStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// ImportClip adds a clip to a track. Input tracks hold a single clip so the
// import replaces their contents; any other track gets the clip appended.
func (s *Session) ImportClip(trackID, name string, kind MediaKind, url string) (Clip, error) {
	if !kind.Valid() {
		return Clip{}, ErrInvalidKind
	}

	clip := Clip{
		ID:       "clip_" + NewID(),
		Name:     name,
		Kind:     kind,
		Start:    0,
		Duration: DefaultImportDuration,
		TrackID:  trackID,
		URL:      url,
	}
	if kind == MediaVideo {
		clip.Thumbnail = importThumbnail
	}

	s.mu.Lock()
	idx := s.trackIndex(trackID)
	if idx < 0 {
		s.mu.Unlock()
		return Clip{}, fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	t := &s.tracks[idx]
	if t.IsInput() {
		t.Clips = []Clip{clip}
	} else {
		t.Clips = append(t.Clips, clip)
	}
	s.mu.Unlock()

	s.notify()
	return clip, nil
}

// ClearTrack removes every clip from a track and returns the removed clips.
func (s *Session) ClearTrack(trackID string) ([]Clip, error) {
	s.mu.Lock()
	idx := s.trackIndex(trackID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	removed := s.tracks[idx].Clips
	s.tracks[idx].Clips = []Clip{}
	s.mu.Unlock()

	s.notify()
	return removed, nil
}

// LoadTemplate swaps the editable tracks for a template layout. The two input
// tracks survive so imports keep working after a template switch.
func (s *Session) LoadTemplate(tracks []Track) {
	s.mu.Lock()
	next := make([]Track, 0, len(tracks)+2)
	for _, t := range s.tracks {
		if t.IsInput() {
			next = append(next, t)
		}
	}
	for _, t := range tracks {
		if t.IsInput() {
			continue
		}
		c := t.clone()
		if c.Clips == nil {
			c.Clips = []Clip{}
		}
		next = append(next, c)
	}
	s.tracks = next
	s.mu.Unlock()

	s.notify()
}

func (s *Session) Track(trackID string) (Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.trackIndex(trackID)
	if idx < 0 {
		return Track{}, false
	}
	return s.tracks[idx].clone(), true
}

// InputClip returns the clip held by an input track, if any.
func (s *Session) InputClip(trackID string) (Clip, bool) {
	t, ok := s.Track(trackID)
	if !ok || len(t.Clips) == 0 {
		return Clip{}, false
	}
	return t.Clips[0], true
}

func (s *Session) trackIndex(id string) int {
	for i := range s.tracks {
		if s.tracks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) MaskingMode() MaskMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maskingMode
}

func (s *Session) SetMaskingMode(mode MaskMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown masking mode %q", mode)
	}
	s.mu.Lock()
	s.maskingMode = mode
	s.mu.Unlock()
	s.notify()
	return nil
}

// AddMaskPoint records a click on the preview surface. Without an active
// masking mode it does nothing and returns false.
func (s *Session) AddMaskPoint(x, y float64) (MaskPoint, bool) {
	s.mu.Lock()
	if s.maskingMode == MaskNone {
		s.mu.Unlock()
		return MaskPoint{}, false
	}
	p := MaskPoint{
		ID:   NewID(),
		X:    clamp(x, 0, 1),
		Y:    clamp(y, 0, 1),
		Mode: s.maskingMode,
	}
	s.maskPoints = append(s.maskPoints, p)
	s.mu.Unlock()

	s.notify()
	return p, true
}

func (s *Session) MaskPoints() []MaskPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]MaskPoint{}, s.maskPoints...)
}

func (s *Session) ClearMaskPoints() {
	s.mu.Lock()
	s.maskPoints = []MaskPoint{}
	s.mu.Unlock()
	s.notify()
}

// SetGenerated replaces the last generated asset and returns the previous one.
func (s *Session) SetGenerated(url string, kind MediaKind, prompt string) (GeneratedAsset, *GeneratedAsset) {
	asset := GeneratedAsset{
		ID:        NewID(),
		URL:       url,
		Kind:      kind,
		Prompt:    prompt,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	prev := s.generated
	s.generated = &asset
	s.mu.Unlock()

	s.notify()
	return asset, prev
}

func (s *Session) Generated() (GeneratedAsset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generated == nil {
		return GeneratedAsset{}, false
	}
	return *s.generated, true
}

func (s *Session) CurrentTime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTime
}

// Seek moves the playhead, clamped to the timeline.
func (s *Session) Seek(t float64) float64 {
	t = clamp(t, 0, Duration)
	s.mu.Lock()
	s.currentTime = t
	s.mu.Unlock()
	s.notify()
	return t
}

// SeekFraction seeks to a proportional position along the timeline, as a
// click on the ruler does.
func (s *Session) SeekFraction(f float64) float64 {
	return s.Seek(clamp(f, 0, 1) * Duration)
}

func (s *Session) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

func (s *Session) setPlaying(v bool) {
	s.mu.Lock()
	s.playing = v
	s.mu.Unlock()
	s.notify()
}

// advance moves the playhead one step. At the ceiling it rewinds to zero and
// reports that playback should stop.
func (s *Session) advance(step, ceiling float64) (stopped bool) {
	s.mu.Lock()
	if s.currentTime >= ceiling {
		s.currentTime = 0
		s.playing = false
		stopped = true
	} else {
		s.currentTime += step
	}
	s.mu.Unlock()
	s.notify()
	return stopped
}

// MainTrack is the first non-input track; the viewport follows its clips.
func (s *Session) MainTrack() (Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tracks {
		if !t.IsInput() {
			return t.clone(), true
		}
	}
	return Track{}, false
}

// ActiveClip returns the clip on the main track under time t. Overlapping
// clips resolve to the earliest one in track order.
func (s *Session) ActiveClip(t float64) (Clip, bool) {
	track, ok := s.MainTrack()
	if !ok {
		return Clip{}, false
	}
	for _, c := range track.Clips {
		if c.Covers(t) {
			return c, true
		}
	}
	return Clip{}, false
}

func (s *Session) Layout() Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout.clone()
}

// BeginResize starts a pointer drag on a panel's handle.
func (s *Session) BeginResize(p Panel) error {
	s.mu.Lock()
	if s.layout.Minimized[p] {
		s.mu.Unlock()
		return ErrPanelMinimized
	}
	s.layout.Resizing = p
	s.mu.Unlock()
	s.notify()
	return nil
}

// DragTo applies a pointer position to the panel being resized and returns
// its new clamped size.
func (s *Session) DragTo(x, y, windowW, windowH float64) (float64, error) {
	s.mu.Lock()
	p := s.layout.Resizing
	if p == "" {
		s.mu.Unlock()
		return 0, ErrNotResizing
	}
	size := dragSize(p, x, y, windowW, windowH)
	switch p {
	case PanelTimeline:
		s.layout.TimelineHeight = size
	case PanelControl:
		s.layout.ControlPanelWidth = size
	case PanelScript:
		s.layout.ScriptPanelWidth = size
	}
	s.mu.Unlock()

	s.notify()
	return size, nil
}

// EndResize releases the pointer. Calling it without a drag is harmless.
func (s *Session) EndResize() {
	s.mu.Lock()
	s.layout.Resizing = ""
	s.mu.Unlock()
	s.notify()
}

func (s *Session) ToggleMinimize(p Panel) bool {
	s.mu.Lock()
	s.layout.Minimized[p] = !s.layout.Minimized[p]
	v := s.layout.Minimized[p]
	if v && s.layout.Resizing == p {
		s.layout.Resizing = ""
	}
	s.mu.Unlock()
	s.notify()
	return v
}
