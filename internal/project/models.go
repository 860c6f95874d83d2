package project

import (
	"time"

	"github.com/google/uuid"
)

type ViewMode string

const (
	ViewEditor ViewMode = "EDITOR"
	ViewScript ViewMode = "SCRIPT"
)

type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaVideo, MediaImage, MediaAudio:
		return true
	}
	return false
}

// MaskMode is the active masking mode. The zero value means masking is off.
type MaskMode string

const (
	MaskNone    MaskMode = ""
	MaskInclude MaskMode = "include"
	MaskExclude MaskMode = "exclude"
)

func (m MaskMode) Valid() bool {
	return m == MaskNone || m == MaskInclude || m == MaskExclude
}

const (
	InputVideoTrackID = "t_input_v"
	InputAudioTrackID = "t_input_a"

	// DefaultImportDuration is the placeholder length of an imported clip in seconds.
	DefaultImportDuration = 10.0
	// Duration is the fixed timeline length in seconds.
	Duration = 30.0

	importThumbnail = "https://picsum.photos/200/100?grayscale"
)

type Clip struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      MediaKind `json:"type"`
	Start     float64   `json:"start"`
	Duration  float64   `json:"duration"`
	TrackID   string    `json:"track_id"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	URL       string    `json:"url,omitempty"`
}

// End is the exclusive end of the clip interval.
func (c Clip) End() float64 {
	return c.Start + c.Duration
}

// Covers reports whether t falls in [Start, End).
func (c Clip) Covers(t float64) bool {
	return t >= c.Start && t < c.End()
}

type Track struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Locked  bool   `json:"locked" yaml:"locked"`
	Visible bool   `json:"visible" yaml:"visible"`
	Clips   []Clip `json:"clips" yaml:"-"`
}

// IsInput reports whether the track is one of the single-slot input tracks.
func (t Track) IsInput() bool {
	return t.ID == InputVideoTrackID || t.ID == InputAudioTrackID
}

func (t Track) clone() Track {
	c := t
	c.Clips = append([]Clip(nil), t.Clips...)
	return c
}

type MaskPoint struct {
	ID   string   `json:"id"`
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	Mode MaskMode `json:"type"`
}

// GeneratedAsset is the most recent generation output. It is replaced wholesale.
type GeneratedAsset struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      MediaKind `json:"type"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

func NewID() string {
	return uuid.NewString()
}

// SeedTracks returns the start-of-session track layout.
func SeedTracks() []Track {
	return []Track{
		{ID: InputVideoTrackID, Name: "Input Video", Visible: true, Clips: []Clip{}},
		{ID: InputAudioTrackID, Name: "Input Audio", Visible: true, Clips: []Clip{}},
		{
			ID: "t1", Name: "Main Video", Visible: true,
			Clips: []Clip{
				{ID: "c1", Name: "Desert Scene", Kind: MediaVideo, Start: 0, Duration: 5, TrackID: "t1", Thumbnail: "https://picsum.photos/200/100?random=1"},
				{ID: "c2", Name: "Cyber City", Kind: MediaVideo, Start: 6, Duration: 4, TrackID: "t1", Thumbnail: "https://picsum.photos/200/100?random=2"},
			},
		},
		{
			ID: "t2", Name: "VFX Layer", Visible: true,
			Clips: []Clip{
				{ID: "c3", Name: "Explosion", Kind: MediaImage, Start: 3, Duration: 2, TrackID: "t2", Thumbnail: "https://picsum.photos/200/100?random=3"},
			},
		},
	}
}
