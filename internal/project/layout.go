package project

import (
	"fmt"
	"math"
)

type Panel string

const (
	PanelTimeline Panel = "timeline"
	PanelControl  Panel = "control"
	PanelScript   Panel = "script"
)

func ParsePanel(s string) (Panel, error) {
	switch Panel(s) {
	case PanelTimeline, PanelControl, PanelScript:
		return Panel(s), nil
	}
	return "", fmt.Errorf("unknown panel %q", s)
}

const (
	timelineMargin = 100.0

	controlMin = 200.0
	controlMax = 800.0
	scriptMin  = 200.0
	scriptMax  = 1000.0

	// Collapsed sizes used while a panel is minimized.
	minimizedTimeline = 36.0
	minimizedSide     = 40.0
)

// Layout holds the sizes of the three resizable regions. Purely presentational.
type Layout struct {
	TimelineHeight    float64        `json:"timeline_height"`
	ControlPanelWidth float64        `json:"control_panel_width"`
	ScriptPanelWidth  float64        `json:"script_panel_width"`
	Minimized         map[Panel]bool `json:"minimized"`
	Resizing          Panel          `json:"resizing,omitempty"`
}

func DefaultLayout() Layout {
	return Layout{
		TimelineHeight:    256,
		ControlPanelWidth: 320,
		ScriptPanelWidth:  384,
		Minimized: map[Panel]bool{
			PanelTimeline: false,
			PanelControl:  false,
			PanelScript:   false,
		},
	}
}

// EffectiveSize is the rendered size of a panel, honoring the minimized flag.
func (l Layout) EffectiveSize(p Panel) float64 {
	switch p {
	case PanelTimeline:
		if l.Minimized[p] {
			return minimizedTimeline
		}
		return l.TimelineHeight
	case PanelControl:
		if l.Minimized[p] {
			return minimizedSide
		}
		return l.ControlPanelWidth
	case PanelScript:
		if l.Minimized[p] {
			return minimizedSide
		}
		return l.ScriptPanelWidth
	}
	return 0
}

func (l Layout) clone() Layout {
	c := l
	c.Minimized = make(map[Panel]bool, len(l.Minimized))
	for k, v := range l.Minimized {
		c.Minimized[k] = v
	}
	return c
}

// Bounds returns the [min, max] range a panel dimension is clamped to for the
// given window size.
func Bounds(p Panel, windowW, windowH float64) (float64, float64) {
	switch p {
	case PanelTimeline:
		hi := windowH - timelineMargin
		if hi < timelineMargin {
			hi = timelineMargin
		}
		return timelineMargin, hi
	case PanelControl:
		return controlMin, controlMax
	case PanelScript:
		return scriptMin, scriptMax
	}
	return 0, 0
}

// dragSize converts a pointer position to the dragged panel's new dimension:
// the timeline grows upward from the bottom edge, the control panel leftward
// from the right edge and the script panel rightward from the left edge.
func dragSize(p Panel, x, y, windowW, windowH float64) float64 {
	var v float64
	switch p {
	case PanelTimeline:
		v = windowH - y
	case PanelControl:
		v = windowW - x
	case PanelScript:
		v = x
	}
	lo, hi := Bounds(p, windowW, windowH)
	return clamp(v, lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
