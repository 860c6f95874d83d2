// Package export renders the timeline as a CMX3600 edit decision list so a
// cut can be finished in a conventional editor.
package export

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/munzgen/munzgen-agent/internal/project"
)

const (
	DefaultFrameRate = 30.0
	reelNameLen      = 8
)

type Options struct {
	ProjectName  string  `json:"project_name"`
	FrameRate    float64 `json:"frame_rate"`
	IncludeInput bool    `json:"include_input"`
}

// Event is one timeline clip placed at its record position.
type Event struct {
	ClipName    string
	Reel        string
	Channel     string
	Source      string
	TrackName   string
	SourceInMs  int
	SourceOutMs int
	RecordInMs  int
}

func (e Event) RecordOutMs() int {
	return e.RecordInMs + e.SourceOutMs - e.SourceInMs
}

// Events flattens tracks into record-ordered events. Input tracks are
// skipped unless includeInput is set. Ties keep track order.
func Events(tracks []project.Track, includeInput bool) []Event {
	var events []Event
	for _, tr := range tracks {
		if tr.IsInput() && !includeInput {
			continue
		}
		for _, c := range tr.Clips {
			if c.Duration <= 0 {
				continue
			}
			channel := "V"
			if c.Kind == project.MediaAudio {
				channel = "A"
			}
			source := c.URL
			if source == "" {
				source = c.Thumbnail
			}
			events = append(events, Event{
				ClipName:    c.Name,
				Reel:        reelName(c.Name),
				Channel:     channel,
				Source:      source,
				TrackName:   tr.Name,
				SourceInMs:  0,
				SourceOutMs: secondsToMs(c.Duration),
				RecordInMs:  secondsToMs(c.Start),
			})
		}
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Compare(a.RecordInMs, b.RecordInMs)
	})
	return events
}

func GenerateEDL(events []Event, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, ev := range events {
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, ev.Reel, ev.Channel,
				msToTimecode(ev.SourceInMs, fps), msToTimecode(ev.SourceOutMs, fps),
				msToTimecode(ev.RecordInMs, fps), msToTimecode(ev.RecordOutMs(), fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", ev.ClipName),
			fmt.Sprintf("* TRACK:  %s", ev.TrackName),
		)
		if ev.Source != "" {
			lines = append(lines, fmt.Sprintf("* SOURCE FILE:  %s", ev.Source))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// Timeline renders tracks with opts applied.
func Timeline(tracks []project.Track, opts Options) (string, []Event) {
	title := SanitizeName(opts.ProjectName, maxNameLen)
	if title == "" {
		title = defaultProjectName
	}
	rate := opts.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	events := Events(tracks, opts.IncludeInput)
	return GenerateEDL(events, title, rate), events
}

// reelName derives an 8-character reel from the clip name.
func reelName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if b.Len() >= reelNameLen {
			break
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "AX"
	}
	return b.String()
}

func secondsToMs(s float64) int {
	return int(math.Round(s * 1000))
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
