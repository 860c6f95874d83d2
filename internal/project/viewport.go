package project

type DisplaySource string

const (
	DisplayGenerated   DisplaySource = "generated"
	DisplayInput       DisplaySource = "input"
	DisplayClip        DisplaySource = "clip"
	DisplayPlaceholder DisplaySource = "placeholder"
)

// Display is what the preview surface should show right now.
type Display struct {
	Source  DisplaySource `json:"source"`
	URL     string        `json:"url,omitempty"`
	Kind    MediaKind     `json:"type,omitempty"`
	Label   string        `json:"label"`
	IsVideo bool          `json:"is_video"`
}

// Display picks the preview content. A generated asset wins, except that
// holding compare shows the input source; otherwise the active clip on the
// main track, then the input source, then a placeholder.
func (s *Session) Display(compareHeld bool) Display {
	inputURL := ""
	if c, ok := s.InputClip(InputVideoTrackID); ok && c.Kind == MediaVideo {
		inputURL = c.URL
	}

	if g, ok := s.Generated(); ok {
		if compareHeld && inputURL != "" {
			return Display{Source: DisplayInput, URL: inputURL, Kind: MediaVideo, Label: "BEFORE (Input)", IsVideo: true}
		}
		return Display{Source: DisplayGenerated, URL: g.URL, Kind: g.Kind, Label: "AFTER (Result)", IsVideo: g.Kind == MediaVideo}
	}

	if c, ok := s.ActiveClip(s.CurrentTime()); ok {
		url := c.URL
		if url == "" {
			url = c.Thumbnail
		}
		return Display{Source: DisplayClip, URL: url, Kind: c.Kind, Label: "CLIP: " + c.Name, IsVideo: c.Kind == MediaVideo}
	}

	if inputURL != "" {
		return Display{Source: DisplayInput, URL: inputURL, Kind: MediaVideo, Label: "SOURCE INPUT", IsVideo: true}
	}

	return Display{Source: DisplayPlaceholder, Label: "No Active Clip"}
}
