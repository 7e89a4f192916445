// FILE: pkg/sharing/payload.go

package sharing

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies which variant of a Payload is populated.
type Kind int

const (
	KindNone   Kind = iota // Nothing usable was shared.
	KindText               // A single plain-text body.
	KindImages             // One or more image content URIs.
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImages:
		return "images"
	default:
		return "none"
	}
}

// Payload is the content extracted from a share intent.
// It is a tagged union: only the field matching Kind is meaningful.
type Payload struct {
	Kind      Kind     `json:"kind"`
	Text      string   `json:"text,omitempty"`
	ImageURIs []string `json:"imageUris,omitempty"`
}

// None is the empty payload.
var None = Payload{Kind: KindNone}

// TextPayload builds a text payload.
func TextPayload(body string) Payload {
	return Payload{Kind: KindText, Text: body}
}

// ImagesPayload builds an image payload from the non-empty URIs in uris.
// A list with none left yields None.
func ImagesPayload(uris []string) Payload {
	cp := make([]string, 0, len(uris))
	for _, uri := range uris {
		if uri != "" {
			cp = append(cp, uri)
		}
	}
	if len(cp) == 0 {
		return None
	}
	return Payload{Kind: KindImages, ImageURIs: cp}
}

// IsNone reports whether the payload carries no content.
func (p Payload) IsNone() bool {
	return p.Kind == KindNone
}

// ItemCount is the number of shared items: 1 for text, len(ImageURIs) for images.
func (p Payload) ItemCount() int {
	switch p.Kind {
	case KindText:
		return 1
	case KindImages:
		return len(p.ImageURIs)
	default:
		return 0
	}
}

// Source names the entry point that accepted a share.
type Source string

const (
	SourceCapture Source = "capture"
	SourcePrimary Source = "primary"
)

// ShareEvent is emitted once per accepted share so that interested parties
// (analytics, sync workers) can react without touching the payload itself.
type ShareEvent struct {
	ID         uuid.UUID `json:"id"`
	Source     Source    `json:"source"`
	Kind       string    `json:"kind"`
	ItemCount  int       `json:"itemCount"`
	CapturedAt time.Time `json:"capturedAt"`
}

// NewShareEvent describes an accepted payload.
func NewShareEvent(source Source, p Payload) ShareEvent {
	return ShareEvent{
		ID:         uuid.New(),
		Source:     source,
		Kind:       p.Kind.String(),
		ItemCount:  p.ItemCount(),
		CapturedAt: time.Now().UTC(),
	}
}
