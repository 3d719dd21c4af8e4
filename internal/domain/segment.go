package domain

type SegmentKind string

const (
	SegmentText SegmentKind = "text"
	SegmentCode SegmentKind = "code"
)

// Segment is one display unit produced by the message renderer. Source is
// the markdown a text segment was rendered from.
type Segment struct {
	Kind     SegmentKind `json:"kind"`
	HTML     string      `json:"html,omitempty"`
	Code     string      `json:"code,omitempty"`
	Language string      `json:"language,omitempty"`
	Source   string      `json:"-"`
}
