// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript holds the chat transcript as a sequence of styled text
// segments.
//
// A Transcript is owned by the UI thread and is not safe for concurrent use.
// Writers append segments; the thinking indicator marks an Anchor and later
// truncates back to it to replace its own text in place.
package transcript

import "strings"

// Kind names the style a segment is rendered with.
type Kind int

const (
	KindBody Kind = iota
	KindBold
	KindHeading1
	KindHeading2
	KindHeading3
	KindListItem
	KindThinking
	KindTimestamp
	KindUserHeader
	KindAssistantHeader
	KindSystemHeader
	KindUserBody
	KindSystemBody
)

var kindNames = map[Kind]string{
	KindBody:            "body",
	KindBold:            "bold",
	KindHeading1:        "heading1",
	KindHeading2:        "heading2",
	KindHeading3:        "heading3",
	KindListItem:        "list_item",
	KindThinking:        "thinking",
	KindTimestamp:       "timestamp",
	KindUserHeader:      "user_header",
	KindAssistantHeader: "assistant_header",
	KindSystemHeader:    "system_header",
	KindUserBody:        "user_body",
	KindSystemBody:      "system_body",
}

// String returns the kind's name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// HeadingKind returns the style for a heading of the given level. Levels
// past 3 share the level-3 style.
func HeadingKind(level int) Kind {
	switch {
	case level <= 1:
		return KindHeading1
	case level == 2:
		return KindHeading2
	default:
		return KindHeading3
	}
}

// Segment is a run of text with one style.
type Segment struct {
	Text string
	Kind Kind
}

// Anchor is an opaque position in a Transcript.
type Anchor struct {
	segments int
	tail     int
}

// Transcript is an append-only (except for Truncate and Clear) buffer of
// styled segments.
type Transcript struct {
	segments  []Segment
	editable  bool
	scroll    bool
	version   uint64
	observers []func()
}

// New returns an empty, read-only transcript.
func New() *Transcript {
	return &Transcript{}
}

// Append adds text with the given style. Adjacent text of the same kind is
// merged into one segment. Empty text is ignored.
func (t *Transcript) Append(text string, kind Kind) {
	if text == "" {
		return
	}
	if n := len(t.segments); n > 0 && t.segments[n-1].Kind == kind {
		t.segments[n-1].Text += text
	} else {
		t.segments = append(t.segments, Segment{Text: text, Kind: kind})
	}
	t.changed()
}

// Mark returns an anchor at the current end of the transcript.
func (t *Transcript) Mark() Anchor {
	a := Anchor{segments: len(t.segments)}
	if a.segments > 0 {
		a.tail = len(t.segments[a.segments-1].Text)
	}
	return a
}

// Truncate removes everything appended after a. Anchors beyond the current
// end are ignored.
func (t *Transcript) Truncate(a Anchor) {
	if a.segments > len(t.segments) {
		return
	}
	if a.segments > 0 && a.tail > len(t.segments[a.segments-1].Text) {
		return
	}
	if a == t.Mark() {
		return
	}
	t.segments = t.segments[:a.segments]
	if a.segments > 0 {
		last := &t.segments[a.segments-1]
		last.Text = last.Text[:a.tail]
	}
	t.changed()
}

// Clear removes every segment.
func (t *Transcript) Clear() {
	if len(t.segments) == 0 {
		return
	}
	t.segments = nil
	t.changed()
}

// Segments returns a copy of the segments.
func (t *Transcript) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Len returns the number of segments.
func (t *Transcript) Len() int {
	return len(t.segments)
}

// Text returns the unstyled transcript text.
func (t *Transcript) Text() string {
	var b strings.Builder
	for _, s := range t.segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// SetEditable marks whether the transcript is currently being written.
func (t *Transcript) SetEditable(editable bool) {
	if t.editable == editable {
		return
	}
	t.editable = editable
	t.changed()
}

// Editable reports whether a writer currently holds the transcript open.
func (t *Transcript) Editable() bool {
	return t.editable
}

// ScrollToEnd asks the view to bring the newest content into sight.
func (t *Transcript) ScrollToEnd() {
	t.scroll = true
}

// TakeScrollRequest reports and clears a pending ScrollToEnd.
func (t *Transcript) TakeScrollRequest() bool {
	s := t.scroll
	t.scroll = false
	return s
}

// Version increases on every change. Views compare it to skip re-rendering.
func (t *Transcript) Version() uint64 {
	return t.version
}

// OnChange registers fn to run after every change.
func (t *Transcript) OnChange(fn func()) {
	t.observers = append(t.observers, fn)
}

func (t *Transcript) changed() {
	t.version++
	for _, fn := range t.observers {
		fn()
	}
}
