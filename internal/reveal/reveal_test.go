// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/relaychat/internal/sched"
	"github.com/jeranaias/relaychat/internal/transcript"
)

type harness struct {
	clock *sched.Manual
	out   *transcript.Transcript
	r     *Renderer
	steps []int
	done  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{clock: sched.NewManual(), out: transcript.New()}
	h.r = New(h.clock, h.out)
	h.r.OnStep(func(c int) {
		if c < 0 || c > h.r.Len() {
			t.Fatalf("cursor %d outside [0, %d]", c, h.r.Len())
		}
		h.steps = append(h.steps, c)
	})
	h.r.OnComplete(func() { h.done++ })
	return h
}

// segmentsAfterFirstStep starts text, runs one step, and returns what it wrote.
func (h *harness) firstStep(text string) []transcript.Segment {
	h.r.Start(text)
	h.clock.Step()
	return h.out.Segments()
}

// =============================================================================
// PLAIN TEXT
// =============================================================================

func TestPlainText_RevealedExactly(t *testing.T) {
	inputs := []string{
		"hello world",
		"长征是宣言书。长征是宣传队！",
		"line one\nline two\n",
		"a * b and 3 - 2 in #hash",
		"",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			h := newHarness(t)
			h.r.Start(in)
			h.clock.RunAll()

			assert.Equal(t, in+Separator, h.out.Text())
			assert.Equal(t, 1, h.done)
			assert.Equal(t, len([]rune(in)), len(h.steps), "one step per character")
			assert.Equal(t, StateIdle, h.r.State())
		})
	}
}

func TestPlainText_RandomInputs(t *testing.T) {
	alphabet := []rune("abc XYZ 123,.!?\n长征。！？，；：日本")
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		n := rng.Intn(80)
		buf := make([]rune, n)
		for j := range buf {
			buf[j] = alphabet[rng.Intn(len(alphabet))]
		}
		in := string(buf)

		h := newHarness(t)
		h.r.Start(in)
		h.clock.RunAll()

		require.Equal(t, in+Separator, h.out.Text(), "input %q", in)
		for k := 1; k < len(h.steps); k++ {
			require.Greater(t, h.steps[k], h.steps[k-1], "cursor must advance")
		}
	}
}

// =============================================================================
// MARKDOWN TOKENS
// =============================================================================

func TestBold_SingleUnitThenPlain(t *testing.T) {
	h := newHarness(t)
	segs := h.firstStep("**bold** world")
	assert.Equal(t, []transcript.Segment{{Text: "bold", Kind: transcript.KindBold}}, segs)
	assert.Equal(t, 8, h.r.Cursor())

	h.clock.RunAll()
	assert.Equal(t, "bold world"+Separator, h.out.Text())
	assert.Len(t, h.steps, 1+len(" world"))
}

func TestBold_UnterminatedIsLiteral(t *testing.T) {
	h := newHarness(t)
	h.r.Start("**unterminated")
	h.clock.RunAll()

	assert.Equal(t, "**unterminated"+Separator, h.out.Text())
	assert.Len(t, h.steps, len("**unterminated"))
	for _, s := range h.out.Segments() {
		assert.NotEqual(t, transcript.KindBold, s.Kind)
	}
}

func TestBold_EmptyEmitsNothing(t *testing.T) {
	h := newHarness(t)
	h.firstStep("****x")
	assert.Equal(t, "", h.out.Text())
	assert.Equal(t, 4, h.r.Cursor())
}

func TestHeading_SkipsToNextLine(t *testing.T) {
	h := newHarness(t)
	segs := h.firstStep("# Title\nbody")

	require.Len(t, segs, 2)
	assert.Equal(t, transcript.Segment{Text: "Title", Kind: transcript.KindHeading1}, segs[0])
	assert.Equal(t, transcript.Segment{Text: "\n", Kind: transcript.KindBody}, segs[1])
	assert.Equal(t, 8, h.r.Cursor(), "cursor lands on 'body'")

	h.clock.RunAll()
	assert.Equal(t, "Title\nbody"+Separator, h.out.Text())
}

func TestHeading_Levels(t *testing.T) {
	tests := []struct {
		in   string
		kind transcript.Kind
		text string
	}{
		{"## Two", transcript.KindHeading2, "Two"},
		{"### Three", transcript.KindHeading3, "Three"},
		{"###### Six", transcript.KindHeading3, "Six"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h := newHarness(t)
			segs := h.firstStep(tt.in)
			require.Len(t, segs, 2) // heading + separator (last token)
			assert.Equal(t, tt.kind, segs[0].Kind)
			assert.Equal(t, tt.text, segs[0].Text)
			assert.Equal(t, 1, h.done)
		})
	}
}

func TestHeading_NotRecognised(t *testing.T) {
	inputs := []string{
		"#NoSpace",
		"####### seven",
		"mid # line",
		"#",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			h := newHarness(t)
			h.r.Start(in)
			h.clock.RunAll()
			assert.Equal(t, in+Separator, h.out.Text())
			assert.Len(t, h.steps, len([]rune(in)))
		})
	}
}

func TestHeading_AfterNewline(t *testing.T) {
	h := newHarness(t)
	h.r.Start("intro\n## Part")
	h.clock.RunAll()

	var kinds []transcript.Kind
	for _, s := range h.out.Segments() {
		kinds = append(kinds, s.Kind)
	}
	assert.Contains(t, kinds, transcript.KindHeading2)
	assert.Equal(t, "intro\nPart"+Separator, h.out.Text())
}

func TestList_ItemThenPlainLine(t *testing.T) {
	h := newHarness(t)
	segs := h.firstStep("- item one\nitem two")

	require.Len(t, segs, 2)
	assert.Equal(t, transcript.Segment{Text: "• item one", Kind: transcript.KindListItem}, segs[0])
	assert.Equal(t, 11, h.r.Cursor())

	h.clock.RunAll()
	assert.Equal(t, "• item one\nitem two"+Separator, h.out.Text())
	assert.Len(t, h.steps, 1+len("item two"))
}

func TestList_NotRecognised(t *testing.T) {
	for _, in := range []string{"-no space", "a - b", "-"} {
		h := newHarness(t)
		h.r.Start(in)
		h.clock.RunAll()
		assert.Equal(t, in+Separator, h.out.Text(), "input %q", in)
	}
}

func TestPriority_BoldBeatsHeading(t *testing.T) {
	// "**" at line start is bold even though a heading could follow later.
	h := newHarness(t)
	segs := h.firstStep("**a** # b")
	assert.Equal(t, transcript.KindBold, segs[0].Kind)
}

// =============================================================================
// TIMING
// =============================================================================

func TestDelays(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Duration
	}{
		{"plain", "ab", 30 * time.Millisecond},
		{"full-width period", "。b", 50 * time.Millisecond},
		{"full-width comma", "，b", 50 * time.Millisecond},
		{"ascii comma", ",b", 30 * time.Millisecond},
		{"bold", "**a**b", 30 * time.Millisecond},
		{"heading", "# a\nb", 50 * time.Millisecond},
		{"list", "- a\nb", 30 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.r.Start(tt.in)
			require.True(t, h.clock.Step())
			due, ok := h.clock.NextDue()
			require.True(t, ok)
			assert.Equal(t, tt.want, due-h.clock.Now())
		})
	}
}

func TestIsPause(t *testing.T) {
	for _, r := range "。！？，；：" {
		assert.True(t, IsPause(r), "%q", r)
	}
	for _, r := range ".!?,;:a长、" {
		assert.False(t, IsPause(r), "%q", r)
	}
}

func TestWithDelays(t *testing.T) {
	clock := sched.NewManual()
	r := New(clock, transcript.New(), WithDelays(Delays{Short: time.Millisecond, Long: 2 * time.Millisecond}))
	r.Start("abc")
	clock.RunAll()
	assert.Equal(t, 2*time.Millisecond, clock.Now())
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestPreemption_NoOrphanedWrites(t *testing.T) {
	h := newHarness(t)
	h.r.Start("aaaaaaaa")
	h.clock.Advance(35 * time.Millisecond) // two steps
	require.Equal(t, "aa", h.out.Text())
	firstGen := h.r.Generation()

	h.r.Start("bbb")
	assert.Greater(t, h.r.Generation(), firstGen)
	h.clock.RunAll()

	text := h.out.Text()
	assert.Equal(t, "aabbb"+Separator, text)
	assert.NotContains(t, text[strings.Index(text, "b"):], "a")
	assert.Equal(t, 1, h.done)
}

func TestEditableDuringReveal(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.out.Editable())

	h.r.Start("ab")
	assert.True(t, h.out.Editable())
	assert.True(t, h.r.Active())

	h.clock.RunAll()
	assert.False(t, h.out.Editable())
	assert.False(t, h.r.Active())
	assert.True(t, h.out.TakeScrollRequest())
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	h.r.Cancel()
	assert.Equal(t, StateIdle, h.r.State())

	h.r.Start("abcdef")
	h.clock.Step()
	h.r.Cancel()
	assert.Equal(t, StatePreempted, h.r.State())
	assert.False(t, h.out.Editable())

	h.clock.RunAll()
	assert.Equal(t, "a", h.out.Text())
	assert.Equal(t, 0, h.done)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "revealing", StateRevealing.String())
	assert.Equal(t, "preempted", StatePreempted.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestWithMatchers_ZeroProgressGuard(t *testing.T) {
	stuck := MatcherFunc(func(text []rune, cursor int) (Token, bool) {
		return Token{Text: "x", Next: cursor}, true
	})
	clock := sched.NewManual()
	out := transcript.New()
	r := New(clock, out, WithMatchers(stuck))
	r.Start("abc")
	clock.RunAll()
	assert.Equal(t, "xxx"+Separator, out.Text())
}
