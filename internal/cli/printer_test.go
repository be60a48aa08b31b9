// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/relaychat/internal/transcript"
)

const (
	clearLineSeq   = termenv.CSI + termenv.EraseEntireLineSeq
	clearScreenSeq = termenv.CSI + "2J"
)

func newTestPrinter() (*Printer, *transcript.Transcript, *bytes.Buffer) {
	var buf bytes.Buffer
	tr := transcript.New()
	return NewPrinter(&buf, termenv.Ascii, true, tr), tr, &buf
}

func TestPrinter_PrintsAppendsOnce(t *testing.T) {
	p, tr, buf := newTestPrinter()

	tr.Append("hello ", transcript.KindBody)
	p.Flush()
	tr.Append("world\n", transcript.KindBold)
	p.Flush()
	p.Flush()

	assert.Equal(t, "hello world\n", buf.String())
}

func TestPrinter_RewritesLastLine(t *testing.T) {
	p, tr, buf := newTestPrinter()

	tr.Append("entry\n", transcript.KindBody)
	anchor := tr.Mark()
	tr.Append("🤔 Bot is thinking.", transcript.KindThinking)
	p.Flush()

	tr.Truncate(anchor)
	tr.Append("💭 Bot is thinking..", transcript.KindThinking)
	p.Flush()

	out := buf.String()
	assert.NotContains(t, out, clearScreenSeq)
	assert.Contains(t, out, "\r"+clearLineSeq+"💭 Bot is thinking..")
}

func TestPrinter_ClearsScreenWhenLinesRemoved(t *testing.T) {
	p, tr, buf := newTestPrinter()

	tr.Append("one\ntwo\n", transcript.KindBody)
	p.Flush()
	tr.Clear()
	tr.Append("fresh", transcript.KindBody)
	p.Flush()

	out := buf.String()
	assert.Contains(t, out, clearScreenSeq)
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("fresh")))
}

func TestPrinter_EmptyTranscriptClears(t *testing.T) {
	p, tr, buf := newTestPrinter()

	tr.Append("text", transcript.KindBody)
	p.Flush()
	tr.Clear()
	p.Flush()

	assert.Contains(t, buf.String(), clearScreenSeq)
}

func TestCommonPrefix_RuneBoundary(t *testing.T) {
	// 🤔 and 💭 share their first bytes.
	assert.Equal(t, "a ", commonPrefix("a 🤔", "a 💭"))
	assert.Equal(t, "abc", commonPrefix("abc", "abcd"))
	assert.Equal(t, "", commonPrefix("x", "y"))
}

func TestKindStyles_ListItemsStandOut(t *testing.T) {
	var buf bytes.Buffer
	out := termenv.NewOutput(&buf, termenv.WithProfile(termenv.TrueColor))
	kinds := kindStyles(out, true)

	item := kinds[transcript.KindListItem].Styled("• one")
	assert.NotEqual(t, kinds[transcript.KindBody].Styled("• one"), item)
	assert.Contains(t, item, "• one")
}
