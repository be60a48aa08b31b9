// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"strings"

	"golang.org/x/text/width"

	"github.com/jeranaias/relaychat/internal/transcript"
)

// Token is one unit of output produced by a matcher.
type Token struct {
	// Text is written with Kind. It may be empty.
	Text string
	Kind transcript.Kind

	// Trailing is written as body text after Text (a consumed newline).
	Trailing string

	// Next is the rune offset the cursor moves to.
	Next int

	// Delay is how long to wait before the next step.
	Delay DelayClass
}

// DelayClass selects one of the configured step delays.
type DelayClass int

const (
	DelayShort DelayClass = iota
	DelayLong
)

// Matcher recognises a token at cursor. Matchers are tried in order and the
// first match wins.
type Matcher interface {
	Match(text []rune, cursor int) (Token, bool)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(text []rune, cursor int) (Token, bool)

// Match calls f.
func (f MatcherFunc) Match(text []rune, cursor int) (Token, bool) {
	return f(text, cursor)
}

// DefaultMatchers returns the markdown subset in priority order: bold,
// heading, list item, plain character. The last matcher always matches.
func DefaultMatchers(bullet string) []Matcher {
	return []Matcher{
		MatcherFunc(matchBold),
		MatcherFunc(matchHeading),
		listMatcher{bullet: bullet},
		MatcherFunc(matchPlain),
	}
}

// MaxHeadingLevel is the longest '#' run recognised as a heading.
const MaxHeadingLevel = 6

// matchBold recognises **text**. Without a closing marker it does not match
// and the asterisks are revealed literally.
func matchBold(text []rune, cursor int) (Token, bool) {
	if cursor+1 >= len(text) || text[cursor] != '*' || text[cursor+1] != '*' {
		return Token{}, false
	}
	end := indexRunes(text, cursor+2, "**")
	if end < 0 {
		return Token{}, false
	}
	return Token{
		Text:  string(text[cursor+2 : end]),
		Kind:  transcript.KindBold,
		Next:  end + 2,
		Delay: DelayShort,
	}, true
}

// matchHeading recognises "# " through "###### " at the start of a line.
func matchHeading(text []rune, cursor int) (Token, bool) {
	if !atLineStart(text, cursor) || text[cursor] != '#' {
		return Token{}, false
	}
	pos := cursor
	for pos < len(text) && text[pos] == '#' {
		pos++
	}
	level := pos - cursor
	if level > MaxHeadingLevel || pos >= len(text) || text[pos] != ' ' {
		return Token{}, false
	}

	body, next, trailing := restOfLine(text, pos+1)
	return Token{
		Text:     body,
		Kind:     transcript.HeadingKind(level),
		Trailing: trailing,
		Next:     next,
		Delay:    DelayLong,
	}, true
}

type listMatcher struct {
	bullet string
}

// Match recognises "- " at the start of a line.
func (m listMatcher) Match(text []rune, cursor int) (Token, bool) {
	if !atLineStart(text, cursor) || text[cursor] != '-' ||
		cursor+1 >= len(text) || text[cursor+1] != ' ' {
		return Token{}, false
	}

	body, next, trailing := restOfLine(text, cursor+2)
	return Token{
		Text:     m.bullet + body,
		Kind:     transcript.KindListItem,
		Trailing: trailing,
		Next:     next,
		Delay:    DelayShort,
	}, true
}

// matchPlain emits one character.
func matchPlain(text []rune, cursor int) (Token, bool) {
	r := text[cursor]
	delay := DelayShort
	if IsPause(r) {
		delay = DelayLong
	}
	return Token{
		Text:  string(r),
		Kind:  transcript.KindBody,
		Next:  cursor + 1,
		Delay: delay,
	}, true
}

// IsPause reports whether r is full-width sentence or clause punctuation:
// 。！？，；：
func IsPause(r rune) bool {
	if r == '。' {
		return true
	}
	p := width.LookupRune(r)
	if p.Kind() != width.EastAsianFullwidth {
		return false
	}
	return strings.ContainsRune("!?,;:", p.Narrow())
}

func atLineStart(text []rune, cursor int) bool {
	return cursor == 0 || text[cursor-1] == '\n'
}

// restOfLine returns the text from start to the next newline, the offset
// after that newline, and the newline itself if one was consumed.
func restOfLine(text []rune, start int) (body string, next int, trailing string) {
	end := start
	for end < len(text) && text[end] != '\n' {
		end++
	}
	if start > end {
		start = end
	}
	body = string(text[start:end])
	if end < len(text) {
		return body, end + 1, "\n"
	}
	return body, end, ""
}

// indexRunes returns the first offset >= from where sub occurs, or -1.
func indexRunes(text []rune, from int, sub string) int {
	needle := []rune(sub)
	for i := from; i+len(needle) <= len(text); i++ {
		match := true
		for j, r := range needle {
			if text[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
