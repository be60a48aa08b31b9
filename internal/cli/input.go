// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/peterh/liner"

	"github.com/jeranaias/relaychat/internal/config"
)

// LineSource supplies input lines to a Session.
type LineSource interface {
	// Prompt shows prompt and returns one line. io.EOF ends the session.
	Prompt(prompt string) (string, error)
	// AppendHistory records a line for recall.
	AppendHistory(line string)
}

// historyFileName is the input history kept in the config directory.
const historyFileName = "chat_history"

// LineReader provides input history and line editing.
type LineReader struct {
	line        *liner.State
	historyFile string
}

// NewLineReader creates a LineReader and loads saved input history.
func NewLineReader() *LineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	r := &LineReader{
		line:        line,
		historyFile: filepath.Join(configDir, historyFileName),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Prompt reads a line. Ctrl+C and Ctrl+D both end the session with io.EOF.
func (r *LineReader) Prompt(prompt string) (string, error) {
	s, err := r.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	return s, err
}

// AppendHistory adds line to the recall history.
func (r *LineReader) AppendHistory(line string) {
	r.line.AppendHistory(line)
}

// Close saves history and restores the terminal.
func (r *LineReader) Close() error {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}
