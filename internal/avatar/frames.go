// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package avatar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jeranaias/relaychat/internal/util"
)

// FrameSeparator is a line on its own between frames in an avatar file.
const FrameSeparator = "---"

// MaxIconWidth caps the icon shown in the header.
const MaxIconWidth = 8

var (
	// ErrNotFound is returned when a resource file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrNoFrames is returned for an avatar file with no frames.
	ErrNoFrames = errors.New("no frames in file")

	// ErrClosed is returned by a closed Source.
	ErrClosed = errors.New("source closed")
)

// Source yields frames in order. Next returns io.EOF after the last frame;
// Rewind starts over.
type Source interface {
	Next() (string, error)
	Rewind() error
	Close() error
}

// ParseFrames splits r into frames separated by "---" lines and pads every
// frame to the size of the largest one. Blank frames are dropped.
func ParseFrames(r io.Reader) ([]string, error) {
	var (
		frames  []string
		current []string
	)
	flush := func() {
		block := strings.Trim(strings.Join(current, "\n"), "\n")
		if strings.TrimSpace(block) != "" {
			frames = append(frames, block)
		}
		current = nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == FrameSeparator {
			flush()
			continue
		}
		current = append(current, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	flush()

	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	var w, h int
	for _, f := range frames {
		fw, fh := util.BlockSize(f)
		w = max(w, fw)
		h = max(h, fh)
	}
	for i, f := range frames {
		frames[i] = util.FitBlock(f, w, h)
	}
	return frames, nil
}

// FileSource serves frames parsed from a file.
type FileSource struct {
	mu     sync.Mutex
	frames []string
	pos    int
	closed bool
}

// OpenFile parses the avatar file at path.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open avatar: %w", err)
	}
	defer f.Close()

	frames, err := ParseFrames(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &FileSource{frames: frames}, nil
}

// NewFrameSource serves the given frames.
func NewFrameSource(frames []string) *FileSource {
	return &FileSource{frames: append([]string(nil), frames...)}
}

// Next returns the next frame or io.EOF.
func (s *FileSource) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	if s.pos >= len(s.frames) {
		return "", io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Rewind moves back to the first frame.
func (s *FileSource) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.pos = 0
	return nil
}

// Close releases the frames.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frames = nil
	return nil
}

// Len returns the number of frames.
func (s *FileSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// LoadIcon reads the icon shown in the header: the first non-blank line of
// the file, cut to MaxIconWidth cells.
func LoadIcon(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("read icon: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return util.TruncateWidth(line, MaxIconWidth), nil
		}
	}
	return "", fmt.Errorf("%s: empty icon file", path)
}
