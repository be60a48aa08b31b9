// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package avatar

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoFrames = " o \n/|\\\n---\n o/\n/|\n"

func writeAvatar(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "avatar.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// =============================================================================
// FRAMES
// =============================================================================

func TestParseFrames(t *testing.T) {
	frames, err := ParseFrames(strings.NewReader(twoFrames))
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, " o \n/|\\", frames[0])
	assert.Equal(t, " o/\n/| ", frames[1], "frames are padded to a common size")
}

func TestParseFrames_SkipsBlankFrames(t *testing.T) {
	frames, err := ParseFrames(strings.NewReader("---\n\n---\nA\r\n---\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, frames)
}

func TestParseFrames_Empty(t *testing.T) {
	_, err := ParseFrames(strings.NewReader("---\n   \n"))
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestFileSource_EOFAndRewind(t *testing.T) {
	src := NewFrameSource([]string{"a", "b"})
	assert.Equal(t, 2, src.Len())

	f, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", f)
	_, _ = src.Next()
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, src.Rewind())
	f, _ = src.Next()
	assert.Equal(t, "a", f)

	require.NoError(t, src.Close())
	_, err = src.Next()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, src.Rewind(), ErrClosed)
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadIcon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icon.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n  @ relay chat icon  \n"), 0644))

	icon, err := LoadIcon(path)
	require.NoError(t, err)
	assert.Equal(t, "@ rel...", icon)

	_, err = LoadIcon(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, ErrNotFound)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0644))
	_, err = LoadIcon(empty)
	assert.Error(t, err)
}

// =============================================================================
// PLAYER
// =============================================================================

func nextFrame(t *testing.T, p *Player) Frame {
	t.Helper()
	select {
	case f := <-p.Frames():
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame published")
		return Frame{}
	}
}

func TestPlayer_MissingFileDegrades(t *testing.T) {
	p := NewPlayer(filepath.Join(t.TempDir(), "avatar.txt"))
	err := p.Start(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, StatusNotFound, p.Status())
	assert.False(t, p.Running())
	assert.Nil(t, p.Done())
}

func TestPlayer_LoopsFrames(t *testing.T) {
	path := writeAvatar(t, t.TempDir(), twoFrames)
	p := NewPlayer(path, WithInterval(time.Millisecond))
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.True(t, p.Running())
	assert.Equal(t, StatusPlaying, p.Status())
	assert.Equal(t, path, p.Path())

	// Wrapping back to index 0 after index 1 shows the rewind at EOF.
	sawOne, wrapped := false, false
	deadline := time.After(2 * time.Second)
	for !wrapped {
		select {
		case f := <-p.Frames():
			if f.Index == 1 {
				sawOne = true
			}
			if sawOne && f.Index == 0 {
				wrapped = true
			}
		case <-deadline:
			t.Fatal("playback never wrapped")
		}
	}
}

func TestPlayer_StopReleasesSource(t *testing.T) {
	src := NewFrameSource([]string{"a"})
	p := NewPlayer("ignored", WithInterval(time.Millisecond),
		WithOpener(func(string) (Source, error) { return src, nil }))

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Start(context.Background()), "second Start is a no-op")
	nextFrame(t, p)

	done := p.Done()
	p.Stop()
	assert.False(t, p.Running())
	assert.Equal(t, StatusStopped, p.Status())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("playback goroutine did not exit")
	}
	_, err := src.Next()
	assert.ErrorIs(t, err, ErrClosed)

	p.Stop()
}

func TestPlayer_ContextCancelEndsLoop(t *testing.T) {
	path := writeAvatar(t, t.TempDir(), twoFrames)
	p := NewPlayer(path, WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))

	cancel()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop ignored context cancellation")
	}
	p.Stop()
}

func TestPlayer_PublishKeepsNewest(t *testing.T) {
	p := NewPlayer("x")
	p.publish(Frame{Index: 1})
	p.publish(Frame{Index: 2})
	assert.Equal(t, 2, nextFrame(t, p).Index)
}

// =============================================================================
// WATCHER
// =============================================================================

func TestPlayer_WatchStartsWhenFileAppears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avatar.txt")
	p := NewPlayer(path, WithInterval(time.Millisecond))
	defer p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.Error(t, p.Start(ctx))
	require.NoError(t, p.Watch(ctx))

	writeAvatar(t, dir, twoFrames)
	require.Eventually(t, p.Running, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		return !p.Running() && p.Status() == StatusNotFound
	}, 3*time.Second, 20*time.Millisecond)
}
