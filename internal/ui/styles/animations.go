// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "time"

// SpinnerConfig holds the configuration for a frame animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// Frame returns frame i, wrapping around.
func (s SpinnerConfig) Frame(i int) string {
	if len(s.Frames) == 0 {
		return ""
	}
	if i < 0 {
		i = -i
	}
	return s.Frames[i%len(s.Frames)]
}

// StatusPulse breathes the connection dot once per second.
var StatusPulse = SpinnerConfig{
	Frames: []string{"●", "◉", "○", "◉"},
	FPS:    1,
}

// StatusDot renders the connection dot for frame, green when online and red
// otherwise.
func (t *Theme) StatusDot(online bool, frame int) string {
	dot := StatusPulse.Frame(frame)
	if online {
		return t.StatusOnline.Render(dot)
	}
	return t.StatusOffline.Render(dot)
}
