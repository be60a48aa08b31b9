// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the relaychat client.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The palette is a red "tech" theme.

# Color System (colors.go)

  - AccentRed - Bold text, headings, assistant header, input border
  - Success / Error - Connection status dot
  - Warning - System entries
  - Info - User header

# Theme (theme.go)

Theme holds one style per transcript.Kind plus header, panel and input
styles. RenderSegments turns a transcript into terminal text:

	theme := styles.NewTheme()
	view := theme.RenderSegments(tr.Segments())

# Animations (animations.go)

StatusPulse drives the one-second breathing of the connection dot.
*/
package styles
