// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/relaychat/internal/model"
)

// DefaultCannedDelay simulates upstream latency in offline mode.
const DefaultCannedDelay = 500 * time.Millisecond

// Canned keyword replies.
const (
	CannedGreeting  = "Hello! I'm Changzheng AI, glad to be of service. What can I help you with?"
	CannedLongMarch = "The Long March was the strategic relocation of the main forces of the Chinese " +
		"Workers' and Peasants' Red Army from the soviet areas north and south of the Yangtze to the " +
		"Shaanxi-Gansu soviet area. The Central Red Army set out in October 1934, and over two years and " +
		"twenty-five thousand li the armies reunited in October 1936. It was the great turning point " +
		"from setback to victory."
	CannedFarewell = "Goodbye! It was a pleasure talking with you. Looking forward to next time!"
)

// CannedCompleter answers from a fixed keyword table without any network
// access. It is used when no upstream API key is configured.
type CannedCompleter struct {
	Delay time.Duration
}

// NewCannedCompleter returns a completer with the default simulated delay.
func NewCannedCompleter() *CannedCompleter {
	return &CannedCompleter{Delay: DefaultCannedDelay}
}

// Complete replies to the last user message in messages.
func (c *CannedCompleter) Complete(ctx context.Context, messages []model.Message) (string, error) {
	if c.Delay > 0 {
		timer := time.NewTimer(c.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return CannedReply(lastUserText(messages)), nil
}

// CannedReply picks the keyword reply for message.
func CannedReply(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(message, "你好") || strings.Contains(lower, "hello"):
		return CannedGreeting
	case strings.Contains(message, "长征") || strings.Contains(lower, "long march"):
		return CannedLongMarch
	case strings.Contains(message, "再见") || strings.Contains(lower, "bye"):
		return CannedFarewell
	default:
		return fmt.Sprintf("I understand you said: '%s'. That's an interesting topic! "+
			"As Changzheng AI I'd be glad to dig into it with you. Tell me more and I'll do my best to help.", message)
	}
}

func lastUserText(messages []model.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
