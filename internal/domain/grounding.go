package domain

import (
	"fmt"
	"strings"
)

type GroundingStrategy string

const (
	// GroundingConversation seeds a stateful conversation with the dataset once
	// per session.
	GroundingConversation GroundingStrategy = "conversation"
	// GroundingPrompt embeds the dataset and recent exchanges into every
	// stateless grounding call.
	GroundingPrompt GroundingStrategy = "prompt"
)

func (s GroundingStrategy) Validate() error {
	switch s {
	case GroundingConversation, GroundingPrompt:
		return nil
	default:
		return fmt.Errorf("unsupported grounding strategy %q", s)
	}
}

type SentinelMatch string

const (
	SentinelContains SentinelMatch = "contains"
	SentinelExact    SentinelMatch = "exact"
)

func (m SentinelMatch) Validate() error {
	switch m {
	case SentinelContains, SentinelExact:
		return nil
	default:
		return fmt.Errorf("unsupported sentinel match %q", m)
	}
}

type Sentinel struct {
	Token string
	Match SentinelMatch
}

// GroundingResult is the tagged result of the local check: either a grounded
// answer or a request to escalate to the next tier.
type GroundingResult struct {
	Grounded bool
	Text     string
}

func Grounded(text string) GroundingResult {
	return GroundingResult{Grounded: true, Text: text}
}

func NeedsEscalation(raw string) GroundingResult {
	return GroundingResult{Text: raw}
}

// Classify applies the match policy. The contains policy is case-sensitive and
// matches anywhere in the response, so a grounded answer that happens to quote
// the token escalates too.
func (s Sentinel) Classify(response string) GroundingResult {
	if s.Token == "" {
		return Grounded(response)
	}

	switch s.Match {
	case SentinelExact:
		if strings.TrimSpace(response) == s.Token {
			return NeedsEscalation(response)
		}
	default:
		if strings.Contains(response, s.Token) {
			return NeedsEscalation(response)
		}
	}

	return Grounded(response)
}
