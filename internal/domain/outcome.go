package domain

import (
	"fmt"
	"strings"
)

type OutcomeKind string

const (
	OutcomeLocal    OutcomeKind = "local"
	OutcomeExternal OutcomeKind = "external"
	OutcomeFallback OutcomeKind = "fallback"
	OutcomeFailure  OutcomeKind = "failure"
)

// ResolutionOutcome is the only thing callers see of a resolution. Which tier
// answered is exposed through Kind alone.
type ResolutionOutcome struct {
	Kind       OutcomeKind
	Answer     string
	Disclaimer string
	References []Reference
	ErrorKind  ErrorKind
	Message    string
}

func LocalOutcome(answer string) ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeLocal, Answer: answer}
}

func ExternalOutcome(synthesis string, references []Reference) ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeExternal, Answer: synthesis, References: references}
}

func FallbackOutcome(disclaimer, answer string) ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeFallback, Disclaimer: disclaimer, Answer: answer}
}

func FailureOutcome(kind ErrorKind, message string) ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeFailure, ErrorKind: kind, Message: message}
}

func (o ResolutionOutcome) Failed() bool {
	return o.Kind == OutcomeFailure
}

// Text renders the user-visible response body.
func (o ResolutionOutcome) Text() string {
	switch o.Kind {
	case OutcomeExternal:
		if len(o.References) == 0 {
			return o.Answer
		}
		var b strings.Builder
		b.WriteString(o.Answer)
		b.WriteString("\n\nReferences:\n")
		for i, ref := range o.References {
			fmt.Fprintf(&b, "%d. %s\n", i+1, ref.String())
		}
		return strings.TrimRight(b.String(), "\n")
	case OutcomeFallback:
		if o.Disclaimer == "" {
			return o.Answer
		}
		return o.Disclaimer + "\n\n" + o.Answer
	case OutcomeFailure:
		return o.Message
	default:
		return o.Answer
	}
}
