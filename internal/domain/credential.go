package domain

import (
	"fmt"
	"strings"
)

type CredentialID string

type Credential struct {
	ID          CredentialID
	Name        string
	Token       string
	SecretRef   string
	Placeholder bool
}

var placeholderTokens = map[string]struct{}{
	"your_key":            {},
	"your-api-key":        {},
	"your_api_key":        {},
	"your_gemini_api_key": {},
	"changeme":            {},
	"change_me":           {},
	"xxx":                 {},
	"todo":                {},
	"none":                {},
	"null":                {},
}

// IsPlaceholder reports whether the credential cannot be used against the
// completion service, either because it was flagged or because its token is
// an unconfigured template value.
func (c Credential) IsPlaceholder() bool {
	if c.Placeholder {
		return true
	}

	return IsPlaceholderToken(c.Token)
}

func IsPlaceholderToken(token string) bool {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return true
	}
	if strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">") {
		return true
	}
	if strings.Contains(strings.ToUpper(trimmed), "YOUR_") {
		return true
	}

	_, ok := placeholderTokens[strings.ToLower(trimmed)]
	return ok
}

// Label is safe to log: it never contains the token.
func (c Credential) Label() string {
	if c.Name != "" {
		return fmt.Sprintf("%s (%s)", c.Name, c.ID)
	}
	return string(c.ID)
}

func (c Credential) Validate() error {
	if strings.TrimSpace(string(c.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(c.Token) == "" && strings.TrimSpace(c.SecretRef) == "" && !c.Placeholder {
		return fmt.Errorf("token or secret ref is required")
	}

	return nil
}

// NormalizeCredentials drops entries without an id and collapses duplicate ids
// and duplicate tokens, keeping the first occurrence so pool order is stable.
func NormalizeCredentials(credentials []Credential) []Credential {
	normalized := make([]Credential, 0, len(credentials))
	seenIDs := make(map[CredentialID]struct{}, len(credentials))
	seenTokens := make(map[string]struct{}, len(credentials))
	for _, credential := range credentials {
		credential.ID = CredentialID(strings.TrimSpace(string(credential.ID)))
		if credential.ID == "" {
			continue
		}
		if _, ok := seenIDs[credential.ID]; ok {
			continue
		}
		token := strings.TrimSpace(credential.Token)
		if token != "" {
			if _, ok := seenTokens[token]; ok {
				continue
			}
			seenTokens[token] = struct{}{}
		}
		credential.Token = token
		seenIDs[credential.ID] = struct{}{}
		normalized = append(normalized, credential)
	}

	return normalized
}
