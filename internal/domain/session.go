package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

const (
	DefaultSessionKey = "default"

	// PendingExternalAnswer stands in for the first answer when the first
	// question escalated past the local dataset.
	PendingExternalAnswer = "[searching externally]"
)

type Turn struct {
	Role    Role
	Content string
}

type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

type Exchange struct {
	ID             string      `json:"id"`
	Timestamp      time.Time   `json:"timestamp"`
	Question       string      `json:"query"`
	Tier           OutcomeKind `json:"tier"`
	ReferenceCount int         `json:"scholar_refs"`
	Response       string      `json:"response"`
	ProcessingTime float64     `json:"processing_time"`
}

type FirstTurn struct {
	Question string
	Answer   string
}

type SessionSnapshot struct {
	Key        string
	CreatedAt  time.Time
	TurnCount  int
	FirstTurn  *FirstTurn
	History    []Turn
	Exchanges  []Exchange
	Injections int
}

func NormalizeSessionKey(key string) string {
	if key == "" {
		return DefaultSessionKey
	}
	return key
}
