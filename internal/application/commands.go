package application

import "github.com/bnema/smartani/internal/domain"

type AddCredentialCommand struct {
	ID          domain.CredentialID
	Name        string
	Token       string
	Placeholder bool
}

type RemoveCredentialCommand struct {
	ID domain.CredentialID
}
