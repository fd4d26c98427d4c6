package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version     int                `toml:"version"`
	Credentials []credentialSchema `toml:"credentials"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported credentials schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

// credentialSchema never carries the token itself, only the secret store ref.
type credentialSchema struct {
	ID          string `toml:"id"`
	Name        string `toml:"name,omitempty"`
	SecretRef   string `toml:"secret_ref,omitempty"`
	Placeholder bool   `toml:"placeholder,omitempty"`
}
