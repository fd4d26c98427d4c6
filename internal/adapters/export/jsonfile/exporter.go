// Package jsonfile writes session exchange logs to JSON files.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/ports"
)

const (
	exportDirMode   = 0o700
	exportFileMode  = 0o600
	timestampLayout = "20060102_150405"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type document struct {
	SessionID   string            `json:"session_id"`
	ChatHistory []domain.Exchange `json:"chat_history"`
	ExportedAt  time.Time         `json:"exported_at"`
}

type Exporter struct {
	dir   string
	clock ports.Clock
}

var _ ports.HistoryExporter = (*Exporter)(nil)

func NewExporter(dir string, clock ports.Clock) *Exporter {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Exporter{dir: dir, clock: clock}
}

// Export writes the exchanges to <dir>/chat_history_<session>_<timestamp>.json
// and returns the file path.
func (e *Exporter) Export(ctx context.Context, sessionKey string, exchanges []domain.Exchange) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sessionKey = domain.NormalizeSessionKey(sessionKey)
	if exchanges == nil {
		exchanges = []domain.Exchange{}
	}

	now := e.clock.Now()
	data, err := json.MarshalIndent(document{
		SessionID:   sessionKey,
		ChatHistory: exchanges,
		ExportedAt:  now,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode history export: %w", err)
	}

	if err := os.MkdirAll(e.dir, exportDirMode); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	name := fmt.Sprintf("chat_history_%s_%s.json", safeName(sessionKey), now.Format(timestampLayout))
	path := filepath.Join(e.dir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func safeName(sessionKey string) string {
	name := unsafeNameChars.ReplaceAllString(sessionKey, "_")
	if name == "" || name == "_" {
		return domain.DefaultSessionKey
	}
	return name
}

func writeFileAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp export file: %w", err)
	}
	if err := tempFile.Chmod(exportFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp export file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp export file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	cleanup = false

	return nil
}
