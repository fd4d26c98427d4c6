// Package sqlite loads the reference dataset from a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bnema/smartani/internal/adapters/dataset"
	"github.com/bnema/smartani/internal/ports"

	_ "modernc.org/sqlite"
)

const DefaultTable = "chatbot_dataset"

// Columns are read in this order; url_gambar_thumbnail is left out.
var Columns = []string{"judul", "link", "tanggal", "ringkasan", "isi_artikel"}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Source struct {
	path  string
	table string
}

var _ ports.DatasetSource = (*Source)(nil)

func NewSource(path string, table string) (*Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("dataset path is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid dataset table name %q", table)
	}

	return &Source{path: path, table: table}, nil
}

func (s *Source) Load(ctx context.Context) (string, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return "", fmt.Errorf("open dataset %s: %w", s.path, err)
	}
	defer func() { _ = db.Close() }()

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(Columns, ", "), s.table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query dataset table %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()

	var records []dataset.Record
	for rows.Next() {
		values := make([]sql.NullString, len(Columns))
		targets := make([]any, len(Columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return "", fmt.Errorf("scan dataset row: %w", err)
		}

		record := make(dataset.Record, 0, len(Columns))
		for i, column := range Columns {
			if values[i].Valid {
				record = append(record, dataset.Field{Name: column, Value: values[i].String})
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("read dataset rows: %w", err)
	}

	return dataset.Format(records), nil
}
