// Package csv loads the reference dataset from a CSV export with a header row.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bnema/smartani/internal/adapters/dataset"
	"github.com/bnema/smartani/internal/ports"
)

type Source struct {
	path string
}

var _ ports.DatasetSource = (*Source)(nil)

func NewSource(path string) (*Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("dataset path is required")
	}
	return &Source{path: path}, nil
}

// Load keeps every column in header order.
func (s *Source) Load(ctx context.Context) (string, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return "", fmt.Errorf("open dataset %s: %w", s.path, err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read dataset header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []dataset.Record
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read dataset row %d: %w", len(records)+1, err)
		}

		record := make(dataset.Record, 0, len(header))
		for i, name := range header {
			if i >= len(row) {
				break
			}
			record = append(record, dataset.Field{Name: name, Value: row[i]})
		}
		records = append(records, record)
	}

	return dataset.Format(records), nil
}
