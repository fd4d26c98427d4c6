// Package dataset renders local reference records into the text block the
// grounding tier sends to the completion service.
package dataset

import (
	"fmt"
	"strings"
)

type Field struct {
	Name  string
	Value string
}

type Record []Field

// Format renders records as numbered "--- DATA KE-n ---" blocks. Empty values
// are skipped and a record with no values still takes its number.
func Format(records []Record) string {
	var b strings.Builder
	for i, record := range records {
		values := make([]string, 0, len(record))
		for _, field := range record {
			value := strings.TrimSpace(field.Value)
			if value == "" {
				continue
			}
			values = append(values, field.Name+": "+value)
		}
		fmt.Fprintf(&b, "--- DATA KE-%d ---\n%s\n\n", i+1, strings.Join(values, " | "))
	}
	return b.String()
}
