package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	got := Format([]Record{
		{{Name: "judul", Value: "Menanam padi"}, {Name: "link", Value: ""}, {Name: "ringkasan", Value: " Air cukup "}},
		{{Name: "judul", Value: "Kompos"}},
	})

	assert.Equal(t, "--- DATA KE-1 ---\njudul: Menanam padi | ringkasan: Air cukup\n\n--- DATA KE-2 ---\njudul: Kompos\n\n", got)
	assert.Empty(t, Format(nil))
}
