package ports

import "context"

// DatasetSource supplies the whole local reference corpus as one
// preformatted text blob.
type DatasetSource interface {
	Load(ctx context.Context) (string, error)
}
