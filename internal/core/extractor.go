package core

import "context"

// TextExtractor turns a stored document into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}
