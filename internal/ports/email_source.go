package ports

import (
	"context"

	"github.com/mikey/mail-lens/internal/core"
)

// EmailSource defines the interface for turning stored messages into email records
type EmailSource interface {
	// LoadDir parses every supported file in dir, skipping files that cannot be read
	LoadDir(ctx context.Context, dir string) ([]core.EmailRecord, error)

	// LoadFile parses a single message file
	LoadFile(ctx context.Context, path string) (core.EmailRecord, error)
}
