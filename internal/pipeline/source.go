package pipeline

import (
	"context"

	"github.com/couchcryptid/cty-prefix-service/internal/domain"
)

// FileSource reads snapshots from a cty.dat file on local disk.
// It implements Source.
type FileSource struct {
	path string
}

// NewFileSource creates a Source for the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load parses the file. The context is only checked before reading; a
// local file read is not interruptible.
func (s *FileSource) Load(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return domain.Load(s.path)
}
