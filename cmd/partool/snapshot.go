package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// Snapshot is an archive decoded from an in-memory copy of its file.
type Snapshot struct {
	Root   *Node
	HasDot bool // The sole top-level child of Root is a "." container
}

// LoadSnapshot reads an archive fully into memory and decodes it with all
// nested archives expanded. As the tree only references the in-memory copy,
// the archive file may be overwritten or removed while the tree is in use.
func (prog *Program) LoadSnapshot(ctx context.Context, archivePath string) (*Snapshot, error) {
	data, err := afero.ReadFile(prog.fs, archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q: %w", ErrNotFound, archivePath, err)
		}

		return nil, fmt.Errorf("%w: failed to read archive: %w", ErrFileAccess, err)
	}

	root, err := decodeArchive(ctx, filepath.Base(archivePath), data, decodeOptions{Recursive: true})
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", archivePath, err)
	}

	return &Snapshot{
		Root:   root,
		HasDot: soleDotChild(root) != nil,
	}, nil
}

// contentRoot returns the container holding the archive's actual entries.
func (s *Snapshot) contentRoot() *Node {
	if s.HasDot {
		return soleDotChild(s.Root)
	}

	return s.Root
}
