package main

import (
	"bytes"
	"context"
	"fmt"
)

// AddOptions is the configuration of [Program.Add].
type AddOptions struct {
	Files              []string // Files of the input directory to add (nil: all)
	Folders            []string // Folders of the input directory to add (nil: all)
	Excludes           []string // Patterns of relative paths to skip
	CompressionVersion int      // Compression of the written archive's leaves
}

// Add merges the contents of a directory into an existing archive and
// writes the result to output, which may be the input archive itself.
//
// The new entries are placed beside the archive's existing top-level
// entries, which are then sorted with [CompareNames]. Entries sharing a name
// with an existing entry do not replace it, both are kept. The input archive
// is left untouched unless the whole archive could be written.
func (prog *Program) Add(ctx context.Context, input string, addDir string, output string, opts AddOptions) error {
	if err := validatePatterns(opts.Excludes); err != nil {
		return fmt.Errorf("invalid exclude: %w", err)
	}

	prog.log.Info("Reading archive...")

	snap, err := prog.LoadSnapshot(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to load archive: %w", err)
	}
	defer snap.Root.Dispose() //nolint:errcheck

	if _, err := prog.fs.Stat(output); err == nil {
		prog.log.Warnf("Output file %s already exists, it will be overwritten", output)
	}

	prog.log.Info("Reading input directory...")

	dir, err := prog.LoadDirectory(ctx, addDir, LoadOptions{
		Files:    opts.Files,
		Folders:  opts.Folders,
		Excludes: opts.Excludes,
		Skip:     output,
	})
	if err != nil {
		return fmt.Errorf("failed to load input directory: %w", err)
	}

	added, err := prog.normalizeContent(ctx, dir, opts.CompressionVersion)
	if err != nil {
		return fmt.Errorf("failed to prepare input directory: %w", err)
	}
	defer added.Dispose() //nolint:errcheck

	prog.log.Info("Adding files...")

	if err := Merge(snap.contentRoot(), added); err != nil {
		return fmt.Errorf("failed to merge: %w", err)
	}

	prog.log.Info("Writing archive (this may take a while)...")

	cfg := EncodeConfig{
		CompressionVersion: opts.CompressionVersion,
		IncludeDots:        snap.HasDot,
		Observers:          []Observer{prog.progressObserver},
	}

	if err := prog.commitArchive(ctx, snap.Root, output, cfg); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	prog.log.Info("Done")

	return nil
}

// normalizeContent brings a freshly loaded tree into the form of a decoded
// archive, by encoding it to memory and decoding it again. Its folders turn
// into nested archives laid out exactly like those of existing archives.
// The input tree is consumed.
func (prog *Program) normalizeContent(ctx context.Context, root *Node, version int) (*Node, error) {
	var buf bytes.Buffer

	name := root.Name
	cfg := EncodeConfig{CompressionVersion: version}

	if err := prog.encodeArchive(ctx, root, &buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to encode: %w", err)
	}

	node, err := decodeArchive(ctx, name, buf.Bytes(), decodeOptions{Recursive: true})
	if err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}

	return node, nil
}
