package main

import (
	"context"
	"fmt"
)

// CreateOptions is the configuration of [Program.Create].
type CreateOptions struct {
	Files              []string // Files of the input directory to include (nil: all)
	Folders            []string // Folders of the input directory to include (nil: all)
	Excludes           []string // Patterns of relative paths to skip
	CompressionVersion int      // Compression of the archive's leaves
	IncludeDots        bool     // Place all entries under a "." segment
}

// Create produces an archive of a directory tree. Every folder becomes a
// nested archive, every file a compressed leaf. Children are stored in the
// order the directory was read in.
//
// The input parameter specifies the root directory to package. The output
// parameter is the path of the archive to create, it is not left behind on
// failure. The ctx parameter controls early cancellation.
func (prog *Program) Create(ctx context.Context, input string, output string, opts CreateOptions) error {
	if err := validatePatterns(opts.Excludes); err != nil {
		return fmt.Errorf("invalid exclude: %w", err)
	}

	prog.log.Info("Reading input directory...")

	root, err := prog.LoadDirectory(ctx, input, LoadOptions{
		Files:    opts.Files,
		Folders:  opts.Folders,
		Excludes: opts.Excludes,
		Skip:     output,
	})
	if err != nil {
		return fmt.Errorf("failed to load input directory: %w", err)
	}

	prog.log.Info("Writing archive (this may take a while)...")

	cfg := EncodeConfig{
		CompressionVersion: opts.CompressionVersion,
		IncludeDots:        opts.IncludeDots,
		Observers:          []Observer{prog.progressObserver},
	}

	if err := prog.WriteArchive(ctx, root, output, cfg); err != nil {
		return fmt.Errorf("failure during create: %w", err)
	}

	prog.log.Info("Done")

	return nil
}
