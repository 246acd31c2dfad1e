package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// WriteArchive encodes the tree below root into the output file, creating
// its parent directory if needed. The tree is consumed in the process.
//
// The output file is removed again on failure, but it is overwritten in
// place: callers that must keep a previous version of it intact should use
// [Program.commitArchive] instead.
func (prog *Program) WriteArchive(ctx context.Context, root *Node, output string, cfg EncodeConfig) (retErr error) {
	var creationDone bool

	defer func() {
		if retErr != nil {
			_ = root.Dispose()
		}
	}()

	if err := prog.fs.MkdirAll(filepath.Dir(output), baseFolderPerms); err != nil {
		return fmt.Errorf("%w: failed to create output directory: %w", ErrWriteFailure, err)
	}

	out, err := prog.fs.Create(output)
	if err != nil {
		return fmt.Errorf("%w: failed to create output file: %w", ErrWriteFailure, err)
	}

	defer func() {
		if !creationDone {
			_ = out.Close()
			_ = prog.fs.Remove(output)
		}
	}()

	bw := bufio.NewWriterSize(out, outputBufferSize)

	if err := prog.encodeArchive(ctx, root, bw, cfg); err != nil {
		return fmt.Errorf("failure during encode: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: failed to write output file: %w", ErrWriteFailure, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: failed to close output file: %w", ErrWriteFailure, err)
	}

	creationDone = true

	return nil
}

// commitArchive writes the archive to a temporary file next to the output
// and only renames it over the output once it was written completely. The
// temporary file takes over the permissions of the output it replaces. An
// output that does not exist yet is written directly, as there is nothing
// to be kept intact.
func (prog *Program) commitArchive(ctx context.Context, root *Node, output string, cfg EncodeConfig) (retErr error) {
	dir := filepath.Dir(output)

	existing, err := prog.fs.Stat(output)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return prog.WriteArchive(ctx, root, output, cfg)
		}
		_ = root.Dispose()

		return fmt.Errorf("%w: failed to stat output file: %w", ErrWriteFailure, err)
	}

	defer func() {
		if retErr != nil {
			_ = root.Dispose()
		}
	}()

	tmp, err := afero.TempFile(prog.fs, dir, "."+filepath.Base(output)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file: %w", ErrWriteFailure, err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if err := prog.WriteArchive(ctx, root, tmpPath, cfg); err != nil {
		_ = prog.fs.Remove(tmpPath)

		return err
	}

	if err := prog.fs.Chmod(tmpPath, existing.Mode().Perm()); err != nil {
		_ = prog.fs.Remove(tmpPath)

		return fmt.Errorf("%w: failed to set permissions of temporary file: %w", ErrWriteFailure, err)
	}

	if err := prog.fs.Rename(tmpPath, output); err != nil {
		_ = prog.fs.Remove(tmpPath)

		return fmt.Errorf("%w: failed to move archive into place: %w", ErrWriteFailure, err)
	}

	return nil
}

// progressObserver reports the progress of an encoding.
// Compressed leaf paths are the primary output and go to stdout.
func (prog *Program) progressObserver(ev Event) {
	switch ev.Kind {
	case EventNestedArchiveCreating:
		prog.log.Debugf("Creating nested archive %s...", ev.Path)
	case EventNestedArchiveCreated:
		prog.log.Debugf("Nested archive %s created", ev.Path)
	case EventLeafCompressing:
		prog.log.Debugf("Compressing %s...", ev.Path)
		fmt.Fprintln(prog.stdout, ev.Path)
	}
}
