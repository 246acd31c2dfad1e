package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// LoadOptions controls which parts of a directory are loaded.
type LoadOptions struct {
	Name     string   // Name of the root container (default: directory name)
	Files    []string // Files of the root directory to load (nil: all)
	Folders  []string // Folders of the root directory to load (nil: all)
	Excludes []string // Patterns of relative paths to skip, at any depth
	Skip     string   // File never to load, such as the archive being written
}

// LoadDirectory recursively converts a directory into a container [Node].
//
// The Files and Folders filters only apply to the immediate children of the
// root directory, any subdirectories are always loaded entirely (excluding
// what matches Excludes). File contents are not read, and files are opened
// only when their content is first read. No tree is returned on failure.
func (prog *Program) LoadDirectory(ctx context.Context, dirPath string, opts LoadOptions) (*Node, error) {
	info, err := prog.fs.Stat(dirPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q: %w", ErrNotFound, dirPath, err)
		}

		return nil, fmt.Errorf("%w: failed to stat input directory: %w", ErrFileAccess, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrNotFound, dirPath)
	}

	name := opts.Name
	if name == "" {
		abs, err := filepath.Abs(dirPath)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain absolute path: %w", err)
		}
		name = filepath.Base(abs)
	}

	l := &dirLoader{prog: prog, excludes: opts.Excludes}

	if opts.Skip != "" {
		skip, err := filepath.Abs(opts.Skip)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain absolute path: %w", err)
		}
		l.skip = skip
	}

	return l.loadDir(ctx, dirPath, "", name, info, opts.Files, opts.Folders)
}

type dirLoader struct {
	prog     *Program
	excludes []string
	skip     string // Absolute path
}

func (l *dirLoader) isSkipped(filePath string) bool {
	if l.skip == "" {
		return false
	}

	abs, err := filepath.Abs(filePath)

	return err == nil && abs == l.skip
}

func (l *dirLoader) loadDir(ctx context.Context, dirPath string, relPath string, name string, info fs.FileInfo, files []string, folders []string) (_ *Node, retErr error) {
	prog := l.prog

	container := NewContainer(name)
	container.SetTag(tagFileInfo, info)

	defer func() {
		if retErr != nil {
			_ = container.Dispose()
		}
	}()

	if files == nil || folders == nil {
		foundFiles, foundFolders, err := prog.readDir(dirPath)
		if err != nil {
			return nil, err
		}

		if files == nil {
			files = foundFiles
		}
		if folders == nil {
			folders = foundFolders
		}
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to load directory: %w", err)
		}

		rel := filepath.Join(relPath, file)
		if excluded, err := isExcluded(rel, false, l.excludes); err != nil {
			return nil, fmt.Errorf("failed to check for exclusion: %w", err)
		} else if excluded {
			continue
		}

		filePath := filepath.Join(dirPath, file)

		if l.isSkipped(filePath) {
			prog.log.Warnf("skipping the output file inside the input directory: %s", filePath)

			continue
		}

		fi, err := prog.fs.Stat(filePath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to stat file: %w", ErrFileAccess, err)
		}
		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: %q is not a regular file", ErrFileAccess, filePath)
		}

		leaf := NewLeaf(filepath.Base(file), newFileContent(prog.fs, filePath))
		leaf.SetTag(tagFileInfo, fi)
		container.Add(leaf)
	}

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to load directory: %w", err)
		}

		rel := filepath.Join(relPath, folder)
		if excluded, err := isExcluded(rel, true, l.excludes); err != nil {
			return nil, fmt.Errorf("failed to check for exclusion: %w", err)
		} else if excluded {
			continue
		}

		folderPath := filepath.Join(dirPath, folder)

		fi, err := prog.fs.Stat(folderPath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to stat folder: %w", ErrFileAccess, err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("%w: %q is not a directory", ErrFileAccess, folderPath)
		}

		child, err := l.loadDir(ctx, folderPath, rel, filepath.Base(folder), fi, nil, nil)
		if err != nil {
			return nil, err
		}
		container.Add(child)
	}

	return container, nil
}

// readDir returns the names of the files and folders inside a directory,
// walking only its first level. Symbolic links are resolved, anything else
// is skipped with a warning.
func (prog *Program) readDir(dirPath string) ([]string, []string, error) {
	var files, folders []string

	// The trailing separator makes the walk follow a linked directory.
	root := strings.TrimSuffix(dirPath, string(filepath.Separator)) + string(filepath.Separator)

	if err := prog.fsWalker.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: failed to read directory: %w", ErrFileAccess, err)
		}

		if p == root {
			return nil
		}

		mode := d.Type()

		if mode&fs.ModeSymlink != 0 {
			target, err := prog.fs.Stat(p)
			if err != nil {
				return fmt.Errorf("%w: failed to resolve link: %w", ErrFileAccess, err)
			}
			mode = target.Mode()
		}

		switch {
		case mode.IsDir():
			folders = append(folders, d.Name())
		case mode.IsRegular():
			files = append(files, d.Name())
		default:
			prog.log.Warnf("skipping irregular file: %s", p)
		}

		if d.IsDir() {
			return filepath.SkipDir
		}

		return nil
	}); err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	return files, folders, nil
}
