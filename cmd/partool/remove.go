package main

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"slices"
)

// Remove deletes all entries matching any of the patterns from an archive
// and writes the result to output, which may be the input archive itself.
// Patterns are matched against the slash-separated paths of the entries,
// removing a nested archive removes everything inside of it.
//
// It returns the amount of removed entries. If none matched, an in-place
// removal writes nothing, while a separate output still receives the
// unchanged entries. The input archive is left untouched unless the whole
// archive could be written.
func (prog *Program) Remove(ctx context.Context, input string, output string, patterns []string, version int) (int, error) {
	if err := validatePatterns(patterns); err != nil {
		return 0, fmt.Errorf("invalid pattern: %w", err)
	}

	prog.log.Info("Reading archive...")

	snap, err := prog.LoadSnapshot(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("failed to load archive: %w", err)
	}
	defer snap.Root.Dispose() //nolint:errcheck

	removed, err := removeMatching(snap.contentRoot(), "", patterns)
	if err != nil {
		return 0, fmt.Errorf("failed to remove: %w", err)
	}

	if removed == 0 {
		same, err := samePath(input, output)
		if err != nil {
			return 0, err
		}

		if same {
			prog.log.Warn("No entries matched, nothing to do")

			return 0, nil
		}

		prog.log.Warn("No entries matched, writing the archive unchanged")
	} else {
		prog.log.Infof("Removed %d entries, writing archive (this may take a while)...", removed)
	}

	cfg := EncodeConfig{
		CompressionVersion: version,
		IncludeDots:        snap.HasDot,
		Observers:          []Observer{prog.progressObserver},
	}

	if err := prog.commitArchive(ctx, snap.Root, output, cfg); err != nil {
		return 0, fmt.Errorf("failed to write archive: %w", err)
	}

	prog.log.Info("Done")

	return removed, nil
}

func removeMatching(container *Node, parent string, patterns []string) (int, error) {
	var removed int
	var matchErr error

	container.children = slices.DeleteFunc(container.children, func(child *Node) bool {
		if matchErr != nil {
			return false
		}

		p := path.Join(parent, child.Name)

		matched, err := isExcluded(p, child.IsContainer(), patterns)
		if err != nil {
			matchErr = err

			return false
		}

		if matched {
			_ = child.Dispose()
			removed++
		}

		return matched
	})
	if matchErr != nil {
		return 0, matchErr
	}

	for _, child := range container.children {
		if !child.IsContainer() {
			continue
		}

		n, err := removeMatching(child, path.Join(parent, child.Name), patterns)
		if err != nil {
			return 0, err
		}
		removed += n
	}

	return removed, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("failed to obtain absolute path: %w", err)
	}

	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("failed to obtain absolute path: %w", err)
	}

	return absA == absB, nil
}
