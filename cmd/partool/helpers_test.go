package main

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// A helper filesystem for tests to simulate file creation failure.
type createErrorFs struct {
	afero.Fs
}

// A helper function for tests to simulate file creation failure.
func (e createErrorFs) Create(name string) (afero.File, error) {
	return nil, errors.New("simulated create failure")
}

// A helper filesystem for tests to simulate failures on one specific path.
type pathErrorFs struct {
	afero.Fs
	failPath string
}

// A helper function for tests to simulate stat failure.
func (e pathErrorFs) Stat(name string) (os.FileInfo, error) {
	if name == e.failPath {
		return nil, errors.New("simulated stat failure")
	}

	return e.Fs.Stat(name) //nolint:wrapcheck
}

// A helper function for tests to simulate open failure.
func (e pathErrorFs) Open(name string) (afero.File, error) {
	if name == e.failPath {
		return nil, errors.New("simulated open failure")
	}

	return e.Fs.Open(name) //nolint:wrapcheck
}

// A helper filesystem for tests recording all opened paths.
type recordingFs struct {
	afero.Fs

	mu     sync.Mutex
	opened []string
}

// A helper function for tests recording all opened paths.
func (r *recordingFs) Open(name string) (afero.File, error) {
	r.mu.Lock()
	r.opened = append(r.opened, name)
	r.mu.Unlock()

	return r.Fs.Open(name) //nolint:wrapcheck
}

// A helper content handle for tests counting its closes.
type countingContent struct {
	io.Reader
	closes int
}

// A helper function for tests counting closes.
func (c *countingContent) Close() error {
	c.closes++

	return nil
}

// A helper content handle for tests to simulate read failure.
type failingContent struct {
	closes int
}

// A helper function for tests to simulate read failure.
func (c *failingContent) Read([]byte) (int, error) {
	return 0, errors.New("simulated read failure")
}

// A helper function for tests counting closes.
func (c *failingContent) Close() error {
	c.closes++

	return nil
}

// A helper function for tests to build an in-memory leaf.
func memLeaf(name string, data string) *Node {
	return NewLeaf(name, newMemContent([]byte(data)))
}

// A helper function for tests to write files (with their contents) to a filesystem.
func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()

	for path, data := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(data), 0o644))
	}
}

// A helper function for tests to read all leaf contents of a tree by path.
func leafContents(t *testing.T, root *Node) map[string]string {
	t.Helper()

	contents := map[string]string{}
	require.NoError(t, root.Walk(func(p string, n *Node) error {
		if n.IsContainer() {
			return nil
		}

		data, err := n.ReadContent()
		if err != nil {
			return err
		}
		contents[p] = string(data)

		return nil
	}))

	return contents
}

// A helper function for tests to list all container paths of a tree.
func containerPaths(t *testing.T, root *Node) []string {
	t.Helper()

	var paths []string
	require.NoError(t, root.Walk(func(p string, n *Node) error {
		if n.IsContainer() {
			paths = append(paths, p)
		}

		return nil
	}))
	sort.Strings(paths)

	return paths
}

// A helper function for tests to list the names of a container's children.
func childNames(n *Node) []string {
	names := []string{}
	for _, c := range n.Children() {
		names = append(names, c.Name)
	}

	return names
}

// A helper function for tests to list the record names and kinds of an archive's top level.
func archiveRecords(t *testing.T, data []byte) []string {
	t.Helper()

	var records []string

	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)

		records = append(records, hdr.PAXRecords[paxKind]+":"+hdr.Name)
	}

	return records
}

// A helper function for tests to create an archive from files (with their contents).
func createArchive(t *testing.T, fs afero.Fs, output string, files map[string]string, includeDots bool) {
	t.Helper()

	root := NewContainer("root")
	dirs := map[string]*Node{"": root}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		segments := strings.Split(p, "/")
		parent := root
		for i, seg := range segments[:len(segments)-1] {
			key := strings.Join(segments[:i+1], "/")
			dir, ok := dirs[key]
			if !ok {
				dir = NewContainer(seg)
				parent.Add(dir)
				dirs[key] = dir
			}
			parent = dir
		}
		parent.Add(memLeaf(segments[len(segments)-1], files[p]))
	}

	prog := NewProgram(fs, io.Discard, io.Discard, nil)
	require.NoError(t, prog.WriteArchive(t.Context(), root, output, EncodeConfig{
		CompressionVersion: CompressionGzip,
		IncludeDots:        includeDots,
	}))
}

// A helper filesystem walker for tests to simulate filesystem walk errors.
type errorWalker struct{}

// A helper function for tests to simulate filesystem walk failure.
func (errorWalker) WalkDir(path string, fn fs.WalkDirFunc) error {
	return fn(path, nil, errors.New("simulated walk failure"))
}
