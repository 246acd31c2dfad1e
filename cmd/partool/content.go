package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// fileContent is a content handle backed by a file on an [afero.Fs].
// The file is only opened on the first read, so that loading a large
// directory tree does not hold a descriptor for every file at once.
type fileContent struct {
	fs   afero.Fs
	path string
	file afero.File
}

func newFileContent(fs afero.Fs, path string) *fileContent {
	return &fileContent{fs: fs, path: path}
}

func (c *fileContent) Read(p []byte) (int, error) {
	if c.file == nil {
		f, err := c.fs.Open(c.path)
		if err != nil {
			return 0, fmt.Errorf("%w: failed to open file: %w", ErrFileAccess, err)
		}
		c.file = f
	}

	n, err := c.file.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: failed to read file: %w", ErrFileAccess, err)
	}

	return n, err //nolint:wrapcheck
}

func (c *fileContent) Close() error {
	if c.file == nil {
		return nil
	}

	err := c.file.Close()
	c.file = nil

	if err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	return nil
}

// memContent is a content handle backed by a memory buffer, which may
// well be a sub-slice of a larger buffer (such as an archive snapshot).
type memContent struct {
	*bytes.Reader
}

func newMemContent(data []byte) *memContent {
	return &memContent{bytes.NewReader(data)}
}

func (c *memContent) Close() error {
	c.Reset(nil)

	return nil
}

// compressedContent is a content handle over a compressed payload,
// decompressing it on the first read.
type compressedContent struct {
	payload []byte
	version int
	size    int64
	reader  *bytes.Reader
}

func newCompressedContent(payload []byte, version int, size int64) *compressedContent {
	return &compressedContent{payload: payload, version: version, size: size}
}

func (c *compressedContent) Read(p []byte) (int, error) {
	if c.reader == nil {
		if c.payload == nil {
			return 0, io.EOF
		}

		data, err := decompress(c.payload, c.version)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
		}

		if int64(len(data)) != c.size {
			return 0, fmt.Errorf("%w: size mismatch (expected %d, got %d)", ErrCorruptArchive, c.size, len(data))
		}

		c.payload = nil
		c.reader = bytes.NewReader(data)
	}

	return c.reader.Read(p) //nolint:wrapcheck
}

func (c *compressedContent) Close() error {
	c.payload = nil
	c.reader = nil

	return nil
}
