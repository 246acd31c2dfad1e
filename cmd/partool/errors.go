package main

import "errors"

var (
	// ErrNotFound is returned when an input path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrFileAccess is returned when a file cannot be opened or read.
	ErrFileAccess = errors.New("file access failure")

	// ErrCorruptArchive is returned when an archive cannot be decoded.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrCompressionFailure is returned when the compressor rejects a payload.
	ErrCompressionFailure = errors.New("compression failure")

	// ErrWriteFailure is returned when the output cannot be created or written.
	ErrWriteFailure = errors.New("write failure")

	// ErrContentConsumed is returned when a leaf's content is read a second time.
	ErrContentConsumed = errors.New("content already consumed")

	// ErrUnknownCompression is returned for an unsupported compression version.
	ErrUnknownCompression = errors.New("unknown compression version")
)
