package main

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	paxKind        = "PARTOOL.kind"
	paxCompression = "PARTOOL.compression"
	paxSize        = "PARTOOL.size"

	kindFile    = "file"
	kindArchive = "archive"

	dotPrefix = "./"
)

// EventKind identifies the point of the encoding an [Event] was raised at.
type EventKind int

const (
	EventNestedArchiveCreating EventKind = iota // Before a nested archive is encoded
	EventNestedArchiveCreated                   // After a nested archive was encoded
	EventLeafCompressing                        // Before a leaf's content is compressed
)

// Event is a progress notification raised while encoding.
type Event struct {
	Kind EventKind
	Name string // Name of the node
	Path string // Slash-separated path of the node below the encoded root
}

// Observer receives progress notifications of a single encoding.
type Observer func(Event)

// EncodeConfig is the configuration for encoding a tree into an archive.
type EncodeConfig struct {
	CompressionVersion int        // Selects the leaf compression algorithm
	IncludeDots        bool       // Place the top-level entries under a "." segment
	Observers          []Observer // Notified in order, per encoding
}

type decodeOptions struct {
	Recursive bool // Expand nested archives into containers
}

// decodeArchive decodes an archive into a container named name.
// Leaves reference (sub-slices of) data, so it must not be modified afterwards.
// Records are either all placed under a "." segment or none of them are.
func decodeArchive(ctx context.Context, name string, data []byte, opts decodeOptions) (_ *Node, retErr error) {
	var dot *Node
	var plain bool

	root := NewContainer(name)

	defer func() {
		if retErr != nil {
			_ = root.Dispose()
		}
	}()

	tr := tar.NewReader(bytes.NewReader(data))
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode archive: %w", err)
		}

		hdr, err := tr.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: failed to read record header: %w", ErrCorruptArchive, err)
			}

			break // EOF
		}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read record %q: %w", ErrCorruptArchive, hdr.Name, err)
		}

		parent := root
		entryName := hdr.Name

		if strings.HasPrefix(entryName, dotPrefix) {
			if plain {
				return nil, fmt.Errorf("%w: record %q mixes \".\" and plain layouts", ErrCorruptArchive, hdr.Name)
			}
			if dot == nil {
				dot = NewContainer(dotName)
				root.Add(dot)
			}
			parent = dot
			entryName = strings.TrimPrefix(entryName, dotPrefix)
		} else {
			if dot != nil {
				return nil, fmt.Errorf("%w: record %q mixes \".\" and plain layouts", ErrCorruptArchive, hdr.Name)
			}
			plain = true
		}

		if entryName == "" || strings.Contains(entryName, "/") {
			return nil, fmt.Errorf("%w: invalid record name %q", ErrCorruptArchive, hdr.Name)
		}

		node, err := decodeRecord(ctx, entryName, hdr, payload, opts)
		if err != nil {
			return nil, err
		}

		parent.Add(node)
	}

	return root, nil
}

func decodeRecord(ctx context.Context, name string, hdr *tar.Header, payload []byte, opts decodeOptions) (*Node, error) {
	size, err := strconv.ParseInt(hdr.PAXRecords[paxSize], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid size of record %q: %w", ErrCorruptArchive, name, err)
	}

	switch kind := hdr.PAXRecords[paxKind]; kind {
	case kindArchive:
		if !opts.Recursive {
			leaf := NewLeaf(name, newMemContent(payload))
			leaf.SetTag(tagNestedArchive, true)
			leaf.SetTag(tagFileInfo, hdr.FileInfo())

			return leaf, nil
		}

		child, err := decodeArchive(ctx, name, payload, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to decode nested archive %q: %w", name, err)
		}
		child.SetTag(tagFileInfo, hdr.FileInfo())

		return child, nil

	case kindFile:
		version, err := strconv.Atoi(hdr.PAXRecords[paxCompression])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid compression of record %q: %w", ErrCorruptArchive, name, err)
		}

		if !isKnownCompression(version) {
			return nil, fmt.Errorf("%w: record %q: %w: %d", ErrCorruptArchive, name, ErrUnknownCompression, version)
		}

		leaf := NewLeaf(name, newCompressedContent(payload, version, size))
		leaf.SetTag(tagFileInfo, hdr.FileInfo())

		return leaf, nil

	default:
		return nil, fmt.Errorf("%w: record %q has unknown kind %q", ErrCorruptArchive, name, kind)
	}
}

type archiveEncoder struct {
	ctx         context.Context //nolint:containedctx
	cfg         EncodeConfig
	pgzipConfig *PgzipConfig
}

// encodeArchive encodes the tree below root into w as an archive.
// The tree is consumed: every content handle is released, also on failure.
func (prog *Program) encodeArchive(ctx context.Context, root *Node, w io.Writer, cfg EncodeConfig) error {
	defer func() {
		_ = root.Dispose()
	}()

	if !isKnownCompression(cfg.CompressionVersion) {
		return fmt.Errorf("%w: %w: %d", ErrCompressionFailure, ErrUnknownCompression, cfg.CompressionVersion)
	}

	enc := &archiveEncoder{
		ctx:         ctx,
		cfg:         cfg,
		pgzipConfig: prog.pgzipConfig,
	}

	top := root
	if dot := soleDotChild(root); dot != nil {
		top = dot
	}

	prefix := ""
	if cfg.IncludeDots {
		prefix = dotPrefix
	}

	return enc.writeContainer(w, top, "", prefix)
}

func (e *archiveEncoder) notify(kind EventKind, node *Node, p string) {
	for _, o := range e.cfg.Observers {
		o(Event{Kind: kind, Name: node.Name, Path: p})
	}
}

func (e *archiveEncoder) writeContainer(w io.Writer, container *Node, parentPath string, prefix string) error {
	tw := tar.NewWriter(w)

	for _, child := range container.children {
		if err := e.ctx.Err(); err != nil {
			return fmt.Errorf("failed to encode archive: %w", err)
		}

		if err := e.writeChild(tw, child, path.Join(parentPath, child.Name), prefix+child.Name); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("%w: failed to finalize archive: %w", ErrWriteFailure, err)
	}

	return nil
}

func (e *archiveEncoder) writeChild(tw *tar.Writer, child *Node, p string, recordName string) error {
	switch {
	case child.IsContainer():
		var buf bytes.Buffer

		e.notify(EventNestedArchiveCreating, child, p)

		if err := e.writeContainer(&buf, child, p, ""); err != nil {
			return err
		}

		e.notify(EventNestedArchiveCreated, child, p)

		return writeRecord(tw, recordName, child, kindArchive, 0, buf.Bytes(), int64(buf.Len()))

	case child.Tag(tagNestedArchive) == true:
		data, err := child.ReadContent()
		if err != nil {
			return fmt.Errorf("failed to read nested archive %q: %w", p, err)
		}

		return writeRecord(tw, recordName, child, kindArchive, 0, data, int64(len(data)))

	default:
		e.notify(EventLeafCompressing, child, p)

		data, err := child.ReadContent()
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", p, err)
		}

		payload, err := compress(data, e.cfg.CompressionVersion, e.pgzipConfig)
		if err != nil {
			return fmt.Errorf("failed to compress %q: %w", p, err)
		}

		return writeRecord(tw, recordName, child, kindFile, e.cfg.CompressionVersion, payload, int64(len(data)))
	}
}

func writeRecord(tw *tar.Writer, name string, node *Node, kind string, version int, payload []byte, size int64) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     baseFilePerms,
		ModTime:  time.Unix(0, 0),
		Size:     int64(len(payload)),
		Format:   tar.FormatPAX,
		PAXRecords: map[string]string{
			paxKind: kind,
			paxSize: strconv.FormatInt(size, 10),
		},
	}

	if kind == kindFile {
		hdr.PAXRecords[paxCompression] = strconv.Itoa(version)
	}

	if info, ok := node.Tag(tagFileInfo).(fs.FileInfo); ok {
		hdr.Mode = int64(info.Mode().Perm())
		hdr.ModTime = info.ModTime()
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%w: failed to write record header: %w", ErrWriteFailure, err)
	}

	if _, err := tw.Write(payload); err != nil {
		return fmt.Errorf("%w: failed to write record: %w", ErrWriteFailure, err)
	}

	return nil
}
