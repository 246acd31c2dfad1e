package main

import (
	"archive/tar"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testTree() *Node {
	root := NewContainer("root")
	sub := NewContainer("D")
	deeper := NewContainer("E")

	root.Add(memLeaf("a.txt", "alpha"))
	root.Add(sub)
	sub.Add(memLeaf("c.txt", "charlie"))
	sub.Add(deeper)
	deeper.Add(memLeaf("e.bin", strings.Repeat("echo", 1000)))
	root.Add(memLeaf("empty", ""))

	return root
}

// Expectation: Decoding an encoded tree should reproduce all leaf contents, for every compression version.
func Test_Codec_RoundTrip_Success(t *testing.T) {
	for _, version := range []int{CompressionNone, CompressionGzip, CompressionZstd, CompressionS2} {
		var buf bytes.Buffer

		prog := NewProgram(nil, io.Discard, io.Discard, nil)
		require.NoError(t, prog.encodeArchive(t.Context(), testTree(), &buf, EncodeConfig{CompressionVersion: version}))

		root, err := decodeArchive(t.Context(), "root", buf.Bytes(), decodeOptions{Recursive: true})
		require.NoError(t, err)

		require.Equal(t, []string{"D", "D/E"}, containerPaths(t, root))
		require.Equal(t, map[string]string{
			"a.txt":     "alpha",
			"D/c.txt":   "charlie",
			"D/E/e.bin": strings.Repeat("echo", 1000),
			"empty":     "",
		}, leafContents(t, root))
	}
}

// Expectation: The records should be laid out as files and nested archives in child order.
func Test_Codec_RecordLayout_Success(t *testing.T) {
	var buf bytes.Buffer

	prog := NewProgram(nil, io.Discard, io.Discard, nil)
	require.NoError(t, prog.encodeArchive(t.Context(), testTree(), &buf, EncodeConfig{CompressionVersion: CompressionGzip}))

	require.Equal(t, []string{"file:a.txt", "archive:D", "file:empty"}, archiveRecords(t, buf.Bytes()))
}

// Expectation: A "." segment should be added when including dots and be normalized away otherwise.
func Test_Codec_IncludeDots_Success(t *testing.T) {
	var dotted, plain bytes.Buffer

	prog := NewProgram(nil, io.Discard, io.Discard, nil)
	require.NoError(t, prog.encodeArchive(t.Context(), testTree(), &dotted, EncodeConfig{IncludeDots: true}))
	require.Equal(t, []string{"file:./a.txt", "archive:./D", "file:./empty"}, archiveRecords(t, dotted.Bytes()))

	root, err := decodeArchive(t.Context(), "root", dotted.Bytes(), decodeOptions{Recursive: true})
	require.NoError(t, err)
	require.NotNil(t, soleDotChild(root))
	require.Equal(t, []string{"a.txt", "D", "empty"}, childNames(soleDotChild(root)))

	require.NoError(t, prog.encodeArchive(t.Context(), root, &plain, EncodeConfig{IncludeDots: false}))
	require.Equal(t, []string{"file:a.txt", "archive:D", "file:empty"}, archiveRecords(t, plain.Bytes()))
}

// Expectation: All observers should be notified around nested archives and before each leaf.
func Test_Codec_Observers_Success(t *testing.T) {
	var first, second []Event
	var buf bytes.Buffer

	cfg := EncodeConfig{
		CompressionVersion: CompressionS2,
		Observers: []Observer{
			func(ev Event) { first = append(first, ev) },
			func(ev Event) { second = append(second, ev) },
		},
	}

	prog := NewProgram(nil, io.Discard, io.Discard, nil)
	require.NoError(t, prog.encodeArchive(t.Context(), testTree(), &buf, cfg))

	expected := []Event{
		{Kind: EventLeafCompressing, Name: "a.txt", Path: "a.txt"},
		{Kind: EventNestedArchiveCreating, Name: "D", Path: "D"},
		{Kind: EventLeafCompressing, Name: "c.txt", Path: "D/c.txt"},
		{Kind: EventNestedArchiveCreating, Name: "E", Path: "D/E"},
		{Kind: EventLeafCompressing, Name: "e.bin", Path: "D/E/e.bin"},
		{Kind: EventNestedArchiveCreated, Name: "E", Path: "D/E"},
		{Kind: EventNestedArchiveCreated, Name: "D", Path: "D"},
		{Kind: EventLeafCompressing, Name: "empty", Path: "empty"},
	}
	require.Equal(t, expected, first)
	require.Equal(t, expected, second)
}

// Expectation: Nested archives not expanded on decode should be passed through verbatim on encode.
func Test_Codec_NonRecursive_PassThrough_Success(t *testing.T) {
	var original, reencoded bytes.Buffer

	prog := NewProgram(nil, io.Discard, io.Discard, nil)
	require.NoError(t, prog.encodeArchive(t.Context(), testTree(), &original, EncodeConfig{CompressionVersion: CompressionZstd}))

	shallow, err := decodeArchive(t.Context(), "root", original.Bytes(), decodeOptions{Recursive: false})
	require.NoError(t, err)
	require.False(t, shallow.Child("D").IsContainer())
	require.Equal(t, true, shallow.Child("D").Tag(tagNestedArchive))

	require.NoError(t, prog.encodeArchive(t.Context(), shallow, &reencoded, EncodeConfig{CompressionVersion: CompressionZstd}))

	root, err := decodeArchive(t.Context(), "root", reencoded.Bytes(), decodeOptions{Recursive: true})
	require.NoError(t, err)
	require.Equal(t, "charlie", leafContents(t, root)["D/c.txt"])
}

// Expectation: Malformed input should be reported as a corrupt archive.
func Test_Codec_Decode_Garbage_Error(t *testing.T) {
	_, err := decodeArchive(t.Context(), "root", []byte("not an archive"), decodeOptions{Recursive: true})
	require.ErrorIs(t, err, ErrCorruptArchive)
}

// Expectation: Records without the expected metadata should be reported as a corrupt archive.
func Test_Codec_Decode_ForeignTar_Error(t *testing.T) {
	var buf bytes.Buffer

	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "a.txt", Typeflag: tar.TypeReg, Mode: 0o644, Size: 1}))
	_, err := tw.Write([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	_, err = decodeArchive(t.Context(), "root", buf.Bytes(), decodeOptions{Recursive: true})
	require.ErrorIs(t, err, ErrCorruptArchive)
}

// Expectation: A record with an unknown compression version should be reported as a corrupt archive.
func Test_Codec_Decode_UnknownCompression_Error(t *testing.T) {
	var buf bytes.Buffer

	tw := tar.NewWriter(&buf)
	require.NoError(t, writeRecord(tw, "a.txt", memLeaf("a.txt", ""), kindFile, 42, []byte("a"), 1))
	require.NoError(t, tw.Close())

	_, err := decodeArchive(t.Context(), "root", buf.Bytes(), decodeOptions{Recursive: true})
	require.ErrorIs(t, err, ErrCorruptArchive)
	require.ErrorIs(t, err, ErrUnknownCompression)
}

// Expectation: A corrupt nested archive should fail the whole decode.
func Test_Codec_Decode_CorruptNested_Error(t *testing.T) {
	var buf bytes.Buffer

	tw := tar.NewWriter(&buf)
	require.NoError(t, writeRecord(tw, "D", NewContainer("D"), kindArchive, 0, []byte("garbage"), 7))
	require.NoError(t, tw.Close())

	_, err := decodeArchive(t.Context(), "root", buf.Bytes(), decodeOptions{Recursive: true})
	require.ErrorIs(t, err, ErrCorruptArchive)
	require.ErrorContains(t, err, "nested archive")
}

// Expectation: A corrupt leaf payload should fail when the content is read.
func Test_Codec_Decode_CorruptPayload_Error(t *testing.T) {
	var buf bytes.Buffer

	tw := tar.NewWriter(&buf)
	require.NoError(t, writeRecord(tw, "a.txt", memLeaf("a.txt", ""), kindFile, CompressionGzip, []byte("garbage"), 10))
	require.NoError(t, tw.Close())

	root, err := decodeArchive(t.Context(), "root", buf.Bytes(), decodeOptions{Recursive: true})
	require.NoError(t, err)

	_, err = root.Child("a.txt").ReadContent()
	require.ErrorIs(t, err, ErrCorruptArchive)
}

// Expectation: An unknown compression version should fail the encode and still release all handles.
func Test_Codec_Encode_UnknownCompression_Error(t *testing.T) {
	content := &countingContent{Reader: strings.NewReader("a")}

	root := NewContainer("root")
	root.Add(NewLeaf("a.txt", content))

	prog := NewProgram(nil, io.Discard, io.Discard, nil)
	err := prog.encodeArchive(t.Context(), root, io.Discard, EncodeConfig{CompressionVersion: 42})
	require.ErrorIs(t, err, ErrCompressionFailure)
	require.Equal(t, 1, content.closes)
}

// Expectation: A failing leaf should abort the encode and still release every handle exactly once.
func Test_Codec_Encode_ReadFailure_Error(t *testing.T) {
	before := &countingContent{Reader: strings.NewReader("a")}
	failing := &failingContent{}
	after := &countingContent{Reader: strings.NewReader("c")}

	root := NewContainer("root")
	root.Add(NewLeaf("a", before))
	root.Add(NewLeaf("b", failing))
	root.Add(NewLeaf("c", after))

	prog := NewProgram(nil, io.Discard, io.Discard, nil)
	err := prog.encodeArchive(t.Context(), root, io.Discard, EncodeConfig{CompressionVersion: CompressionGzip})
	require.ErrorContains(t, err, "simulated read failure")

	require.Equal(t, 1, before.closes)
	require.Equal(t, 1, failing.closes)
	require.Equal(t, 1, after.closes)
}

// Expectation: Records mixing the "." layout with plain records should be reported as a corrupt archive.
func Test_Codec_Decode_MixedDotLayout_Error(t *testing.T) {
	for _, names := range [][]string{{"./a.txt", "b.txt"}, {"a.txt", "./b.txt"}} {
		var buf bytes.Buffer

		tw := tar.NewWriter(&buf)
		for _, name := range names {
			require.NoError(t, writeRecord(tw, name, memLeaf(name, ""), kindFile, CompressionNone, []byte("x"), 1))
		}
		require.NoError(t, tw.Close())

		_, err := decodeArchive(t.Context(), "root", buf.Bytes(), decodeOptions{Recursive: true})
		require.ErrorIs(t, err, ErrCorruptArchive)
		require.ErrorContains(t, err, "layouts")
	}
}
