package main

const (
	rootHelpShort = "partool creates and updates archives mirroring directory trees."

	rootHelpLong = `partool creates and updates archives mirroring directory trees.

Every folder of a directory tree is stored as a nested archive inside the
archive of its parent, while every file is stored as a compressed leaf entry.
Existing archives can be extended with new directory content, which is merged
beside the archive's existing entries and sorted case-insensitively by name,
or have entries removed from them. The output may be the input archive itself.
It supports these commands:

  create - build an archive from a given directory tree
  add    - merge the contents of a directory into an existing archive
  remove - remove matching entries from an existing archive

All commands print the paths of the written files to standard output (stdout).
Any encountered errors and operational messages are printed to standard error (stderr).

Compression versions (--compression, -c):
  0 - none
  1 - gzip (default)
  2 - zstd
  3 - s2

Exit Codes:
  0 - Success
  2 - General failure (invalid input, I/O errors, etc.)

For detailed help on a specific command, run:
  partool help <command>`

	createHelpShort = "Create an archive from any given directory tree"

	createHelpLong = `Create an archive from any given directory tree.

The command will recursively include all files and folders under <input-folder>,
excluding paths specified using the --exclude flags (which can be used multiple times).
The --files and --folders flags restrict which entries directly inside <input-folder>
are included; folders selected this way are always included with all their contents.

All paths written to the archive will be printed to standard output (stdout), any errors
or other relevant operational output will be printed to standard error (stderr) respectively.
The command will return with an exit code 0 in case of success; an exit code 2 for any errors.`

	createExample = `
# Create an archive of the current directory:
partool create . output.par

# Create an archive with zstd compression, excluding a specific folder:
partool create ./data data.par -c 2 --exclude=cache/

# Create an archive of only some of the top-level entries:
partool create ./data data.par --files=a.bin,b.bin --folders=textures`

	addHelpShort = "Add the contents of a directory to an existing archive"

	addHelpLong = `Add the contents of a directory to an existing archive.

The command reads <input-archive> completely into memory, merges the contents of
<input-folder> beside its top-level entries and writes the result to <output-archive>.
Since the input archive is held in memory, <output-archive> may be the same file as
<input-archive>. The output is only replaced once it was written completely.

The top-level entries are sorted case-insensitively by name after merging. Entries of
<input-folder> that share their name with an existing entry do not replace it; both
entries will be contained in the resulting archive.

All paths written to the archive will be printed to standard output (stdout), any errors
or other relevant operational output will be printed to standard error (stderr) respectively.
The command will return with an exit code 0 in case of success; an exit code 2 for any errors.`

	addExample = `
# Add the contents of a folder to an archive, in place:
partool add data.par ./patch data.par

# Add only some files of a folder, writing a new archive:
partool add data.par ./patch patched.par --files=a.bin --folders=""`

	removeHelpShort = "Remove matching entries from an existing archive"

	removeHelpLong = `Remove matching entries from an existing archive.

The command reads <input-archive> completely into memory, removes all entries whose
slash-separated paths match any of the given patterns and writes the result to
<output-archive>, which may be the same file as <input-archive>. Patterns support
globbing ('*', '**', '?', '[...]'); removing a folder removes all of its contents.

In case no entries matched the patterns, a separate <output-archive> receives all
entries unchanged, while an in-place removal writes nothing. The command will return
with an exit code 0 in case of success; an exit code 2 for any errors.`

	removeExample = `
# Remove a single file from an archive, in place:
partool remove data.par data.par textures/old.bin

# Remove all .tmp files at any depth:
partool remove data.par cleaned.par '**/*.tmp'`
)
