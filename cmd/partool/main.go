/*
partool creates and updates archives mirroring directory trees.

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

Exit Codes:

	0 - Success
	2 - General failure (invalid input, I/O errors, etc.)
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	pgzip "github.com/klauspost/pgzip"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const (
	baseFilePerms   = 0o666
	baseFolderPerms = 0o777

	outputBufferSize = 1 << 20

	exitTimeout     = 10 * time.Second
	exitCodeSuccess = 0
	exitCodeFailure = 2
)

var (
	// Version is automatically populated by the build process (Makefile).
	Version string

	//nolint:mnd
	pgzipConfigDefault = PgzipConfig{
		BlockSize:        1 << 20,                   // Approximate size of blocks
		BlockCount:       runtime.GOMAXPROCS(0),     // Amount of blocks processing in parallel
		CompressionLevel: pgzip.DefaultCompression, // Target level for compression
	}
)

// Program is the primary structure of the application.
type Program struct {
	fs       afero.Fs
	fsWalker Walker

	stdout io.Writer
	stderr io.Writer
	log    *logrus.Logger

	pgzipConfig *PgzipConfig
}

// NewProgram returns a pointer to a new [Program].
func NewProgram(fs afero.Fs, stdout io.Writer, stderr io.Writer, pgzipConfig *PgzipConfig) *Program {
	var walker Walker

	if fs == nil {
		fs = afero.NewOsFs()
	}

	if stdout == nil {
		stdout = os.Stdout
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	if pgzipConfig == nil {
		cfg := pgzipConfigDefault
		pgzipConfig = &cfg
	}

	if _, ok := fs.(*afero.OsFs); ok {
		walker = OSWalker{}
	} else {
		walker = AferoWalker{FS: fs}
	}

	return &Program{
		fs:          fs,
		fsWalker:    walker,
		stdout:      stdout,
		stderr:      stderr,
		log:         newLogger(stderr),
		pgzipConfig: pgzipConfig,
	}
}

func newRootCmd(ctx context.Context, fs afero.Fs, stdout io.Writer, stderr io.Writer) *cobra.Command {
	var quiet, verbose bool

	rootCmd := &cobra.Command{
		Use:               "partool",
		Short:             rootHelpShort,
		Long:              rootHelpLong,
		Version:           Version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print warnings and errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print detailed progress")

	newProgram := func(cfg *PgzipConfig) *Program {
		prog := NewProgram(fs, stdout, stderr, cfg)

		switch {
		case verbose:
			prog.log.SetLevel(logrus.DebugLevel)
		case quiet:
			prog.log.SetLevel(logrus.WarnLevel)
		}

		return prog
	}

	var createOpts CreateOptions
	createCompressorConfig := pgzipConfigDefault
	createCmd := &cobra.Command{
		Use:     "create <input-folder> <output-archive>",
		Short:   createHelpShort,
		Long:    createHelpLong,
		Example: createExample,
		Args:    cobra.ExactArgs(2), //nolint:mnd
		RunE: func(_ *cobra.Command, args []string) error {
			prog := newProgram(&createCompressorConfig)

			return prog.Create(ctx, args[0], args[1], createOpts)
		},
	}
	createCmd.Flags().IntVarP(&createOpts.CompressionVersion, "compression", "c", defaultCompression, "compression version (0: none, 1: gzip, 2: zstd, 3: s2)")
	createCmd.Flags().BoolVar(&createOpts.IncludeDots, "include-dots", false, "place all entries under a top-level '.' folder")
	createCmd.Flags().StringSliceVar(&createOpts.Files, "files", nil, "files inside the root of the input folder to include")
	createCmd.Flags().StringSliceVar(&createOpts.Folders, "folders", nil, "folders inside the root of the input folder to include")
	createCmd.Flags().StringArrayVar(&createOpts.Excludes, "exclude", nil, "path to exclude; can be repeated multiple times")
	createCmd.Flags().IntVar(&createCompressorConfig.BlockSize, "blocksize", pgzipConfigDefault.BlockSize, "block size for gzip compressing")
	createCmd.Flags().IntVar(&createCompressorConfig.BlockCount, "blockcount", pgzipConfigDefault.BlockCount, "blocks to gzip compress in parallel")

	var addOpts AddOptions
	addCompressorConfig := pgzipConfigDefault
	addCmd := &cobra.Command{
		Use:     "add <input-archive> <input-folder> <output-archive>",
		Short:   addHelpShort,
		Long:    addHelpLong,
		Example: addExample,
		Args:    cobra.ExactArgs(3), //nolint:mnd
		RunE: func(_ *cobra.Command, args []string) error {
			prog := newProgram(&addCompressorConfig)

			return prog.Add(ctx, args[0], args[1], args[2], addOpts)
		},
	}
	addCmd.Flags().IntVarP(&addOpts.CompressionVersion, "compression", "c", defaultCompression, "compression version (0: none, 1: gzip, 2: zstd, 3: s2)")
	addCmd.Flags().StringSliceVar(&addOpts.Files, "files", nil, "files inside the root of the input folder to add")
	addCmd.Flags().StringSliceVar(&addOpts.Folders, "folders", nil, "folders inside the root of the input folder to add")
	addCmd.Flags().StringArrayVar(&addOpts.Excludes, "exclude", nil, "path to exclude; can be repeated multiple times")
	addCmd.Flags().IntVar(&addCompressorConfig.BlockSize, "blocksize", pgzipConfigDefault.BlockSize, "block size for gzip compressing")
	addCmd.Flags().IntVar(&addCompressorConfig.BlockCount, "blockcount", pgzipConfigDefault.BlockCount, "blocks to gzip compress in parallel")

	var removeVersion int
	removeCompressorConfig := pgzipConfigDefault
	removeCmd := &cobra.Command{
		Use:     "remove <input-archive> <output-archive> <pattern>...",
		Short:   removeHelpShort,
		Long:    removeHelpLong,
		Example: removeExample,
		Args:    cobra.MinimumNArgs(3), //nolint:mnd
		RunE: func(_ *cobra.Command, args []string) error {
			prog := newProgram(&removeCompressorConfig)
			_, err := prog.Remove(ctx, args[0], args[1], args[2:], removeVersion)

			return err
		},
	}
	removeCmd.Flags().IntVarP(&removeVersion, "compression", "c", defaultCompression, "compression version (0: none, 1: gzip, 2: zstd, 3: s2)")
	removeCmd.Flags().IntVar(&removeCompressorConfig.BlockSize, "blocksize", pgzipConfigDefault.BlockSize, "block size for gzip compressing")
	removeCmd.Flags().IntVar(&removeCompressorConfig.BlockCount, "blockcount", pgzipConfigDefault.BlockCount, "blocks to gzip compress in parallel")

	rootCmd.AddCommand(createCmd, addCmd, removeCmd)

	return rootCmd
}

func main() {
	var exitCode int

	defer func() {
		os.Exit(exitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		rootCmd := newRootCmd(ctx, afero.NewOsFs(), os.Stdout, os.Stderr)
		errChan <- rootCmd.Execute()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			exitCode = exitCodeFailure
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		} else {
			exitCode = exitCodeSuccess
		}

	case <-sigChan:
		fmt.Fprintln(os.Stderr, "interrupting...")
		cancel()

		select {
		case <-errChan:
			exitCode = exitCodeFailure
			fmt.Fprintln(os.Stderr, "interrupted (exited)")
		case <-time.After(exitTimeout):
			exitCode = exitCodeFailure
			fmt.Fprintln(os.Stderr, "interrupted (killed)")
		}
	}
}
