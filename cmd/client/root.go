package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JaimeStill/upload-lab/internal/catalog"
	"github.com/JaimeStill/upload-lab/internal/controller"
	"github.com/JaimeStill/upload-lab/internal/uploader"
	"github.com/JaimeStill/upload-lab/pkg/logging"
)

const (
	envServer  = "UPLOAD_SERVER"
	envCatalog = "UPLOAD_CATALOG"
)

type options struct {
	server       string
	catalogPath  string
	chunkSize    string
	pollInterval time.Duration
	logLevel     string
	yes          bool
	parallel     int
	picker       string

	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive func() bool
}

func defaultOptions() *options {
	return &options{
		server:       envOr(envServer, "http://localhost:8000"),
		catalogPath:  envOr(envCatalog, ".data/catalog"),
		chunkSize:    "1MiB",
		pollInterval: controller.DefaultPollInterval,
		logLevel:     string(logging.LevelWarn),
		parallel:     4,
		in:           os.Stdin,
		out:          os.Stdout,
		errOut:       os.Stderr,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:          "upload-client",
		Short:        "Upload documents and manage the local document catalog",
		SilenceUsage: true,
	}
	root.SetOut(opts.out)
	root.SetErr(opts.errOut)
	root.SetIn(opts.in)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", opts.server, "upload server base URL (env "+envServer+")")
	flags.StringVar(&opts.catalogPath, "catalog", opts.catalogPath, "document catalog directory (env "+envCatalog+")")
	flags.StringVar(&opts.chunkSize, "chunk-size", opts.chunkSize, "upload chunk size")
	flags.DurationVar(&opts.pollInterval, "poll-interval", opts.pollInterval, "processing status poll interval")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")

	root.AddCommand(
		newUploadCmd(opts),
		newResumeCmd(opts),
		newPinCmd(opts),
		newListCmd(opts),
		newOpenCmd(opts),
		newDeleteCmd(opts),
		newStatusCmd(opts),
		newCancelCmd(opts),
		newSeedCmd(opts),
	)

	return root
}

func (o *options) logger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWriter(&logging.Config{Level: level, Format: logging.FormatText}, o.errOut), nil
}

func (o *options) client(logger *slog.Logger) (*uploader.Client, error) {
	chunk, err := units.RAMInBytes(o.chunkSize)
	if err != nil {
		return nil, fmt.Errorf("invalid chunk size %q: %w", o.chunkSize, err)
	}
	if chunk <= 0 {
		return nil, fmt.Errorf("chunk size must be positive: %q", o.chunkSize)
	}
	return uploader.New(o.server, uploader.WithChunkSize(chunk), uploader.WithLogger(logger))
}

func (o *options) catalog(logger *slog.Logger) (*catalog.Catalog, error) {
	if err := os.MkdirAll(o.catalogPath, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	return catalog.Open(o.catalogPath, logger)
}

// withCatalog opens the logger and catalog for a command and closes the
// catalog afterwards.
func (o *options) withCatalog(fn func(logger *slog.Logger, lib *catalog.Catalog) error) error {
	logger, err := o.logger()
	if err != nil {
		return err
	}
	lib, err := o.catalog(logger)
	if err != nil {
		return err
	}
	defer lib.Close()
	return fn(logger, lib)
}
