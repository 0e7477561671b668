package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/upload-lab/internal/catalog"
	"github.com/JaimeStill/upload-lab/internal/controller"
	"github.com/JaimeStill/upload-lab/internal/files"
	"github.com/JaimeStill/upload-lab/internal/uploader"
)

func newUploadCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload, pin and process one or more documents",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.picker != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.picker != "" {
				return runPicked(cmd.Context(), opts, opts.picker)
			}
			return runUpload(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "upload duplicates without prompting")
	cmd.Flags().IntVar(&opts.parallel, "parallel", opts.parallel, "maximum concurrent uploads")
	cmd.Flags().StringVar(&opts.picker, "picker", "", "upload the file described by a document picker result (JSON file, - for stdin)")

	return cmd
}

func newResumeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <document-id> <file>",
		Short: "Continue an interrupted upload from the server's offset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd.Context(), opts, args[0], args[1])
		},
	}
}

func newPinCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <file>",
		Short: "Upload a file and pin it without processing or cataloging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPin(cmd.Context(), opts, args[0])
		},
	}
}

// console serializes writes and prompts from concurrent sessions.
type console struct {
	mu      sync.Mutex
	out     io.Writer
	in      *bufio.Reader
	percent map[string]int
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) progress(s *controller.Session, p uploader.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.percent[s.ID]; ok && last == p.Percent {
		return
	}
	c.percent[s.ID] = p.Percent

	line := fmt.Sprintf("%s: %d%% (%s / %s)", s.Descriptor.Name, p.Percent,
		units.BytesSize(float64(p.BytesUploaded)), units.BytesSize(float64(p.BytesTotal)))
	if eta := s.ETA(); eta != "" {
		line += ", " + eta + " left"
	}
	fmt.Fprintln(c.out, line)
}

func (c *console) ResolveDuplicate(ctx context.Context, desc files.Descriptor, existing catalog.Document) (controller.Choice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "%q (%s) is already in your library.\n[o]pen existing or [u]pload anyway? ",
		existing.Title, units.BytesSize(float64(existing.FileSize)))

	answer, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && answer != "") {
		return controller.OpenExisting, err
	}
	if ctx.Err() != nil {
		return controller.OpenExisting, ctx.Err()
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "u", "upload":
		return controller.UploadAnyway, nil
	default:
		return controller.OpenExisting, nil
	}
}

func (o *options) controller(logger *slog.Logger, lib *catalog.Catalog) (*controller.Controller, *console, error) {
	client, err := o.client(logger)
	if err != nil {
		return nil, nil, err
	}

	con := &console{
		out:     o.out,
		in:      bufio.NewReader(o.in),
		percent: make(map[string]int),
	}

	var prompter controller.Prompter
	switch {
	case o.yes:
		prompter = controller.Always(controller.UploadAnyway)
	case o.interactive != nil && o.interactive():
		prompter = con
	default:
		prompter = controller.Always(controller.OpenExisting)
	}

	ctrl := controller.New(client, lib, controller.Config{
		PollInterval: o.pollInterval,
		Prompter:     prompter,
		Telemetry:    controller.NewLogTelemetry(logger),
		Hooks: controller.Hooks{
			OnProgress: con.progress,
			OnState: func(s *controller.Session, _, to controller.State) {
				if to == controller.StatePinning || to == controller.StateProcessing {
					con.printf("%s: %s\n", s.Descriptor.Name, to)
				}
			},
			OnToast: func(s *controller.Session, msg string) {
				con.printf("%s: %s\n", s.Descriptor.Name, msg)
			},
			OnBanner: func(s *controller.Session, msg string) {
				con.printf("%s: %s\n", s.Descriptor.Name, msg)
			},
			OnOpen: func(s *controller.Session, doc catalog.Document) {
				con.printf("%s: opening existing document %s\n", s.Descriptor.Name, doc.ID)
			},
		},
	}, logger)

	return ctrl, con, nil
}

// report prints a finished session. Cancellation is printed and returned.
func (c *console) report(desc files.Descriptor, outcome *controller.Outcome, err error) error {
	switch {
	case errors.Is(err, controller.ErrCanceled):
		c.printf("%s: canceled\n", desc.Name)
		return err
	case err != nil:
		return fmt.Errorf("%s: %w", desc.Name, err)
	case outcome.State == controller.StateReady:
		c.printf("%s: %s %s\n", desc.Name, outcome.Document.ID, outcome.Document.CID)
	}
	return nil
}

func runUpload(ctx context.Context, opts *options, paths []string) error {
	descs := make([]files.Descriptor, 0, len(paths))
	for _, p := range paths {
		desc, err := files.FromPath(p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		descs = append(descs, desc)
	}

	return opts.withCatalog(func(logger *slog.Logger, lib *catalog.Catalog) error {
		ctrl, con, err := opts.controller(logger, lib)
		if err != nil {
			return err
		}

		var g errgroup.Group
		if opts.parallel > 0 {
			g.SetLimit(opts.parallel)
		}

		for _, desc := range descs {
			g.Go(func() error {
				outcome, err := ctrl.Run(ctx, desc)
				return con.report(desc, outcome, err)
			})
		}

		return g.Wait()
	})
}

// runPicked uploads the single file described by a document picker result.
// A canceled pick is not an error.
func runPicked(ctx context.Context, opts *options, source string) error {
	var r io.Reader = opts.in
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("open picker result: %w", err)
		}
		defer f.Close()
		r = f
	}

	var picked files.PickerResult
	if err := json.NewDecoder(r).Decode(&picked); err != nil {
		return fmt.Errorf("decode picker result: %w", err)
	}

	desc, err := files.Normalize(picked)
	switch {
	case errors.Is(err, files.ErrCanceled):
		fmt.Fprintln(opts.out, "No file selected.")
		return nil
	case err != nil:
		return fmt.Errorf("picker result: %w", err)
	}

	return opts.withCatalog(func(logger *slog.Logger, lib *catalog.Catalog) error {
		ctrl, con, err := opts.controller(logger, lib)
		if err != nil {
			return err
		}
		outcome, err := ctrl.Run(ctx, desc)
		return con.report(desc, outcome, err)
	})
}

func runResume(ctx context.Context, opts *options, docID, path string) error {
	desc, err := files.FromPath(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return opts.withCatalog(func(logger *slog.Logger, lib *catalog.Catalog) error {
		ctrl, con, err := opts.controller(logger, lib)
		if err != nil {
			return err
		}
		outcome, err := ctrl.Resume(ctx, docID, desc)
		return con.report(desc, outcome, err)
	})
}

func runPin(ctx context.Context, opts *options, path string) error {
	desc, err := files.FromPath(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	logger, err := opts.logger()
	if err != nil {
		return err
	}
	client, err := opts.client(logger)
	if err != nil {
		return err
	}

	body, err := os.Open(path)
	if err != nil {
		return err
	}
	defer body.Close()

	pin, err := client.UploadAndPin(ctx, desc, body, uploader.Options{})
	if err != nil {
		return fmt.Errorf("%s: %w", desc.Name, err)
	}

	fmt.Fprintf(opts.out, "%s %s %s in %s\n", desc.Name, pin.CID,
		units.BytesSize(float64(pin.Bytes)), pin.Duration.Round(time.Millisecond))
	return nil
}
