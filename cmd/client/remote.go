package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/upload-lab/internal/uploader"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <upload-id>",
		Short: "Show server-side processing status for an upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			client, err := opts.client(logger)
			if err != nil {
				return err
			}

			status, err := client.Status(cmd.Context(), args[0])
			if errors.Is(err, uploader.ErrNotFound) {
				fmt.Fprintf(opts.out, "%s: not ready\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(opts.out, "%s: %s/%s %d%% %s\n",
				args[0], status.Stage, status.SubStage, status.Progress, status.Message)
			if status.Error != "" {
				fmt.Fprintf(opts.out, "error: %s\n", status.Error)
			}
			return nil
		},
	}
}

func newCancelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <upload-id>",
		Short: "Cancel server-side processing for an upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			client, err := opts.client(logger)
			if err != nil {
				return err
			}

			if err := client.CancelProcessing(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "%s: processing canceled\n", args[0])
			return nil
		},
	}
}
