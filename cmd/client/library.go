package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/upload-lab/internal/catalog"
)

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List documents in the local catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withCatalog(func(_ *slog.Logger, lib *catalog.Catalog) error {
				docs, err := lib.List()
				if err != nil {
					return err
				}
				if len(docs) == 0 {
					fmt.Fprintln(opts.out, "No documents.")
					return nil
				}

				table := tablewriter.NewWriter(opts.out)
				table.SetHeader([]string{"ID", "Title", "Status", "Type", "Pages", "Size", "Uploaded", "CID"})
				table.SetAutoWrapText(false)
				table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
				table.SetAlignment(tablewriter.ALIGN_LEFT)
				table.SetCenterSeparator("")
				table.SetColumnSeparator("")
				table.SetRowSeparator("")
				table.SetHeaderLine(false)
				table.SetBorder(false)
				table.SetTablePadding("\t")

				for _, d := range docs {
					table.Append([]string{
						d.ID,
						d.Title,
						string(d.Status),
						d.Type,
						strconv.Itoa(d.PageCount),
						units.HumanSize(float64(d.FileSize)),
						d.UploadDate.Local().Format(time.DateTime),
						d.CID,
					})
				}
				table.Render()
				return nil
			})
		},
	}
}

func newOpenCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "open <document-id>",
		Short: "Mark a document as opened",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCatalog(func(_ *slog.Logger, lib *catalog.Catalog) error {
				doc, err := lib.Touch(args[0], time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(opts.out, "%s (%s, %s)\n", doc.Title, doc.Status, doc.FileURI)
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Remove a document from the local catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCatalog(func(_ *slog.Logger, lib *catalog.Catalog) error {
				if err := lib.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(opts.out, "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the sample documents to the local catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withCatalog(func(_ *slog.Logger, lib *catalog.Catalog) error {
				added, err := lib.Seed(catalog.SeedDocuments(time.Now()))
				if err != nil {
					return err
				}
				fmt.Fprintf(opts.out, "Added %d sample documents\n", added)
				return nil
			})
		},
	}
}
