package controller

import (
	"context"

	"github.com/JaimeStill/upload-lab/internal/catalog"
	"github.com/JaimeStill/upload-lab/internal/files"
)

// Choice resolves a duplicate upload.
type Choice int

const (
	OpenExisting Choice = iota
	UploadAnyway
)

func (c Choice) String() string {
	if c == UploadAnyway {
		return "upload_anyway"
	}
	return "open_existing"
}

// Prompter asks the user what to do when desc matches an existing document.
type Prompter interface {
	ResolveDuplicate(ctx context.Context, desc files.Descriptor, existing catalog.Document) (Choice, error)
}

// PromptFunc adapts a function to Prompter.
type PromptFunc func(ctx context.Context, desc files.Descriptor, existing catalog.Document) (Choice, error)

func (f PromptFunc) ResolveDuplicate(ctx context.Context, desc files.Descriptor, existing catalog.Document) (Choice, error) {
	return f(ctx, desc, existing)
}

// Always answers every duplicate prompt with c.
func Always(c Choice) Prompter {
	return PromptFunc(func(context.Context, files.Descriptor, catalog.Document) (Choice, error) {
		return c, nil
	})
}
