package processing

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"path"

	"github.com/JaimeStill/upload-lab/internal/tracking"
	"github.com/JaimeStill/upload-lab/internal/transfer"
)

// NewTransferHooks records upload outcomes in store. A completed upload gets
// a result stub and an uploaded status. A failed transfer records a failed
// status, which a later successful resumption replaces.
func NewTransferHooks(store tracking.Store, logger *slog.Logger) transfer.Hooks {
	logger = logger.With("system", "processing", "hook", "transfer")

	return transfer.Hooks{
		OnComplete: func(ctx context.Context, u *transfer.Upload) {
			if current, err := store.GetStatus(ctx, u.ID); err == nil && current.Stage == tracking.StageFailed {
				store.Delete(ctx, u.ID)
			}

			_, err := store.UpdateResult(ctx, u.ID, func(r *tracking.Result) {
				r.Filename = u.Filename
				r.Size = u.Length
				r.FileType = declaredType(u)
				if r.SupportedOperations == nil {
					r.SupportedOperations = []string{}
				}
				if r.PreviewChunks == nil {
					r.PreviewChunks = []string{}
				}
			})
			if err != nil {
				logger.Error("record upload result failed", "upload_id", u.ID, "error", err)
			}

			err = store.SetStatus(ctx, tracking.Status{
				UploadID: u.ID,
				Stage:    tracking.StageUploaded,
				SubStage: "uploaded",
				Progress: 100,
				Message:  "Upload complete",
			})
			if err != nil {
				logger.Warn("record upload status failed", "upload_id", u.ID, "error", err)
			}
		},
		OnError: func(ctx context.Context, u *transfer.Upload, cause error) {
			err := store.SetStatus(ctx, tracking.Status{
				UploadID: u.ID,
				Stage:    tracking.StageFailed,
				Progress: 0,
				Message:  "Upload failed",
				Error:    cause.Error(),
			})
			if err != nil && !errors.Is(err, tracking.ErrTerminal) {
				logger.Error("record transfer failure failed", "upload_id", u.ID, "error", err)
			}
		},
	}
}

func declaredType(u *transfer.Upload) string {
	if t := u.Metadata["filetype"]; t != "" {
		return t
	}
	if t := mime.TypeByExtension(path.Ext(u.Filename)); t != "" {
		mediaType, _, err := mime.ParseMediaType(t)
		if err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}
