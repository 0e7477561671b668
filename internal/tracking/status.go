// Package tracking records processing status and result descriptors per upload.
// Statuses follow a one-way lifecycle: uploaded, processing, then a terminal
// completed or failed. Terminal statuses are never overwritten and progress
// never decreases once processing has begun.
package tracking

import (
	"fmt"
	"time"
)

// Stage is the top-level processing stage of an upload.
type Stage string

const (
	StageUploaded   Stage = "uploaded"
	StageProcessing Stage = "processing"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Status is the pollable processing state of an upload.
type Status struct {
	UploadID  string    `json:"upload_id"`
	Stage     Stage     `json:"stage"`
	SubStage  string    `json:"sub_stage,omitempty"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Result is the artifact descriptor for an upload.
type Result struct {
	UploadID            string   `json:"upload_id"`
	Filename            string   `json:"filename"`
	Size                int64    `json:"size"`
	FileType            string   `json:"file_type"`
	CID                 string   `json:"cid,omitempty"`
	PageCount           int      `json:"page_count,omitempty"`
	SupportedOperations []string `json:"supported_operations"`
	PreviewChunks       []string `json:"preview_chunks"`
}

// CheckTransition validates replacing current with next. A nil current
// accepts any status.
func CheckTransition(current *Status, next Status) error {
	if next.Progress < 0 || next.Progress > 100 {
		return fmt.Errorf("%w: progress %d", ErrInvalidStatus, next.Progress)
	}

	switch next.Stage {
	case StageUploaded, StageProcessing, StageCompleted, StageFailed:
	default:
		return fmt.Errorf("%w: stage %q", ErrInvalidStatus, next.Stage)
	}

	if current == nil {
		return nil
	}

	if current.Stage.Terminal() {
		return fmt.Errorf("%w: upload %s is %s", ErrTerminal, current.UploadID, current.Stage)
	}

	if current.Stage == StageProcessing {
		if next.Stage == StageUploaded {
			return fmt.Errorf("%w: processing -> uploaded", ErrRegression)
		}
		if next.Stage != StageFailed && next.Progress < current.Progress {
			return fmt.Errorf("%w: progress %d -> %d", ErrRegression, current.Progress, next.Progress)
		}
	}

	return nil
}
