package tracking_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/JaimeStill/upload-lab/internal/tracking"
)

func TestCheckTransition(t *testing.T) {
	uploaded := &tracking.Status{UploadID: "u1", Stage: tracking.StageUploaded, Progress: 100}
	processing := &tracking.Status{UploadID: "u1", Stage: tracking.StageProcessing, Progress: 40}
	completed := &tracking.Status{UploadID: "u1", Stage: tracking.StageCompleted, Progress: 100}
	failed := &tracking.Status{UploadID: "u1", Stage: tracking.StageFailed}

	tests := []struct {
		name    string
		current *tracking.Status
		next    tracking.Status
		wantErr error
	}{
		{"new status", nil, tracking.Status{Stage: tracking.StageProcessing, Progress: 10}, nil},
		{"uploaded to processing", uploaded, tracking.Status{Stage: tracking.StageProcessing, Progress: 10}, nil},
		{"processing advances", processing, tracking.Status{Stage: tracking.StageProcessing, Progress: 60}, nil},
		{"processing completes", processing, tracking.Status{Stage: tracking.StageCompleted, Progress: 100}, nil},
		{"processing fails", processing, tracking.Status{Stage: tracking.StageFailed, Progress: 0}, nil},
		{"progress regression", processing, tracking.Status{Stage: tracking.StageProcessing, Progress: 10}, tracking.ErrRegression},
		{"back to uploaded", processing, tracking.Status{Stage: tracking.StageUploaded, Progress: 100}, tracking.ErrRegression},
		{"completed is terminal", completed, tracking.Status{Stage: tracking.StageProcessing, Progress: 100}, tracking.ErrTerminal},
		{"failed is terminal", failed, tracking.Status{Stage: tracking.StageCompleted, Progress: 100}, tracking.ErrTerminal},
		{"unknown stage", nil, tracking.Status{Stage: "queued"}, tracking.ErrInvalidStatus},
		{"progress over 100", nil, tracking.Status{Stage: tracking.StageProcessing, Progress: 101}, tracking.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tracking.CheckTransition(tt.current, tt.next)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("CheckTransition() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckTransition() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{tracking.ErrNotFound, http.StatusNotFound},
		{tracking.ErrTerminal, http.StatusConflict},
		{tracking.ErrRegression, http.StatusConflict},
		{tracking.ErrInvalidStatus, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := tracking.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
