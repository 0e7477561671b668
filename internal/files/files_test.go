package files_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/upload-lab/internal/files"
)

func TestFromPath(t *testing.T) {
	dir := t.TempDir()

	pdf := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4\n%%EOF\n"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := files.FromPath(pdf)
	if err != nil {
		t.Fatalf("FromPath() failed: %v", err)
	}
	if d.Name != "report.pdf" || d.Size != 15 || d.MIMEType != "application/pdf" {
		t.Errorf("descriptor = %+v, want report.pdf/15/application/pdf", d)
	}
	if !strings.HasPrefix(d.URI, "file://") {
		t.Errorf("URI = %q, want file:// scheme", d.URI)
	}

	path, err := d.Path()
	if err != nil {
		t.Fatalf("Path() failed: %v", err)
	}
	if path != filepath.ToSlash(pdf) {
		t.Errorf("Path() = %q, want %q", path, pdf)
	}
}

func TestFromPath_SniffsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.unknownext")
	if err := os.WriteFile(path, []byte("%PDF-1.7\n1 0 obj\n"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := files.FromPath(path)
	if err != nil {
		t.Fatalf("FromPath() failed: %v", err)
	}
	if d.MIMEType != "application/pdf" {
		t.Errorf("MIMEType = %q, want application/pdf", d.MIMEType)
	}
}

func TestFromPath_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := files.FromPath(filepath.Join(dir, "missing.pdf")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("FromPath(missing) error = %v, want not exist", err)
	}
	if _, err := files.FromPath(dir); err == nil {
		t.Error("FromPath(dir) succeeded, want error")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    files.Descriptor
		wantErr error
	}{
		{
			name:    "assets shape",
			payload: `{"canceled":false,"assets":[{"uri":"file:///docs/a.pdf","name":"a.pdf","size":42,"mimeType":"application/pdf"}]}`,
			want:    files.Descriptor{Name: "a.pdf", Size: 42, MIMEType: "application/pdf", URI: "file:///docs/a.pdf"},
		},
		{
			name:    "legacy success shape",
			payload: `{"type":"success","uri":"file:///docs/b.csv","name":"b.csv","size":7,"mimeType":"text/csv; charset=utf-8"}`,
			want:    files.Descriptor{Name: "b.csv", Size: 7, MIMEType: "text/csv", URI: "file:///docs/b.csv"},
		},
		{
			name:    "name from uri",
			payload: `{"assets":[{"uri":"file:///docs/c.xlsx"}]}`,
			want:    files.Descriptor{Name: "c.xlsx", URI: "file:///docs/c.xlsx"},
		},
		{
			name:    "assets canceled",
			payload: `{"canceled":true,"assets":null}`,
			wantErr: files.ErrCanceled,
		},
		{
			name:    "legacy cancel",
			payload: `{"type":"cancel"}`,
			wantErr: files.ErrCanceled,
		},
		{
			name:    "empty assets",
			payload: `{"canceled":false,"assets":[]}`,
			wantErr: files.ErrNoFile,
		},
		{
			name:    "unknown type",
			payload: `{"type":"picked","uri":"file:///x"}`,
			wantErr: files.ErrInvalidShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p files.PickerResult
			if err := json.Unmarshal([]byte(tt.payload), &p); err != nil {
				t.Fatalf("Unmarshal() failed: %v", err)
			}

			got, err := files.Normalize(p)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Normalize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name  string
		d     files.Descriptor
		valid bool
	}{
		{"valid", files.Descriptor{Name: "a.pdf", Size: 1, URI: "file:///a.pdf"}, true},
		{"missing name", files.Descriptor{Size: 1, URI: "file:///a.pdf"}, false},
		{"missing uri", files.Descriptor{Name: "a.pdf"}, false},
		{"negative size", files.Descriptor{Name: "a.pdf", Size: -1, URI: "file:///a.pdf"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if (err == nil) != tt.valid {
				t.Errorf("Validate() error = %v, want valid=%v", err, tt.valid)
			}
		})
	}
}
