// Package files turns the various ways a file can be chosen into a single
// Descriptor shape the upload controller works with.
package files

import (
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Descriptor identifies a local file selected for upload.
type Descriptor struct {
	Name     string `json:"name" validate:"required,max=255"`
	Size     int64  `json:"size" validate:"gte=0"`
	MIMEType string `json:"mime_type" validate:"omitempty,max=255"`
	URI      string `json:"uri" validate:"required,uri"`
}

// Validate checks the descriptor's required fields.
func (d Descriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid file descriptor: %w", err)
	}
	return nil
}

// Path returns the local filesystem path for file:// URIs.
func (d Descriptor) Path() (string, error) {
	u, err := url.Parse(d.URI)
	if err != nil {
		return "", fmt.Errorf("parse uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return u.Path, nil
}

// FromPath describes the file at path. The MIME type comes from the
// extension when it is registered, otherwise from the file's content.
func FromPath(path string) (Descriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Descriptor{}, err
	}
	if info.IsDir() {
		return Descriptor{}, fmt.Errorf("%s is a directory", path)
	}

	mimeType := mediaType(mime.TypeByExtension(filepath.Ext(abs)))
	if mimeType == "" {
		mt, err := mimetype.DetectFile(abs)
		if err != nil {
			return Descriptor{}, fmt.Errorf("detect content type: %w", err)
		}
		mimeType = mediaType(mt.String())
	}

	d := Descriptor{
		Name:     info.Name(),
		Size:     info.Size(),
		MIMEType: mimeType,
		URI:      (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
	}
	return d, d.Validate()
}

func mediaType(v string) string {
	t, _, _ := strings.Cut(v, ";")
	return strings.TrimSpace(t)
}
