package controller

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"

	"github.com/JaimeStill/upload-lab/internal/files"
)

// MaxDocumentSize is the product limit, well below the transfer ceiling.
const MaxDocumentSize = 25 * units.MiB

var kindTypes = map[string]string{
	"pdf":  "application/pdf",
	"csv":  "text/csv",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var mimeKinds = map[string]string{
	"application/pdf":          "pdf",
	"text/csv":                 "csv",
	"application/csv":          "csv",
	"application/vnd.ms-excel": "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xlsx",
}

// Policy decides which files may be uploaded.
type Policy struct {
	MaxSize int64
}

// DefaultPolicy accepts pdf, csv, xls and xlsx files up to 25 MiB.
func DefaultPolicy() Policy {
	return Policy{MaxSize: MaxDocumentSize}
}

// Validate returns the document kind for desc. The declared MIME type is
// checked first; the filename suffix decides when the type is missing or
// unrecognized.
func (p Policy) Validate(desc files.Descriptor) (string, error) {
	if err := desc.Validate(); err != nil {
		return "", &ValidationError{
			Reason:  ReasonInvalidFile,
			Message: "The selected file could not be read.",
		}
	}

	kind, ok := Kind(desc)
	if !ok {
		return "", &ValidationError{
			Reason:  ReasonUnsupportedType,
			Message: "Unsupported file type. Please choose a PDF, CSV or Excel file.",
		}
	}

	limit := p.MaxSize
	if limit <= 0 {
		limit = MaxDocumentSize
	}
	if desc.Size > limit {
		return "", &ValidationError{
			Reason: ReasonTooLarge,
			Message: fmt.Sprintf("File is too large (%s). Maximum size is %s.",
				units.BytesSize(float64(desc.Size)), units.BytesSize(float64(limit))),
		}
	}

	return kind, nil
}

// Kind infers the document kind of desc.
func Kind(desc files.Descriptor) (string, bool) {
	mimeType, _, _ := strings.Cut(strings.ToLower(desc.MIMEType), ";")
	if kind, ok := mimeKinds[strings.TrimSpace(mimeType)]; ok {
		return kind, true
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(desc.Name)), ".")
	if _, ok := kindTypes[ext]; ok {
		return ext, true
	}
	return "", false
}

// MIMEType returns the canonical MIME type for a document kind.
func MIMEType(kind string) string {
	return kindTypes[kind]
}
