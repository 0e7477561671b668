// Package transfer implements the server side of the tus 1.0.0 resumable
// upload protocol with the creation and termination extensions. Upload
// bytes are appended to the blob store and each upload keeps a JSON sidecar
// so an in-progress transfer survives a restart.
package transfer

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Upload is a single resumable transfer.
type Upload struct {
	ID         string            `json:"id"`
	Length     int64             `json:"length"`
	Offset     int64             `json:"offset"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Filename   string            `json:"filename"`
	StorageKey string            `json:"storage_key"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Complete reports whether every declared byte has been received.
func (u *Upload) Complete() bool {
	return u.Offset == u.Length
}

// Remaining returns the number of bytes still expected.
func (u *Upload) Remaining() int64 {
	return u.Length - u.Offset
}

// CreateCommand carries the parameters of a creation request.
type CreateCommand struct {
	Length   int64
	Metadata map[string]string
	// Filename takes precedence over the metadata filename when set.
	Filename string
}

const (
	dataPrefix      = "uploads"
	defaultFilename = "upload"
	maxFilenameLen  = 128
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ResolveFilename picks the stored name for an upload: the explicit header
// value, then the filename or name metadata entry, then "upload".
func ResolveFilename(header string, metadata map[string]string) string {
	for _, candidate := range []string{header, metadata["filename"], metadata["name"]} {
		if name := SanitizeFilename(candidate); name != "" {
			return name
		}
	}
	return defaultFilename
}

// SanitizeFilename strips directory components and replaces characters
// outside [A-Za-z0-9._-]. Returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}

	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, "._")

	if len(name) > maxFilenameLen {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxFilenameLen-len(ext)] + ext
	}
	return name
}

func storageKey(filename string) string {
	prefix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return path.Join(dataPrefix, prefix+"-"+filename)
}

func infoKey(id string) string {
	return path.Join(dataPrefix, id+".info")
}
