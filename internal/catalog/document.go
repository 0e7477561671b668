package catalog

import (
	"time"

	"github.com/JaimeStill/upload-lab/internal/tracking"
)

// Status is the catalog view of a document's processing state.
type Status string

const (
	StatusSynced     Status = "synced"
	StatusProcessing Status = "processing"
	StatusError      Status = "error"
)

// Document is a locally persisted record of an uploaded file.
type Document struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	UploadDate time.Time  `json:"uploadDate"`
	Status     Status     `json:"status"`
	Type       string     `json:"type"`
	PageCount  int        `json:"pageCount"`
	LastOpened *time.Time `json:"lastOpened,omitempty"`
	FileURI    string     `json:"fileUri,omitempty"`
	FileSize   int64      `json:"fileSize"`
	MIMEType   string     `json:"mimeType,omitempty"`
	CID        string     `json:"cid,omitempty"`
	UploadID   string     `json:"uploadId,omitempty"`
}

// ProjectStatus maps a server processing stage onto a document status.
func ProjectStatus(stage tracking.Stage) Status {
	switch stage {
	case tracking.StageCompleted:
		return StatusSynced
	case tracking.StageFailed:
		return StatusError
	default:
		return StatusProcessing
	}
}

// legacyDocument is the documents:v1 record, which predates MIME type,
// content identifiers and server upload ids.
type legacyDocument struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	UploadDate time.Time  `json:"uploadDate"`
	Status     Status     `json:"status"`
	Type       string     `json:"type"`
	PageCount  int        `json:"pageCount"`
	LastOpened *time.Time `json:"lastOpened,omitempty"`
	FileURI    string     `json:"fileUri,omitempty"`
	FileSize   int64      `json:"fileSize"`
}

var legacyTypes = map[string]string{
	"pdf":  "application/pdf",
	"csv":  "text/csv",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (l legacyDocument) upgrade() Document {
	return Document{
		ID:         l.ID,
		Title:      l.Title,
		UploadDate: l.UploadDate,
		Status:     l.Status,
		Type:       l.Type,
		PageCount:  l.PageCount,
		LastOpened: l.LastOpened,
		FileURI:    l.FileURI,
		FileSize:   l.FileSize,
		MIMEType:   legacyTypes[l.Type],
	}
}
