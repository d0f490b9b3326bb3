package storage

import (
	"context"
	"io"
	"path"
)

const ContentTypeJSON = "application/json"

// Uploader writes an object and returns where it was stored.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// ReportObject is the object name of a finished interview report.
func ReportObject(ownerID, interviewID string) string {
	return path.Join("reports", ownerID, interviewID+".json")
}
