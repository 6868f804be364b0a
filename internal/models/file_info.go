package models

import "time"

// FileInfo represents metadata about an uploaded file.
type FileInfo struct {
	Name       string    `json:"name"`
	Path       string    `json:"-"`
	Extension  string    `json:"extension"` // "csv" or "xlsx"
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}
