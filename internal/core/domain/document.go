package domain

import (
	"io"
	"strings"
)

type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusProcessed DocumentStatus = "processed"
	StatusFailed    DocumentStatus = "failed"
)

type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeTXT  FileType = "txt"
)

// MaxUploadBytes is the largest file accepted for upload (10 MiB).
const MaxUploadBytes int64 = 10 * 1024 * 1024

type Document struct {
	ID          string         `json:"id" validate:"required"`
	Filename    string         `json:"filename" validate:"required"`
	FileType    FileType       `json:"file_type"`
	UploadDate  Timestamp      `json:"upload_date"`
	ChunksCount int            `json:"chunks_count" validate:"gte=0"`
	Status      DocumentStatus `json:"status" validate:"omitempty,oneof=pending processed failed"`
}

// UploadFile is a candidate file handed to the upload flow.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileTypeFromName returns the file type for name based on its last extension,
// case-insensitively. ok is false for unsupported extensions.
func FileTypeFromName(name string) (FileType, bool) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "", false
	}
	switch strings.ToLower(name[idx:]) {
	case ".pdf":
		return FileTypePDF, true
	case ".docx":
		return FileTypeDOCX, true
	case ".txt":
		return FileTypeTXT, true
	default:
		return "", false
	}
}
