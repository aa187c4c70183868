package models

import "time"

// FileKind identifies what an uploaded input file contains.
type FileKind string

const (
	FileKindPLCCSV    FileKind = "plc_csv"
	FileKindIOListCSV FileKind = "iolist_csv"
	FileKindIOListXLS FileKind = "iolist_xlsx"
	FileKindL5X       FileKind = "l5x"
	FileKindRules     FileKind = "rules"
	FileKindUnknown   FileKind = "unknown"
)

// FileInfo represents metadata about an uploaded input file.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Kind       FileKind  `json:"kind"`
	UploadedAt time.Time `json:"uploadedAt"`
}
