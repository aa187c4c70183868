package parser

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/io-crosscheck/backend/internal/models"
)

// sniffer decides whether an uploaded file is one input kind. Sniffers
// run in order; the first match wins.
type sniffer struct {
	kind  models.FileKind
	match func(name string, data []byte) bool
}

var sniffers = []sniffer{
	{models.FileKindL5X, func(name string, data []byte) bool {
		if strings.EqualFold(filepath.Ext(name), ".l5x") {
			return true
		}
		return bytes.Contains(head(data, 4096), []byte("RSLogix5000Content"))
	}},
	{models.FileKindIOListXLS, func(name string, data []byte) bool {
		ext := strings.ToLower(filepath.Ext(name))
		if ext == ".xlsx" || ext == ".xlsm" {
			return true
		}
		// XLSX is a zip container.
		return len(data) >= 4 && bytes.HasPrefix(data, []byte("PK\x03\x04"))
	}},
	{models.FileKindRules, func(name string, data []byte) bool {
		ext := strings.ToLower(filepath.Ext(name))
		return ext == ".yaml" || ext == ".yml"
	}},
	{models.FileKindPLCCSV, func(name string, data []byte) bool {
		return firstCellIsType(data)
	}},
	{models.FileKindIOListCSV, func(name string, data []byte) bool {
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			return false
		}
		return bytes.Contains(bytes.ToLower(head(data, 8192)), []byte("panel"))
	}},
}

// DetectKind sniffs an uploaded file's input kind from its name and
// leading bytes so the API can route uploads without the client naming
// the kind.
func DetectKind(name string, data []byte) models.FileKind {
	for _, s := range sniffers {
		if s.match(name, data) {
			return s.kind
		}
	}
	return models.FileKindUnknown
}

// firstCellIsType reports whether any of the first lines begins with a
// TYPE cell — the RSLogix export header (a preamble may precede it).
func firstCellIsType(data []byte) bool {
	lines := bytes.Split(head(data, 8192), []byte("\n"))
	for i, line := range lines {
		if i >= 20 {
			break
		}
		cell := line
		if comma := bytes.IndexByte(line, ','); comma >= 0 {
			cell = line[:comma]
		}
		cell = bytes.Trim(bytes.TrimSpace(cell), `"`)
		if strings.EqualFold(string(cell), "TYPE") {
			return true
		}
	}
	return false
}

func head(data []byte, n int) []byte {
	if len(data) > n {
		return data[:n]
	}
	return data
}
