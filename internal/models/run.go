package models

// RunStatus represents the status of a crosscheck run.
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusError    RunStatus = "error"
)

// CrosscheckRun tracks one execution of the matching cascade plus the
// optional enrichment pass over a set of uploaded input files.
type CrosscheckRun struct {
	ID               string    `json:"id"`
	PLCFileID        string    `json:"plcFileId"`
	IOListFileID     string    `json:"ioListFileId"`
	L5XFileID        string    `json:"l5xFileId,omitempty"`
	RulesFileID      string    `json:"rulesFileId,omitempty"`
	Sheet            string    `json:"sheet,omitempty"`
	Status           RunStatus `json:"status"`
	Progress         float64   `json:"progress"` // 0-100
	Error            string    `json:"error,omitempty"`
	TagCount         int       `json:"tagCount,omitempty"`
	DeviceCount      int       `json:"deviceCount,omitempty"`
	ResultCount      int       `json:"resultCount,omitempty"`
	ConflictCount    int       `json:"conflictCount,omitempty"`
	Enriched         bool      `json:"enriched"`
	ProcessingTimeMs int64     `json:"processingTimeMs,omitempty"`
	StartTime        int64     `json:"startTime,omitempty"` // Unix ms
	EndTime          int64     `json:"endTime,omitempty"`   // Unix ms
}

// NewCrosscheckRun creates a run in pending status.
func NewCrosscheckRun(id, plcFileID, ioListFileID string) *CrosscheckRun {
	return &CrosscheckRun{
		ID:           id,
		PLCFileID:    plcFileID,
		IOListFileID: ioListFileID,
		Status:       RunStatusPending,
	}
}
