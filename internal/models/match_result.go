package models

// Classification is the outcome of cross-referencing one IO point (or one
// leftover PLC tag) across the input sources.
type Classification string

const (
	ClassBoth       Classification = "Both"
	ClassRackOnly   Classification = "Rack Only"
	ClassIOListOnly Classification = "IO List Only"
	ClassPLCOnly    Classification = "PLC Only"
	ClassConflict   Classification = "Conflict"
	ClassSpare      Classification = "Spare"
)

// Confidence expresses how strong the evidence behind a match is.
type Confidence string

const (
	ConfidenceExact      Confidence = "Exact"
	ConfidenceHigh       Confidence = "High"
	ConfidencePartial    Confidence = "Partial"
	ConfidenceSupporting Confidence = "Supporting"
)

// MatchResult is one conclusion from the matching cascade: an IODevice
// paired with a PLCTag, an IODevice alone, or a PLCTag alone.
//
// The cascade appends at least one audit entry to every result it creates.
// The enrichment pass may mutate Classification, ConflictFlag, PLCTag,
// AuditTrail, and Sources exactly once; after enrichment the result is
// read-only and consumed by reporting. Reviewer and ReviewTimestamp are
// written by the review UI, never by the engine.
type MatchResult struct {
	IODevice        *IODevice      `json:"ioDevice,omitempty"`
	PLCTag          *PLCTag        `json:"plcTag,omitempty"`
	StrategyID      int            `json:"strategyId"` // 0 = no strategy matched
	Confidence      Confidence     `json:"confidence"`
	Classification  Classification `json:"classification"`
	ConflictFlag    bool           `json:"conflictFlag"`
	AuditTrail      []string       `json:"auditTrail"`
	Sources         []string       `json:"sources,omitempty"`
	Reviewer        string         `json:"reviewer,omitempty"`
	ReviewTimestamp string         `json:"reviewTimestamp,omitempty"`
}
