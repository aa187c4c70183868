// Package report renders a completed crosscheck run as XLSX, HTML, or
// markdown. All generators take the full result set in engine order and
// write to an io.Writer so the API layer can stream them.
package report

import (
	"fmt"

	"github.com/io-crosscheck/backend/internal/models"
)

// classificationOrder fixes the display order of outcome rows in the
// summary sections of every report format.
var classificationOrder = []models.Classification{
	models.ClassBoth,
	models.ClassRackOnly,
	models.ClassIOListOnly,
	models.ClassPLCOnly,
	models.ClassConflict,
	models.ClassSpare,
}

// Summary aggregates a result set by classification. MsgTags and
// ConsumedTags carry the inter-PLC traffic aliases captured during the
// enrichment pass; both are empty for non-enriched runs.
type Summary struct {
	Total            int               `json:"total"`
	Conflicts        int               `json:"conflicts"`
	ByClassification map[string]int    `json:"byClassification"`
	MsgTags          []models.AliasTag `json:"msgTags,omitempty"`
	ConsumedTags     []models.AliasTag `json:"consumedTags,omitempty"`
}

// BuildSummary counts results per classification and conflicts overall.
func BuildSummary(results []*models.MatchResult) Summary {
	s := Summary{
		Total:            len(results),
		ByClassification: make(map[string]int),
	}
	for _, r := range results {
		s.ByClassification[string(r.Classification)]++
		if r.ConflictFlag {
			s.Conflicts++
		}
	}
	return s
}

// Percentage formats a count as a share of the summary total.
func (s Summary) Percentage(count int) string {
	if s.Total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(count)/float64(s.Total)*100)
}

// Count returns the number of results with the given classification.
func (s Summary) Count(c models.Classification) int {
	return s.ByClassification[string(c)]
}
