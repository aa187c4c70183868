package crosscheck

import (
	"fmt"

	"github.com/io-crosscheck/backend/internal/models"
)

// Engine executes the matching strategies in priority order.
type Engine struct {
	strategies []Strategy
}

// NewEngine creates an engine with the standard cascade order.
func NewEngine() *Engine {
	return NewEngineWithRules(nil)
}

// NewEngineWithRules creates an engine with an optional operator rules
// overlay applied. Only the name-normalization strategy consumes the
// overlay; the cascade order never changes.
func NewEngineWithRules(rules *models.CrosscheckRules) *Engine {
	var extra []string
	if rules != nil {
		extra = rules.StripSuffixes
	}
	return &Engine{
		strategies: []Strategy{
			DirectCLXAddressMatch{},
			PLC5RackAddressMatch{},
			RackLevelTagExistence{},
			ENetModuleTagExtraction{},
			TagNameNormalizationMatch{ExtraSuffixes: extra},
		},
	}
}

// Run executes the full matching cascade.
//
// Phase 1 classifies every IO device: spare points short-circuit, then
// strategies run in order until one claims the device, with an IO List
// Only fallback. Phase 2 emits a PLC Only result for every ENet device
// TAG that no strategy consumed. Results keep input order — device
// results first, leftover PLC results after — so repeated runs over the
// same inputs produce identical output.
func (e *Engine) Run(devices []*models.IODevice, tags []*models.PLCTag) []*models.MatchResult {
	results := make([]*models.MatchResult, 0, len(devices))
	matchedTags := make(map[int]struct{}) // keyed by source line

	for _, dev := range devices {
		if IsSpare(dev.IOTag) {
			results = append(results, &models.MatchResult{
				IODevice:       dev,
				Classification: models.ClassSpare,
				Confidence:     models.ConfidenceExact,
				AuditTrail: []string{
					fmt.Sprintf("IO tag '%s' identified as spare — excluded from matching", dev.IOTag),
				},
			})
			continue
		}

		var result *models.MatchResult
		for _, strategy := range e.strategies {
			if result = strategy.Match(dev, tags); result != nil {
				break
			}
		}

		if result != nil {
			results = append(results, result)
			if result.PLCTag != nil && result.PLCTag.SourceLine != 0 {
				matchedTags[result.PLCTag.SourceLine] = struct{}{}
			}
			continue
		}

		results = append(results, &models.MatchResult{
			IODevice:       dev,
			Classification: models.ClassIOListOnly,
			Confidence:     models.ConfidenceExact,
			AuditTrail: []string{
				"No matching strategy found for IO device",
				fmt.Sprintf("IO tag: '%s', Device tag: '%s', Address: '%s'", dev.IOTag, dev.DeviceTag, dev.PLCAddress),
				fmt.Sprintf("Strategies evaluated: %v", e.strategyNames()),
			},
		})
	}

	// Phase 2: PLC-side ENet device tags never consumed by a match.
	for _, tag := range tags {
		if _, consumed := matchedTags[tag.SourceLine]; consumed {
			continue
		}
		if tag.RecordType == models.RecordTag && IsENetDeviceTag(tag) {
			results = append(results, &models.MatchResult{
				PLCTag:         tag,
				Classification: models.ClassPLCOnly,
				Confidence:     models.ConfidenceExact,
				AuditTrail: []string{
					fmt.Sprintf("PLC TAG '%s' has no matching IO List device", tag.Name),
					"Classified as PLC Only (ENet device)",
				},
			})
		}
	}

	return results
}

func (e *Engine) strategyNames() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}
