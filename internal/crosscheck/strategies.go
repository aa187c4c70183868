package crosscheck

import (
	"fmt"
	"strings"

	"github.com/io-crosscheck/backend/internal/models"
)

// Strategy is one rule in the matching cascade. Strategies are stateless;
// Match scans the full PLC tag set and returns nil when the strategy
// declines the device.
type Strategy interface {
	ID() int
	Name() string
	Match(dev *models.IODevice, tags []*models.PLCTag) *models.MatchResult
}

// DirectCLXAddressMatch is strategy 1: the device's CLX address matches a
// COMMENT record's bit-level specifier. Names are then compared to split
// Both from Conflict.
type DirectCLXAddressMatch struct{}

func (DirectCLXAddressMatch) ID() int      { return 1 }
func (DirectCLXAddressMatch) Name() string { return "Direct CLX Address Match" }

func (s DirectCLXAddressMatch) Match(dev *models.IODevice, tags []*models.PLCTag) *models.MatchResult {
	if dev.AddressFormat != models.FormatCLX || dev.PLCAddress == "" {
		return nil
	}

	normAddr := NormalizeAddress(dev.PLCAddress)

	for _, tag := range tags {
		if tag.RecordType != models.RecordComment || tag.Specifier == "" {
			continue
		}
		if NormalizeAddress(tag.Specifier) != normAddr {
			continue
		}

		// Address matches — check whether the device name agrees too.
		ioBase := NormalizeTag(dev.IOTag)
		devBase := NormalizeTag(dev.DeviceTag)
		plcDesc := strings.ToLower(strings.TrimSpace(tag.Description))

		nameMatches := (plcDesc != "" && (plcDesc == ioBase || plcDesc == devBase)) ||
			plcDesc == "" || ioBase == ""

		if nameMatches {
			return &models.MatchResult{
				IODevice:       dev,
				PLCTag:         tag,
				StrategyID:     s.ID(),
				Confidence:     models.ConfidenceExact,
				Classification: models.ClassBoth,
				AuditTrail: []string{
					"Strategy 1: Direct CLX Address Match",
					fmt.Sprintf("IO address '%s' matches PLC COMMENT specifier '%s' (case-insensitive)", dev.PLCAddress, tag.Specifier),
					fmt.Sprintf("PLC description: '%s', IO tag: '%s', Device tag: '%s'", tag.Description, dev.IOTag, dev.DeviceTag),
				},
			}
		}
		return &models.MatchResult{
			IODevice:       dev,
			PLCTag:         tag,
			StrategyID:     s.ID(),
			Confidence:     models.ConfidenceExact,
			Classification: models.ClassConflict,
			ConflictFlag:   true,
			AuditTrail: []string{
				"Strategy 1: Direct CLX Address Match — CONFLICT",
				fmt.Sprintf("IO address '%s' matches PLC COMMENT specifier '%s'", dev.PLCAddress, tag.Specifier),
				fmt.Sprintf("BUT device names differ: IO='%s' vs PLC='%s'", dev.DeviceTag, tag.Description),
			},
		}
	}
	return nil
}

// PLC5RackAddressMatch is strategy 2: the PLC5 address base (up to the
// first dot) matches a TAG record name exactly.
type PLC5RackAddressMatch struct{}

func (PLC5RackAddressMatch) ID() int      { return 2 }
func (PLC5RackAddressMatch) Name() string { return "PLC5 Rack Address Match" }

func (s PLC5RackAddressMatch) Match(dev *models.IODevice, tags []*models.PLCTag) *models.MatchResult {
	if dev.AddressFormat != models.FormatPLC5 || dev.PLCAddress == "" {
		return nil
	}

	addr := strings.TrimSpace(dev.PLCAddress)
	addrBase := strings.ToLower(addr)
	if dot := strings.Index(addr, "."); dot > 0 {
		addrBase = strings.ToLower(addr[:dot])
	}

	for _, tag := range tags {
		if tag.RecordType != models.RecordTag {
			continue
		}
		if strings.ToLower(strings.TrimSpace(tag.Name)) == addrBase {
			return &models.MatchResult{
				IODevice:       dev,
				PLCTag:         tag,
				StrategyID:     s.ID(),
				Confidence:     models.ConfidenceExact,
				Classification: models.ClassBoth,
				AuditTrail: []string{
					"Strategy 2: PLC5 Rack Address Match",
					fmt.Sprintf("IO address base '%s' matches PLC TAG name '%s' (case-insensitive)", addrBase, tag.Name),
				},
			}
		}
	}
	return nil
}

// RackLevelTagExistence is strategy 3: no per-point COMMENT was found, but
// the parent rack TAG (e.g. Rack11:I) exists in the PLC export. This
// confirms the rack infrastructure without bit-level evidence, so the
// result is Rack Only at partial confidence.
type RackLevelTagExistence struct{}

func (RackLevelTagExistence) ID() int      { return 3 }
func (RackLevelTagExistence) Name() string { return "Rack-Level TAG Existence" }

func (s RackLevelTagExistence) Match(dev *models.IODevice, tags []*models.PLCTag) *models.MatchResult {
	if dev.AddressFormat != models.FormatCLX || dev.PLCAddress == "" {
		return nil
	}

	rackBase := ExtractRackBase(dev.PLCAddress)
	if rackBase == "" {
		return nil
	}
	rackBaseLower := strings.ToLower(rackBase)

	for _, tag := range tags {
		if tag.RecordType != models.RecordTag {
			continue
		}
		if strings.ToLower(strings.TrimSpace(tag.Name)) == rackBaseLower {
			return &models.MatchResult{
				IODevice:       dev,
				PLCTag:         tag,
				StrategyID:     s.ID(),
				Confidence:     models.ConfidencePartial,
				Classification: models.ClassRackOnly,
				AuditTrail: []string{
					"Strategy 3: Rack-Level TAG Existence",
					fmt.Sprintf("No per-point COMMENT for IO address '%s'", dev.PLCAddress),
					fmt.Sprintf("Parent rack TAG '%s' exists in PLC export — rack confirmed, point unconfirmed", tag.Name),
				},
			}
		}
	}
	return nil
}

// ENetModuleTagExtraction is strategy 4: a TAG record name embeds an
// EtherNet/IP device identifier matching the device's IO or device tag.
type ENetModuleTagExtraction struct{}

func (ENetModuleTagExtraction) ID() int      { return 4 }
func (ENetModuleTagExtraction) Name() string { return "ENet Module Tag Extraction" }

func (s ENetModuleTagExtraction) Match(dev *models.IODevice, tags []*models.PLCTag) *models.MatchResult {
	ioDevTag := strings.TrimSpace(dev.DeviceTag)
	ioIOTag := strings.TrimSpace(dev.IOTag)
	if ioDevTag == "" && ioIOTag == "" {
		return nil
	}

	ioDevLower := strings.ToLower(ioDevTag)
	ioIOLower := strings.ToLower(ioIOTag)

	for _, tag := range tags {
		if tag.RecordType != models.RecordTag {
			continue
		}
		deviceID := ExtractENetDevice(tag.Name)
		if deviceID == "" {
			continue
		}
		idLower := strings.ToLower(deviceID)
		if (ioDevLower != "" && idLower == ioDevLower) || (ioIOLower != "" && idLower == ioIOLower) {
			return &models.MatchResult{
				IODevice:       dev,
				PLCTag:         tag,
				StrategyID:     s.ID(),
				Confidence:     models.ConfidenceExact,
				Classification: models.ClassBoth,
				AuditTrail: []string{
					"Strategy 4: ENet Module Tag Extraction",
					fmt.Sprintf("Extracted device '%s' from PLC TAG '%s'", deviceID, tag.Name),
					fmt.Sprintf("Matches IO device tag '%s' (case-insensitive)", dev.DeviceTag),
				},
			}
		}
	}
	return nil
}

// TagNameNormalizationMatch is strategy 5: the normalized IO/device tag
// equals a PLC tag's normalized base name or its raw description. Exact
// membership only — a short tag must never match as a substring of a
// longer one (LT611 vs LT6110_Monitor). ExtraSuffixes carries the
// optional operator rules overlay.
type TagNameNormalizationMatch struct {
	ExtraSuffixes []string
}

func (TagNameNormalizationMatch) ID() int      { return 5 }
func (TagNameNormalizationMatch) Name() string { return "Tag Name Normalization Match" }

func (s TagNameNormalizationMatch) Match(dev *models.IODevice, tags []*models.PLCTag) *models.MatchResult {
	ioNorm := NormalizeTagWith(dev.IOTag, s.ExtraSuffixes)
	devNorm := NormalizeTagWith(dev.DeviceTag, s.ExtraSuffixes)
	if ioNorm == "" && devNorm == "" {
		return nil
	}

	// Deduplicated, in stable order so audit output is reproducible.
	candidates := make([]string, 0, 2)
	if ioNorm != "" {
		candidates = append(candidates, ioNorm)
	}
	if devNorm != "" && devNorm != ioNorm {
		candidates = append(candidates, devNorm)
	}

	for _, tag := range tags {
		var plcNames []string
		if tag.BaseName != "" {
			plcNames = append(plcNames, NormalizeTagWith(tag.BaseName, s.ExtraSuffixes))
		}
		if tag.Description != "" {
			plcNames = append(plcNames, strings.ToLower(strings.TrimSpace(tag.Description)))
		}

		for _, plcName := range plcNames {
			if plcName == "" {
				continue
			}
			if !containsString(candidates, plcName) {
				continue
			}
			return &models.MatchResult{
				IODevice:       dev,
				PLCTag:         tag,
				StrategyID:     s.ID(),
				Confidence:     models.ConfidenceHigh,
				Classification: models.ClassBoth,
				AuditTrail: []string{
					"Strategy 5: Tag Name Normalization Match",
					fmt.Sprintf("Normalized IO tag(s) %v matched PLC name '%s'", candidates, plcName),
					fmt.Sprintf("IO tag: '%s', Device tag: '%s'", dev.IOTag, dev.DeviceTag),
					fmt.Sprintf("PLC source: %s '%s' (description='%s', base_name='%s')", tag.RecordType, tag.Name, tag.Description, tag.BaseName),
				},
			}
		}
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
