// Package crosscheck implements the IO crosscheck engine: tag
// classification, the priority-ordered matching cascade that reconciles
// the facility IO list against the PLC tag export, and the optional
// enrichment pass that folds in an L5X project export.
package crosscheck

import (
	"regexp"
	"sort"
	"strings"

	"github.com/io-crosscheck/backend/internal/models"
)

// KnownSuffixes is the fixed IO suffix vocabulary, ordered longest-first
// so that _Input is checked before _In, _FailedToClose before _Failed.
var KnownSuffixes = []string{
	"_FailedToClose", "_FailedToOpen", "_OnTimer", "_OffTimer",
	"_Monitor", "_Failed", "_Pulse", "_Input", "_Out", "_Old",
	"_Pos", "_EV", "_MC", "_AUX", "_ZSO", "_ZSC", "_In",
}

var (
	clxPattern         = regexp.MustCompile(`(?i)^Rack\d+:(?:[IO]|\d+:[IO])`)
	clxRackBasePattern = regexp.MustCompile(`(?i)^(Rack\d+:[IO])`)
	clxSlotBasePattern = regexp.MustCompile(`(?i)^(Rack\d+):\d+:[IO]`)
	plc5Pattern        = regexp.MustCompile(`(?i)^Rack\d+_Group\d+_Slot\d+_IO\.`)
	enetPattern        = regexp.MustCompile(`(?i)^(?:E300|VFD|IPDev|IPDEV)_(.+?)(?::[IOCS].*)?$`)
)

// NormalizeTag trims, strips at most one known suffix, and case-folds a
// tag name for comparison.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	return strings.ToLower(StripSuffixes(tag, nil))
}

// NormalizeTagWith is NormalizeTag plus an operator overlay of extra
// suffixes. The combined list is re-sorted longest-first so an overlay
// entry can't shadow a longer built-in.
func NormalizeTagWith(tag string, extra []string) string {
	if len(extra) == 0 {
		return NormalizeTag(tag)
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	combined := make([]string, 0, len(KnownSuffixes)+len(extra))
	combined = append(combined, KnownSuffixes...)
	combined = append(combined, extra...)
	sort.SliceStable(combined, func(i, j int) bool {
		return len(combined[i]) > len(combined[j])
	})
	return strings.ToLower(StripSuffixes(tag, combined))
}

// StripSuffixes removes the first matching suffix from the given list
// (KnownSuffixes when nil). Matching is case-insensitive and only one
// suffix is ever stripped; nested suffixes are left alone.
func StripSuffixes(tag string, suffixes []string) string {
	if tag == "" {
		return ""
	}
	if suffixes == nil {
		suffixes = KnownSuffixes
	}
	tagLower := strings.ToLower(tag)
	for _, suffix := range suffixes {
		if strings.HasSuffix(tagLower, strings.ToLower(suffix)) {
			return tag[:len(tag)-len(suffix)]
		}
	}
	return tag
}

// NormalizeAddress trims and case-folds a PLC address for comparison.
// No structural rewriting happens here.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// DetectAddressFormat returns the addressing scheme of an address
// string: CLX for rack-channel, PLC5 for legacy slot/group, else
// Unknown.
func DetectAddressFormat(address string) models.AddressFormat {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.FormatUnknown
	}
	if clxPattern.MatchString(address) {
		return models.FormatCLX
	}
	if plc5Pattern.MatchString(address) {
		return models.FormatPLC5
	}
	return models.FormatUnknown
}

// ExtractRackBase extracts the rack base from a CLX address.
//
//	Standard:      "Rack11:I.DATA[3].13" -> "Rack11:I"
//	Slot-specific: "Rack25:8:I.Data.4"   -> "Rack25"
//
// Returns "" for non-CLX input.
func ExtractRackBase(address string) string {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return ""
	}
	if m := clxRackBasePattern.FindStringSubmatch(addr); m != nil {
		return m[1]
	}
	if m := clxSlotBasePattern.FindStringSubmatch(addr); m != nil {
		return m[1]
	}
	return ""
}

// ExtractENetDevice extracts the embedded device identifier from an
// EtherNet/IP module tag name, e.g. "E300_P621:I" -> "P621",
// "VFD_M101:O" -> "M101". Returns "" when the name has no ENet prefix.
func ExtractENetDevice(tagName string) string {
	tagName = strings.TrimSpace(tagName)
	if tagName == "" {
		return ""
	}
	if m := enetPattern.FindStringSubmatch(tagName); m != nil {
		return m[1]
	}
	return ""
}
