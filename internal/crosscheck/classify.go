package crosscheck

import (
	"regexp"
	"strings"

	"github.com/io-crosscheck/backend/internal/models"
)

var (
	rackIOPattern     = regexp.MustCompile(`(?i)^Rack\d+:[IO]$`)
	enetPrefixPattern = regexp.MustCompile(`(?i)^(?:E300|VFD|IPDev|IPDEV)_`)

	msgReadPattern  = regexp.MustCompile(`(?i)^[NBF]\d+_R\[`)
	msgWritePattern = regexp.MustCompile(`(?i)^N\d+_W\[`)
	msgRWPattern    = regexp.MustCompile(`(?i)^F\d+_RW\[`)
	// Identifier, optional array index, then a .member — the shape of a
	// consumed / UDT member reference rather than a physical IO address.
	consumedPattern = regexp.MustCompile(`(?i)^\w+(?:\[\d+\])?\.\w`)
)

// programDatatypes is the working-memory datatype set; tags with one of
// these datatypes are program variables, not IO.
var programDatatypes = map[string]struct{}{
	"dint": {}, "real": {}, "int": {}, "bool": {},
	"timer": {}, "counter": {}, "string": {},
}

// ClassifyTag assigns a semantic category to a PLC tag record. The checks
// form a priority list: record-type-based categories first, then
// name-based, then datatype-based. First match wins.
func ClassifyTag(tag *models.PLCTag) models.TagCategory {
	switch {
	case IsAliasTag(tag):
		return models.CategoryAlias
	case tag.RecordType == models.RecordComment && tag.Specifier != "":
		return models.CategoryBitLevelComment
	case IsENetDeviceTag(tag):
		return models.CategoryENetDevice
	case IsIOModuleTag(tag):
		return models.CategoryIOModule
	case IsRackIOTag(tag):
		return models.CategoryRackIO
	case IsProgramTag(tag):
		return models.CategoryProgram
	}
	return models.CategoryUnknown
}

// IsIOModuleTag reports whether the datatype marks an IO module
// definition (Rockwell "AB:" or Endress+Hauser "EH:" module types).
func IsIOModuleTag(tag *models.PLCTag) bool {
	dt := strings.ToUpper(strings.TrimSpace(tag.Datatype))
	return strings.HasPrefix(dt, "AB:") || strings.HasPrefix(dt, "EH:")
}

// IsRackIOTag reports whether the name is a bare rack IO tag, i.e.
// Rack<N>:I or Rack<N>:O with no trailing slot or bit suffix.
func IsRackIOTag(tag *models.PLCTag) bool {
	return rackIOPattern.MatchString(strings.TrimSpace(tag.Name))
}

// IsENetDeviceTag reports whether the name carries an EtherNet/IP device
// prefix (E300_, VFD_, IPDev_, IPDEV_).
func IsENetDeviceTag(tag *models.PLCTag) bool {
	return enetPrefixPattern.MatchString(strings.TrimSpace(tag.Name))
}

// IsAliasTag reports whether the record kind is ALIAS.
func IsAliasTag(tag *models.PLCTag) bool {
	return tag.RecordType == models.RecordAlias
}

// IsProgramTag reports whether the datatype is a plain working-memory
// type (DINT, REAL, INT, BOOL, TIMER, COUNTER, STRING).
func IsProgramTag(tag *models.PLCTag) bool {
	dt := strings.ToLower(strings.TrimSpace(tag.Datatype))
	_, ok := programDatatypes[dt]
	return ok
}

// IsSpare reports whether an IO tag marks a spare point. Only the exact
// word counts; "SparePoint" is a real tag.
func IsSpare(ioTag string) bool {
	return strings.ToLower(strings.TrimSpace(ioTag)) == "spare"
}

// DetectMsgDirection checks whether an alias target is an
// inter-controller MSG buffer reference. It returns (true, direction)
// with direction one of "READ", "WRITE", "READ/WRITE", or (false, "").
func DetectMsgDirection(aliasFor string) (bool, string) {
	target := strings.TrimSpace(aliasFor)
	if target == "" {
		return false, ""
	}
	switch {
	case msgWritePattern.MatchString(target):
		return true, "WRITE"
	case msgRWPattern.MatchString(target):
		return true, "READ/WRITE"
	case msgReadPattern.MatchString(target):
		return true, "READ"
	}
	return false, ""
}

// IsConsumedReference reports whether the alias target looks like a
// consumed tag or UDT member reference rather than a physical IO address.
//
// Matches:    "DeodSys_CLXData.Integer[3]", "Tanks[119].Device.Heat_Permissive"
// Non-match:  "Rack6:I.Data[0].4", "Rack16_Group0_Slot0_IO.READ[18]", MSG buffers
func IsConsumedReference(aliasFor string) bool {
	target := strings.TrimSpace(aliasFor)
	if target == "" {
		return false
	}
	if strings.HasPrefix(strings.ToUpper(target), "RACK") {
		return false
	}
	if isMsg, _ := DetectMsgDirection(target); isMsg {
		return false
	}
	if enetPrefixPattern.MatchString(target) {
		return false
	}
	return consumedPattern.MatchString(target)
}
