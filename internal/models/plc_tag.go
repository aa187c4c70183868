// Package models contains domain types for the IO Crosscheck backend.
package models

// RecordType identifies the record kind in an RSLogix 5000 CSV tag export.
type RecordType string

const (
	RecordTag      RecordType = "TAG"
	RecordComment  RecordType = "COMMENT"
	RecordAlias    RecordType = "ALIAS"
	RecordRComment RecordType = "RCOMMENT"
)

// TagCategory is the semantic category assigned to a PLC tag by the
// classification rules.
type TagCategory string

const (
	CategoryIOModule        TagCategory = "IO_Module"
	CategoryRackIO          TagCategory = "Rack_IO"
	CategoryENetDevice      TagCategory = "ENet_Device"
	CategoryAlias           TagCategory = "Alias"
	CategoryProgram         TagCategory = "Program"
	CategoryBitLevelComment TagCategory = "Bit_Level_Comment"
	CategoryUnknown         TagCategory = "Unknown"
)

// PLCTag is one record from the PLC tag export.
// Comment records carry a bit-level address in Specifier; Tag records
// carry the controller tag name and datatype.
type PLCTag struct {
	RecordType  RecordType  `json:"recordType"`
	Name        string      `json:"name"`
	BaseName    string      `json:"baseName"`    // Name with trailing :I/:O/:C/:S suffix stripped
	Description string      `json:"description"`
	Datatype    string      `json:"datatype"`
	Scope       string      `json:"scope"`     // blank = controller-wide
	Specifier   string      `json:"specifier"` // bit-level address, COMMENT records only
	Suffixes    []string    `json:"suffixes,omitempty"`
	Category    TagCategory `json:"category"`
	SourceLine  int         `json:"sourceLine"`
}
