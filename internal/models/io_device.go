package models

// AddressFormat is the detected addressing scheme of an IO list PLC address.
type AddressFormat string

const (
	// FormatCLX is the ControlLogix rack-channel scheme, e.g. "Rack0:I.Data[5].7".
	FormatCLX AddressFormat = "CLX"
	// FormatPLC5 is the legacy slot/group scheme, e.g. "Rack0_Group0_Slot0_IO.READ[4]".
	FormatPLC5 AddressFormat = "PLC5"
	// FormatUnknown covers device-name addressing and free-form entries.
	FormatUnknown AddressFormat = "Unknown"
)

// IODevice is one row from the facility IO list.
// The parser guarantees at least one of DeviceTag, IOTag, or PLCAddress
// is non-empty; rows without any identifying field are skipped upstream.
type IODevice struct {
	Panel         string        `json:"panel"`
	Rack          string        `json:"rack"`
	Group         string        `json:"group"`
	Slot          string        `json:"slot"`
	Channel       string        `json:"channel"`
	PLCAddress    string        `json:"plcAddress"`
	IOTag         string        `json:"ioTag"`
	DeviceTag     string        `json:"deviceTag"`
	ModuleType    string        `json:"moduleType"`
	Module        string        `json:"module"`
	RangeLow      string        `json:"rangeLow"`
	RangeHigh     string        `json:"rangeHigh"`
	Units         string        `json:"units"`
	AddressFormat AddressFormat `json:"addressFormat"`
	SourceRow     int           `json:"sourceRow"`
}
