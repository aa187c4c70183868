package crosscheck

import (
	"testing"

	"github.com/io-crosscheck/backend/internal/models"
)

func TestClassifyTag(t *testing.T) {
	cases := []struct {
		name string
		tag  models.PLCTag
		want models.TagCategory
	}{
		{
			"alias record wins first",
			models.PLCTag{RecordType: models.RecordAlias, Name: "Rack0:I", Datatype: "AB:1756_IB16:I:0"},
			models.CategoryAlias,
		},
		{
			"comment with specifier",
			models.PLCTag{RecordType: models.RecordComment, Name: "Rack0:I", Specifier: "Rack0:I.DATA[5].7"},
			models.CategoryBitLevelComment,
		},
		{
			"comment without specifier is not bit-level",
			models.PLCTag{RecordType: models.RecordComment, Name: "Rack0:I"},
			models.CategoryRackIO,
		},
		{
			"enet device by name",
			models.PLCTag{RecordType: models.RecordTag, Name: "E300_P621:I"},
			models.CategoryENetDevice,
		},
		{
			"vfd device by name",
			models.PLCTag{RecordType: models.RecordTag, Name: "VFD_M101:O"},
			models.CategoryENetDevice,
		},
		{
			"ipdev device by name",
			models.PLCTag{RecordType: models.RecordTag, Name: "IPDEV_FT200:I"},
			models.CategoryENetDevice,
		},
		{
			"io module by AB datatype",
			models.PLCTag{RecordType: models.RecordTag, Name: "Local_Card3", Datatype: "AB:1756_IF8:I:0"},
			models.CategoryIOModule,
		},
		{
			"io module by EH datatype",
			models.PLCTag{RecordType: models.RecordTag, Name: "FT_Meter", Datatype: "EH:Promass_300_500:I:0"},
			models.CategoryIOModule,
		},
		{
			"rack io by exact name",
			models.PLCTag{RecordType: models.RecordTag, Name: "Rack11:O"},
			models.CategoryRackIO,
		},
		{
			"rack io with bit suffix is not rack io",
			models.PLCTag{RecordType: models.RecordTag, Name: "Rack11:O.Data[2]"},
			models.CategoryUnknown,
		},
		{
			"program variable by datatype",
			models.PLCTag{RecordType: models.RecordTag, Name: "Pump_Seconds", Datatype: "DINT"},
			models.CategoryProgram,
		},
		{
			"timer is program",
			models.PLCTag{RecordType: models.RecordTag, Name: "Mix_Delay", Datatype: "TIMER"},
			models.CategoryProgram,
		},
		{
			"unknown fallback",
			models.PLCTag{RecordType: models.RecordTag, Name: "Something", Datatype: "MyUDT"},
			models.CategoryUnknown,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tag := tc.tag
			if got := ClassifyTag(&tag); got != tc.want {
				t.Errorf("ClassifyTag = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsSpare(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"spare", true},
		{"Spare", true},
		{"SPARE", true},
		{"  Spare  ", true},
		{"SparePoint", false},
		{"spare point", false},
		{"LT611", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsSpare(tc.in); got != tc.want {
			t.Errorf("IsSpare(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDetectMsgDirection(t *testing.T) {
	cases := []struct {
		in        string
		wantIsMsg bool
		wantDir   string
	}{
		{"N100_W[4]", true, "WRITE"},
		{"F20_RW[7]", true, "READ/WRITE"},
		{"N7_R[12]", true, "READ"},
		{"B3_R[0]", true, "READ"},
		{"F11_R[3]", true, "READ"},
		{"Rack0:I.Data[5].7", false, ""},
		{"Tanks[119].Device.Heat_Permissive", false, ""},
		{"", false, ""},
	}
	for _, tc := range cases {
		isMsg, dir := DetectMsgDirection(tc.in)
		if isMsg != tc.wantIsMsg || dir != tc.wantDir {
			t.Errorf("DetectMsgDirection(%q) = (%v, %q), want (%v, %q)",
				tc.in, isMsg, dir, tc.wantIsMsg, tc.wantDir)
		}
	}
}

func TestIsConsumedReference(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"DeodSys_CLXData.Integer[3]", true},
		{"Tanks[119].Device.Heat_Permissive", true},
		{"Flow[40].Device.FlowTotal_Remote", true},
		{"Rack6:I.Data[0].4", false},
		{"Rack16_Group0_Slot0_IO.READ[18]", false},
		{"N100_W[4]", false},
		{"IPDEV_FT123.Value", false},
		{"E300_P621:I", false},
		{"PlainTag", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsConsumedReference(tc.in); got != tc.want {
			t.Errorf("IsConsumedReference(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
