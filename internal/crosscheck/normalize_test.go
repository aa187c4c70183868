package crosscheck

import (
	"testing"

	"github.com/io-crosscheck/backend/internal/models"
)

func TestNormalizeTag(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase only", "TSV22", "tsv22"},
		{"strips _EV", "TSV22_EV", "tsv22"},
		{"strips _MC", "P611_MC", "p611"},
		{"strips _AUX", "AS611_AUX", "as611"},
		{"strips _ZSO", "XV100_ZSO", "xv100"},
		{"strips _ZSC", "XV100_ZSC", "xv100"},
		{"strips _Pulse", "FT656B_Pulse", "ft656b"},
		{"strips _In", "SOL1_In", "sol1"},
		{"strips _Input", "SOL1_Input", "sol1"},
		{"strips _Out", "SOL1_Out", "sol1"},
		{"strips _Old", "P100_Old", "p100"},
		{"strips _Pos", "XV200_Pos", "xv200"},
		{"strips _FailedToClose", "XV200_FailedToClose", "xv200"},
		{"strips _FailedToOpen", "XV200_FailedToOpen", "xv200"},
		{"strips _OnTimer", "P100_OnTimer", "p100"},
		{"strips _OffTimer", "P100_OffTimer", "p100"},
		{"strips _Monitor", "LT6110_Monitor", "lt6110"},
		{"strips _Failed", "P100_Failed", "p100"},
		{"trims whitespace", "  TSV22_EV  ", "tsv22"},
		{"empty", "", ""},
		{"no suffix", "LT611", "lt611"},
		{"case-insensitive suffix", "TSV22_ev", "tsv22"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeTag(tc.in); got != tc.want {
				t.Errorf("NormalizeTag(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeTagStripsExactlyOneSuffix(t *testing.T) {
	// Nested suffixes: only the outermost suffix is stripped, never two.
	if got := NormalizeTag("P100_Failed_Old"); got != "p100_failed" {
		t.Errorf("NormalizeTag(P100_Failed_Old) = %q, want p100_failed", got)
	}
}

func TestStripSuffixes(t *testing.T) {
	if got := StripSuffixes("TSV22_EV", nil); got != "TSV22" {
		t.Errorf("got %q, want TSV22", got)
	}
	if got := StripSuffixes("LT611", nil); got != "LT611" {
		t.Errorf("got %q, want LT611", got)
	}
	if got := StripSuffixes("", nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if got := StripSuffixes("PUMP_RUN", []string{"_RUN", "_STOP"}); got != "PUMP" {
		t.Errorf("custom list: got %q, want PUMP", got)
	}
	// _Input must be stripped before _In.
	if got := StripSuffixes("SOL1_Input", nil); got != "SOL1" {
		t.Errorf("longest suffix: got %q, want SOL1", got)
	}
}

func TestNormalizeAddress(t *testing.T) {
	a := NormalizeAddress("Rack0:I.Data[5].0")
	b := NormalizeAddress("Rack0:I.DATA[5].0")
	if a != b {
		t.Errorf("case-fold mismatch: %q vs %q", a, b)
	}
	if NormalizeAddress("  Rack11:I.DATA[3].13  ") != "rack11:i.data[3].13" {
		t.Error("expected trim + lowercase")
	}
	if NormalizeAddress("") != "" {
		t.Error("empty address should stay empty")
	}
}

func TestDetectAddressFormat(t *testing.T) {
	cases := []struct {
		in   string
		want models.AddressFormat
	}{
		{"Rack0:I.Data[5].7", models.FormatCLX},
		{"Rack25:8:I.Data.4", models.FormatCLX},
		{"rack11:o.data[2].5", models.FormatCLX},
		{"Rack0_Group0_Slot0_IO.READ[4]", models.FormatPLC5},
		{"RACK16_GROUP0_SLOT0_IO.WRITE[2]", models.FormatPLC5},
		{"E300_P621:I", models.FormatUnknown},
		{"LT611", models.FormatUnknown},
		{"", models.FormatUnknown},
		{"Rack0_Group0_Slot0_IO", models.FormatUnknown}, // no trailing dot segment
	}
	for _, tc := range cases {
		if got := DetectAddressFormat(tc.in); got != tc.want {
			t.Errorf("DetectAddressFormat(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractRackBase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Rack11:I.DATA[3].13", "Rack11:I"},
		{"Rack11:O.Data[2].5", "Rack11:O"},
		{"Rack25:8:I.Data.4", "Rack25"},
		{"Rack0:I", "Rack0:I"},
		{"LT611", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractRackBase(tc.in); got != tc.want {
			t.Errorf("ExtractRackBase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractENetDevice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"E300_P621:I", "P621"},
		{"E300_P9203:I", "P9203"},
		{"VFD_M101:O", "M101"},
		{"IPDev_FT123:C", "FT123"},
		{"IPDEV_FT123", "FT123"},
		{"Rack0:I", ""},
		{"LT611", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractENetDevice(tc.in); got != tc.want {
			t.Errorf("ExtractENetDevice(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
