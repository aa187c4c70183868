package crosscheck

import (
	"testing"

	"github.com/io-crosscheck/backend/internal/models"
)

func TestNormalizeTagWith(t *testing.T) {
	extra := []string{"_PermOK", "_I"}

	cases := []struct {
		in   string
		want string
	}{
		{"P100_PermOK", "p100"},
		{"TSV22_EV", "tsv22"},       // built-ins still apply
		{"LT611_Input", "lt611"},    // longer built-in wins over overlay _I
		{"Plain", "plain"},
	}
	for _, tc := range cases {
		if got := NormalizeTagWith(tc.in, extra); got != tc.want {
			t.Errorf("NormalizeTagWith(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if got := NormalizeTagWith("P100_PermOK", nil); got != "p100_permok" {
		t.Errorf("nil overlay must fall back to built-ins, got %q", got)
	}
}

func TestEngineWithRulesOverlaySuffix(t *testing.T) {
	dev := &models.IODevice{IOTag: "P100_PermOK", DeviceTag: ""}
	tags := []*models.PLCTag{{RecordType: models.RecordTag, Name: "P100", BaseName: "P100"}}

	plain := NewEngine().Run([]*models.IODevice{dev}, tags)
	if plain[0].Classification != models.ClassIOListOnly {
		t.Fatalf("without overlay got %v, want IO List Only", plain[0].Classification)
	}

	rules := &models.CrosscheckRules{StripSuffixes: []string{"_PermOK"}}
	overlaid := NewEngineWithRules(rules).Run([]*models.IODevice{dev}, tags)
	if overlaid[0].Classification != models.ClassBoth || overlaid[0].StrategyID != 5 {
		t.Fatalf("with overlay got %v / strategy %d, want Both / 5",
			overlaid[0].Classification, overlaid[0].StrategyID)
	}
}

func TestExtractEnrichmentWithRulesCatalogOverlay(t *testing.T) {
	project := &models.L5XProject{
		Modules: []models.Module{
			{Name: "Flex_IB16", CatalogNumber: "1794-IB16"},
		},
	}

	plain := ExtractEnrichment(project)
	if _, ok := plain.ModuleNames["flex_ib16"]; ok {
		t.Fatal("1794-IB16 is not in the built-in allow-list")
	}

	rules := &models.CrosscheckRules{IOCatalogPatterns: []string{"1794-IB"}}
	overlaid := ExtractEnrichmentWithRules(project, rules)
	if _, ok := overlaid.ModuleNames["flex_ib16"]; !ok {
		t.Fatal("overlay catalog prefix should admit the FLEX module")
	}
}
