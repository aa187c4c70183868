package models

// CrosscheckRules is an optional operator-supplied overlay loaded from a
// YAML file. Entries extend the built-in tables; they never replace them.
type CrosscheckRules struct {
	// StripSuffixes are additional tag suffixes recognized during
	// normalization, e.g. site-specific conventions like "_PermOK".
	StripSuffixes []string `yaml:"strip_suffixes"`

	// IOCatalogPatterns are additional catalog number prefixes that
	// count as physical IO hardware during L5X enrichment.
	IOCatalogPatterns []string `yaml:"io_catalog_patterns"`
}
