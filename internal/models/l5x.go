package models

// AliasTag is one alias definition from an L5X project export.
type AliasTag struct {
	Name        string `json:"name"`
	AliasFor    string `json:"aliasFor"`
	Description string `json:"description,omitempty"`
	Direction   string `json:"direction,omitempty"` // READ / WRITE / READ/WRITE for MSG aliases
}

// ModulePort is one port entry under a module in the L5X IO tree.
type ModulePort struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Address  string `json:"address"`
	Upstream bool   `json:"upstream"`
}

// Module is one node of the L5X module/hardware tree. The tree is
// flattened by the parser; nesting is preserved through ParentModule.
type Module struct {
	Name          string       `json:"name"`
	CatalogNumber string       `json:"catalogNumber"`
	ParentModule  string       `json:"parentModule,omitempty"`
	Inhibited     bool         `json:"inhibited,omitempty"`
	Ports         []ModulePort `json:"ports,omitempty"`
}

// L5XProject is the parsed view of a richer project export used by the
// enrichment pass. An empty LogicReferences set means "not available":
// the enrichment pass must not flag points as unused without it.
type L5XProject struct {
	Filename        string              `json:"filename"`
	Aliases         []AliasTag          `json:"aliases"`
	Modules         []Module            `json:"modules"`
	LogicReferences map[string]struct{} `json:"-"`
}
