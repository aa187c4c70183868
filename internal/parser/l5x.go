package parser

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/io-crosscheck/backend/internal/models"
)

// L5X project exports are large XML documents. Only the pieces the
// enrichment pass consumes are decoded: alias tags (controller and
// program scope), the module/hardware tree, and ladder rung text.

type xmlL5XContent struct {
	XMLName    xml.Name      `xml:"RSLogix5000Content"`
	Controller xmlController `xml:"Controller"`
}

type xmlController struct {
	Name     string       `xml:"Name,attr"`
	Modules  []xmlModule  `xml:"Modules>Module"`
	Tags     []xmlTag     `xml:"Tags>Tag"`
	Programs []xmlProgram `xml:"Programs>Program"`
}

type xmlModule struct {
	Name          string      `xml:"Name,attr"`
	CatalogNumber string      `xml:"CatalogNumber,attr"`
	ParentModule  string      `xml:"ParentModule,attr"`
	Inhibited     string      `xml:"Inhibited,attr"`
	Ports         []xmlPort   `xml:"Ports>Port"`
	Modules       []xmlModule `xml:"Modules>Module"`
}

type xmlPort struct {
	ID       string `xml:"Id,attr"`
	Type     string `xml:"Type,attr"`
	Address  string `xml:"Address,attr"`
	Upstream string `xml:"Upstream,attr"`
}

type xmlTag struct {
	Name        string `xml:"Name,attr"`
	TagType     string `xml:"TagType,attr"`
	AliasFor    string `xml:"AliasFor,attr"`
	Description string `xml:"Description"`
}

type xmlProgram struct {
	Name     string       `xml:"Name,attr"`
	Tags     []xmlTag     `xml:"Tags>Tag"`
	Routines []xmlRoutine `xml:"Routines>Routine"`
}

type xmlRoutine struct {
	Name  string    `xml:"Name,attr"`
	Rungs []xmlRung `xml:"RLLContent>Rung"`
}

type xmlRung struct {
	Text string `xml:"Text"`
}

// rungOperandPattern captures the argument list of one ladder
// instruction, e.g. the inside of XIC(Rack0:I.Data[5].7).
var rungOperandPattern = regexp.MustCompile(`\(([^()]*)\)`)

// ParseL5X parses an RSLogix 5000 / Studio 5000 project export.
//
// Alias tags are collected from the controller scope and every program
// scope. The module tree is flattened; PLC5 upgrade projects nest RIO
// scanned backplanes as child <Module> elements, so the walk recurses
// and deduplicates by module name. Rung text operands become the
// lowercased logic-reference set; a project with no ladder content
// yields an empty set, never an error.
func ParseL5X(filePath string) (*models.L5XProject, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read l5x: %w", err)
	}
	project, err := ParseL5XBytes(data)
	if err != nil {
		return nil, err
	}
	project.Filename = filepath.Base(filePath)
	return project, nil
}

// ParseL5XBytes parses an L5X document already held in memory.
func ParseL5XBytes(data []byte) (*models.L5XProject, error) {
	var content xmlL5XContent
	decoder := xml.NewDecoder(strings.NewReader(decodeLatin1(data)))
	if err := decoder.Decode(&content); err != nil {
		return nil, fmt.Errorf("parse l5x: %w", err)
	}

	project := &models.L5XProject{
		LogicReferences: make(map[string]struct{}),
	}

	collectAliases(content.Controller.Tags, project)
	for _, prog := range content.Controller.Programs {
		collectAliases(prog.Tags, project)
	}

	seen := make(map[string]struct{})
	collectModules(content.Controller.Modules, project, seen)

	for _, prog := range content.Controller.Programs {
		for _, routine := range prog.Routines {
			for _, rung := range routine.Rungs {
				collectRungOperands(rung.Text, project.LogicReferences)
			}
		}
	}

	return project, nil
}

func collectAliases(tags []xmlTag, project *models.L5XProject) {
	for _, tag := range tags {
		if !strings.EqualFold(tag.TagType, "Alias") || tag.AliasFor == "" {
			continue
		}
		project.Aliases = append(project.Aliases, models.AliasTag{
			Name:        strings.TrimSpace(tag.Name),
			AliasFor:    strings.TrimSpace(tag.AliasFor),
			Description: strings.TrimSpace(tag.Description),
		})
	}
}

func collectModules(modules []xmlModule, project *models.L5XProject, seen map[string]struct{}) {
	for _, mod := range modules {
		if _, dup := seen[mod.Name]; dup {
			continue
		}
		seen[mod.Name] = struct{}{}

		out := models.Module{
			Name:          mod.Name,
			CatalogNumber: mod.CatalogNumber,
			ParentModule:  mod.ParentModule,
			Inhibited:     strings.EqualFold(mod.Inhibited, "true"),
		}
		for _, port := range mod.Ports {
			out.Ports = append(out.Ports, models.ModulePort{
				ID:       port.ID,
				Type:     port.Type,
				Address:  port.Address,
				Upstream: strings.EqualFold(port.Upstream, "true"),
			})
		}
		project.Modules = append(project.Modules, out)

		collectModules(mod.Modules, project, seen)
	}
}

// collectRungOperands tokenizes one rung's neutral text. Every
// comma-separated argument of every instruction counts as an operand;
// placeholders (?) and numeric literals are not references.
func collectRungOperands(text string, refs map[string]struct{}) {
	for _, m := range rungOperandPattern.FindAllStringSubmatch(text, -1) {
		for _, arg := range strings.Split(m[1], ",") {
			arg = strings.TrimSpace(arg)
			if arg == "" || arg == "?" || isNumericLiteral(arg) {
				continue
			}
			refs[strings.ToLower(arg)] = struct{}{}
		}
	}
}

func isNumericLiteral(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' {
			return false
		}
	}
	return len(s) > 0
}
