package crosscheck

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/io-crosscheck/backend/internal/models"
)

// EnrichmentSource is the tag appended to a result's sources list when
// the L5X project export corroborates it.
const EnrichmentSource = "L5X"

// ioCatalogPatterns is the allow-list of catalog number families that
// count as physical IO hardware. Communication, backplane, and processor
// modules appear in the same L5X tree but are excluded.
var ioCatalogPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^1756-IB`),       // CLX discrete input
	regexp.MustCompile(`(?i)^1756-OB`),       // CLX discrete output
	regexp.MustCompile(`(?i)^1756-IF`),       // CLX analog input
	regexp.MustCompile(`(?i)^1756-OF`),       // CLX analog output
	regexp.MustCompile(`(?i)^RIO-MODULE$`),   // PLC5 scanned IO
	regexp.MustCompile(`(?i)^193-ECM`),       // E300 overload relay
	regexp.MustCompile(`(?i)^PowerFlex`),     // VFD
	regexp.MustCompile(`(?i)^Promass`),       // flow meter
	regexp.MustCompile(`(?i)^ETHERNET-MODULE$`), // generic ENet device
}

// Enrichment is the pre-indexed view of an L5X project export consumed
// by EnrichResults.
type Enrichment struct {
	AliasByAddress  map[string][]models.AliasTag
	AliasByName     map[string]models.AliasTag
	ModuleNames     map[string]struct{}
	ModuleAddresses map[string]struct{}
	LogicReferences map[string]struct{}
	MsgTags         []models.AliasTag
	ConsumedTags    []models.AliasTag
}

// ExtractEnrichment partitions the project's alias definitions and
// builds the lookup indexes the enrichment rules need.
//
// Every alias lands in exactly one bucket: inter-controller MSG aliases
// and consumed/UDT references are kept aside for separate reporting and
// never used for IO matching; the rest are physical IO aliases, indexed
// by normalized target address (one address can carry several aliases)
// and by normalized alias name (last write wins on collisions).
func ExtractEnrichment(project *models.L5XProject) *Enrichment {
	return ExtractEnrichmentWithRules(project, nil)
}

// ExtractEnrichmentWithRules is ExtractEnrichment with an optional
// operator rules overlay; overlay catalog patterns extend the built-in
// IO hardware allow-list as case-insensitive prefixes.
func ExtractEnrichmentWithRules(project *models.L5XProject, rules *models.CrosscheckRules) *Enrichment {
	var extraCatalogs []string
	if rules != nil {
		extraCatalogs = rules.IOCatalogPatterns
	}
	enr := &Enrichment{
		AliasByAddress:  make(map[string][]models.AliasTag),
		AliasByName:     make(map[string]models.AliasTag),
		ModuleNames:     make(map[string]struct{}),
		ModuleAddresses: make(map[string]struct{}),
		LogicReferences: make(map[string]struct{}),
	}
	if project == nil {
		return enr
	}

	for _, alias := range project.Aliases {
		if alias.Name == "" || alias.AliasFor == "" {
			continue
		}

		if isMsg, direction := DetectMsgDirection(alias.AliasFor); isMsg {
			flagged := alias
			flagged.Direction = direction
			enr.MsgTags = append(enr.MsgTags, flagged)
			continue
		}

		if IsConsumedReference(alias.AliasFor) {
			enr.ConsumedTags = append(enr.ConsumedTags, alias)
			continue
		}

		addrKey := NormalizeAddress(alias.AliasFor)
		enr.AliasByAddress[addrKey] = append(enr.AliasByAddress[addrKey], alias)
		enr.AliasByName[NormalizeTag(alias.Name)] = alias
	}

	for _, mod := range project.Modules {
		if !isIOCatalog(mod.CatalogNumber, extraCatalogs) {
			continue
		}
		if mod.Name != "" {
			enr.ModuleNames[strings.ToLower(mod.Name)] = struct{}{}
		}
		for _, port := range mod.Ports {
			if port.Address != "" {
				enr.ModuleAddresses[strings.ToLower(port.Address)] = struct{}{}
			}
		}
	}

	for ref := range project.LogicReferences {
		enr.LogicReferences[ref] = struct{}{}
	}

	return enr
}

// EnrichResults folds L5X evidence into the baseline crosscheck results.
//
// Confirmations only append audit entries and the L5X source tag; two
// rules change classification: a rack-style point with no alias and no
// rung-logic reference becomes Rack Only with the conflict flag set, and
// a Spare point referenced in rung logic becomes Conflict. Both
// logic-reference rules are skipped entirely when the reference set is
// empty — absence of extracted logic is not evidence the point is unused.
//
// A PLCTag is never mutated in place: description fill and rack-level
// upgrades build a fresh tag for that one result, so a tag shared with
// another result is unaffected.
func EnrichResults(results []*models.MatchResult, enr *Enrichment) []*models.MatchResult {
	if enr == nil {
		return results
	}

	for _, result := range results {
		var confirmations []string
		aliasFoundForDevice := false

		// --- PLC tag side ---
		if result.PLCTag != nil {
			tag := result.PLCTag

			if alias, ok := enr.AliasByName[NormalizeTag(tag.Name)]; ok {
				confirmations = append(confirmations,
					fmt.Sprintf("L5X alias '%s' -> '%s' confirms tag", alias.Name, alias.AliasFor))

				if tag.Description == "" && alias.Description != "" {
					filled := *tag
					filled.Description = alias.Description
					result.PLCTag = &filled
					tag = result.PLCTag
					confirmations = append(confirmations,
						fmt.Sprintf("L5X supplied description: '%s'", alias.Description))
				}
			}

			if tag.Specifier != "" {
				if aliases, ok := enr.AliasByAddress[NormalizeAddress(tag.Specifier)]; ok {
					confirmations = append(confirmations,
						fmt.Sprintf("L5X alias(es) %v confirm address '%s'", aliasNames(aliases), tag.Specifier))
				}
			}
		}

		// --- IO device side ---
		if result.IODevice != nil {
			dev := result.IODevice

			if dev.PLCAddress != "" {
				if _, ok := enr.ModuleAddresses[strings.ToLower(dev.PLCAddress)]; ok {
					confirmations = append(confirmations,
						fmt.Sprintf("L5X module tree confirms hardware at '%s'", dev.PLCAddress))
				}

				addrKey := NormalizeAddress(dev.PLCAddress)
				if aliases, ok := enr.AliasByAddress[addrKey]; ok {
					aliasFoundForDevice = true
					confirmations = append(confirmations,
						fmt.Sprintf("L5X alias(es) %v reference device address '%s'", aliasNames(aliases), dev.PLCAddress))

					// If the matched PLC tag is just the rack-level base
					// name, upgrade it to the real alias tag so the
					// reviewer sees the actual PLC tag instead of the
					// rack structure.
					if result.PLCTag != nil && len(aliases) == 1 {
						alias := aliases[0]
						rackBase := strings.ToLower(strings.TrimSpace(result.PLCTag.Name))
						addrBase := strings.ToLower(strings.TrimSpace(strings.SplitN(dev.PLCAddress, ".", 2)[0]))
						if rackBase == addrBase {
							oldName := result.PLCTag.Name
							desc := alias.Description
							if desc == "" {
								desc = result.PLCTag.Description
							}
							result.PLCTag = &models.PLCTag{
								RecordType:  models.RecordTag,
								Name:        alias.Name,
								Description: desc,
								Specifier:   alias.AliasFor,
							}
							confirmations = append(confirmations,
								fmt.Sprintf("L5X upgraded PLC tag from rack-level '%s' to alias '%s'", oldName, alias.Name))
						}
					}
				}

				// Rack-style addresses with no alias: consult rung logic.
				// Skipped when no logic references were extracted — an
				// empty set must never produce a false "unused" flag.
				addrFormat := DetectAddressFormat(dev.PLCAddress)
				isRackAddr := addrFormat == models.FormatCLX || addrFormat == models.FormatPLC5

				if !aliasFoundForDevice && isRackAddr &&
					len(enr.LogicReferences) > 0 &&
					result.Classification != models.ClassSpare {
					if _, used := enr.LogicReferences[strings.ToLower(dev.PLCAddress)]; used {
						confirmations = append(confirmations,
							fmt.Sprintf("L5X rung logic references address '%s' directly (no alias, used in logic)", dev.PLCAddress))
					} else {
						result.Classification = models.ClassRackOnly
						result.ConflictFlag = true
						confirmations = append(confirmations,
							fmt.Sprintf("L5X: No alias found for '%s' and address not referenced in rung logic — IO point may be unused", dev.PLCAddress))
					}
				}
			}

			if dev.DeviceTag != "" {
				if _, ok := enr.ModuleNames[strings.ToLower(dev.DeviceTag)]; ok {
					confirmations = append(confirmations,
						fmt.Sprintf("L5X module '%s' confirms IO hardware exists", dev.DeviceTag))
				}
			}
		}

		// --- Spare contradiction ---
		// The IO list says spare, but the logic references the address
		// (directly or through an alias): the point is in use.
		if result.Classification == models.ClassSpare &&
			result.IODevice != nil && result.IODevice.PLCAddress != "" &&
			len(enr.LogicReferences) > 0 {
			addrLower := strings.ToLower(result.IODevice.PLCAddress)
			_, foundInLogic := enr.LogicReferences[addrLower]
			if !foundInLogic {
				for _, alias := range enr.AliasByAddress[NormalizeAddress(result.IODevice.PLCAddress)] {
					if _, ok := enr.LogicReferences[strings.ToLower(alias.Name)]; ok {
						foundInLogic = true
						break
					}
				}
			}
			if foundInLogic {
				result.Classification = models.ClassConflict
				result.ConflictFlag = true
				confirmations = append(confirmations,
					fmt.Sprintf("L5X: IO list marks '%s' as spare but address is referenced in rung logic — point is used in logic", result.IODevice.PLCAddress))
			}
		}

		if len(confirmations) > 0 {
			if !containsString(result.Sources, EnrichmentSource) {
				result.Sources = append(result.Sources, EnrichmentSource)
			}
			result.AuditTrail = append(result.AuditTrail, confirmations...)
		}
	}

	return results
}

func aliasNames(aliases []models.AliasTag) []string {
	names := make([]string, len(aliases))
	for i, a := range aliases {
		names[i] = a.Name
	}
	return names
}

func isIOCatalog(catalog string, extra []string) bool {
	if catalog == "" {
		return false
	}
	for _, pat := range ioCatalogPatterns {
		if pat.MatchString(catalog) {
			return true
		}
	}
	catalogLower := strings.ToLower(catalog)
	for _, prefix := range extra {
		if prefix != "" && strings.HasPrefix(catalogLower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}
