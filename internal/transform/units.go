package transform

import (
	"log"

	"dotaconstants/internal/feed"
)

const (
	baseUnit                = "npc_dota_units_base"
	neutralAbilityImageBase = "/assets/images/dota2/neutral_abilities/"
	relationshipDefault     = "DOTA_NPC_UNIT_RELATIONSHIP_TYPE_DEFAULT"
	teamNeutrals            = "DOTA_TEAM_NEUTRALS"
	maxInheritanceDepth     = 32
)

// placeholder entries in the unit and hero scripts
var badNames = map[string]bool{
	"Version":                         true,
	"npc_dota_hero_base":              true,
	"npc_dota_hero_target_dummy":      true,
	"npc_dota_units_base":             true,
	"npc_dota_thinker":                true,
	"npc_dota_companion":              true,
	"npc_dota_loadout_generic":        true,
	"npc_dota_techies_remote_mine":    true,
	"npc_dota_treant_life_bomb":       true,
	"npc_dota_lich_ice_spire":         true,
	"npc_dota_mutation_pocket_roshan": true,
	"npc_dota_scout_hawk":             true,
	"npc_dota_greater_hawk":           true,
}

var abilitySlots = []string{"Ability1", "Ability2", "Ability3", "Ability4", "Ability5", "Ability6", "Ability7", "Ability8"}

var badNeutralAbilities = map[string]bool{
	"creep_piercing":               true,
	"creep_irresolute":             true,
	"flagbearer_creep_aura_effect": true,
	"creep_siege":                  true,
	"backdoor_protection":          true,
	"backdoor_protection_in_base":  true,
	"filler_ability":               true,
	"neutral_upgrade":              true,
}

// attachable units, couriers, buildings and siege creeps
var badUnitRelationships = map[string]bool{
	"DOTA_NPC_UNIT_RELATIONSHIP_TYPE_ATTACHED": true,
	"DOTA_NPC_UNIT_RELATIONSHIP_TYPE_COURIER":  true,
	"DOTA_NPC_UNIT_RELATIONSHIP_TYPE_BUILDING": true,
	"DOTA_NPC_UNIT_RELATIONSHIP_TYPE_BARRACKS": true,
	"DOTA_NPC_UNIT_RELATIONSHIP_TYPE_SIEGE":    true,
}

// UnitGraph resolves unit properties through the scripts' inheritance:
// the unit itself, then the unit named by include_keys_from, then its
// BaseClass when that names another unit, then npc_dota_units_base.
type UnitGraph struct {
	units *feed.Table
	base  *feed.Table
}

// NewUnitGraph indexes a DOTAUnits table.
func NewUnitGraph(units *feed.Table) UnitGraph {
	return UnitGraph{units: units, base: units.Sub(baseUnit)}
}

// Prop returns the scalar property of the named unit.
func (g UnitGraph) Prop(name, prop string) (string, bool) {
	seen := make(map[string]bool)
	for depth := 0; depth < maxInheritanceDepth; depth++ {
		unit := g.units.Sub(name)
		if unit == nil {
			break
		}
		if seen[name] {
			log.Printf("[Units] inheritance cycle at %s resolving %s", name, prop)
			break
		}
		seen[name] = true

		if raw, ok := unit.Lookup(prop); ok {
			return feed.Text(raw)
		}
		if include := unit.Str("include_keys_from"); include != "" {
			name = include
			continue
		}
		if class := unit.Str("BaseClass"); class != "" && class != name && g.units.Sub(class) != nil {
			name = class
			continue
		}
		break
	}
	return g.base.StrOK(prop)
}

// Str is Prop without the presence flag.
func (g UnitGraph) Str(name, prop string) string {
	s, _ := g.Prop(name, prop)
	return s
}

// candidate applies the filters shared by neutral creeps and ancients.
func (g UnitGraph) candidate(name string) bool {
	if badNames[name] {
		return false
	}
	unit := g.units.Sub(name)
	// MinimapIcon "0" counts as no icon.
	if unit == nil || feed.Truthy(rawValue(unit, "MinimapIcon")) {
		return false
	}
	if g.Str(name, "BountyXP") == "0" {
		return false
	}
	// an explicit HasInventory 0 comes from a hero template
	if unit.Str("HasInventory") == "0" || g.Str(name, "HasInventory") == "1" {
		return false
	}
	return true
}

// NeutralAbility is one entry of neutral_abilities.json.
type NeutralAbility struct {
	Img string `json:"img"`
}

// NeutralAbilities lists the abilities of neutral creeps.
func NeutralAbilities(units *feed.Table) *Collection[*NeutralAbility] {
	g := NewUnitGraph(units)
	out := NewCollection[*NeutralAbility]()

	for _, name := range entityKeys(units) {
		if !g.candidate(name) || badUnitRelationships[g.Str(name, "UnitRelationshipClass")] {
			continue
		}
		var abilities []string
		for _, slot := range abilitySlots {
			if a := g.Str(name, slot); a != "" && !badNeutralAbilities[a] {
				abilities = append(abilities, a)
			}
		}
		for _, a := range abilities {
			if _, ok := out.Get(a); !ok {
				out.Put(a, &NeutralAbility{Img: neutralAbilityImageBase + a + ".png"})
			}
		}
	}
	return out
}

// Ancients lists the neutral ancient creeps.
func Ancients(units *feed.Table) *Collection[int] {
	g := NewUnitGraph(units)
	out := NewCollection[int]()

	for _, name := range entityKeys(units) {
		if !g.candidate(name) {
			continue
		}
		if g.Str(name, "UnitRelationshipClass") != relationshipDefault {
			continue
		}
		if level := g.Str(name, "Level"); level == "0" || level == "1" {
			continue
		}
		if g.Str(name, "TeamName") != teamNeutrals {
			continue
		}
		if g.Str(name, "IsNeutralUnitType") == "0" || g.Str(name, "IsRoshan") == "1" {
			continue
		}
		if g.Str(name, "IsAncient") == "1" {
			out.Put(name, 1)
		}
	}
	return out
}
