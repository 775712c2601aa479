package transform

import (
	"fmt"
	"strings"

	"dotaconstants/internal/attrib"
	"dotaconstants/internal/feed"
	"dotaconstants/internal/tooltip"
)

const abilityImageBase = "/apps/dota2/images/dota_react/abilities/"

// script entries that are not abilities
var notAbilities = map[string]bool{
	"Version":         true,
	"ability_base":    true,
	"default_attack":  true,
	"attribute_bonus": true,
	"ability_deward":  true,
}

var behaviorLabels = map[string]string{
	"DOTA_ABILITY_BEHAVIOR_NONE":          "None",
	"DOTA_ABILITY_BEHAVIOR_PASSIVE":       "Passive",
	"DOTA_ABILITY_BEHAVIOR_UNIT_TARGET":   "Unit Target",
	"DOTA_ABILITY_BEHAVIOR_CHANNELLED":    "Channeled",
	"DOTA_ABILITY_BEHAVIOR_POINT":         "Point Target",
	"DOTA_ABILITY_BEHAVIOR_ROOT_DISABLES": "Root",
	"DOTA_ABILITY_BEHAVIOR_AOE":           "AOE",
	"DOTA_ABILITY_BEHAVIOR_NO_TARGET":     "No Target",
	"DOTA_ABILITY_BEHAVIOR_AUTOCAST":      "Autocast",
	"DOTA_ABILITY_BEHAVIOR_ATTACK":        "Attack Modifier",
	"DOTA_ABILITY_BEHAVIOR_IMMEDIATE":     "Instant Cast",
	"DOTA_ABILITY_BEHAVIOR_HIDDEN":        "Hidden",
	"DAMAGE_TYPE_PHYSICAL":                "Physical",
	"DAMAGE_TYPE_MAGICAL":                 "Magical",
	"DAMAGE_TYPE_PURE":                    "Pure",
	"SPELL_IMMUNITY_ENEMIES_YES":          "Yes",
	"SPELL_IMMUNITY_ENEMIES_NO":           "No",
	"SPELL_IMMUNITY_ALLIES_YES":           "Yes",
	"SPELL_IMMUNITY_ALLIES_NO":            "No",
	"SPELL_DISPELLABLE_YES":               "Yes",
	"SPELL_DISPELLABLE_NO":                "No",
	"DOTA_UNIT_TARGET_TEAM_BOTH":          "Both",
	"DOTA_UNIT_TARGET_TEAM_ENEMY":         "Enemy",
	"DOTA_UNIT_TARGET_TEAM_FRIENDLY":      "Friendly",
	"DOTA_UNIT_TARGET_HERO":               "Hero",
	"DOTA_UNIT_TARGET_BASIC":              "Basic",
	"DOTA_UNIT_TARGET_BUILDING":           "Building",
	"DOTA_UNIT_TARGET_TREE":               "Tree",
}

var ignoredBehaviors = map[string]bool{
	"DOTA_ABILITY_BEHAVIOR_ROOT_DISABLES":        true,
	"DOTA_ABILITY_BEHAVIOR_DONT_RESUME_ATTACK":   true,
	"DOTA_ABILITY_BEHAVIOR_DONT_RESUME_MOVEMENT": true,
	"DOTA_ABILITY_BEHAVIOR_IGNORE_BACKSWING":     true,
	"DOTA_ABILITY_BEHAVIOR_TOGGLE":               true,
	"DOTA_ABILITY_BEHAVIOR_IGNORE_PSEUDO_QUEUE":  true,
	"DOTA_ABILITY_BEHAVIOR_SHOW_IN_GUIDES":       true,
}

// Ability is one entry of abilities.json.
type Ability struct {
	Dname       string             `json:"dname,omitempty"`
	Behavior    Labels             `json:"behavior,omitempty"`
	DmgType     Labels             `json:"dmg_type,omitempty"`
	BKBPierce   Labels             `json:"bkbpierce,omitempty"`
	Dispellable Labels             `json:"dispellable,omitempty"`
	TargetTeam  Labels             `json:"target_team,omitempty"`
	TargetType  Labels             `json:"target_type,omitempty"`
	Desc        string             `json:"desc,omitempty"`
	Dmg         attrib.Values      `json:"dmg,omitempty"`
	Attrib      []attrib.Formatted `json:"attrib"`
	Lore        string             `json:"lore,omitempty"`
	MC          attrib.Values      `json:"mc,omitempty"`
	CD          attrib.Values      `json:"cd,omitempty"`
	Img         string             `json:"img"`
}

// Talent is the abilities.json entry of a special_bonus_* talent.
type Talent struct {
	Dname string `json:"dname,omitempty"`
}

// Abilities builds abilities.json. Talent names are filled through the
// run's bonus lookup, and the upgrade values of every ability with
// special attributes are recorded in st.Upgrades.
func Abilities(tokens, defs *feed.Table, st *State) (*Collection[any], error) {
	loc := tokens.Strings()
	out := NewCollection[any]()

	for _, key := range entityKeys(defs) {
		if notAbilities[key] {
			continue
		}
		entity := defs.Sub(key)
		prefix := "DOTA_Tooltip_ability_" + key
		raw, hasAttrs := attrib.Collect(entity)

		name, ok := loc[prefix]
		if !ok {
			name = loc["DOTA_Tooltip_Ability_"+key]
		}
		name = st.Bonuses.ReplaceS(name, raw, key)
		if linked := entity.Str("ad_linked_abilities"); linked != "" {
			if target := defs.Sub(linked); target != nil {
				name = tooltip.ReplaceLinkedBonus(name, key, target.Sub("AbilityValues"))
			}
		}

		attrs := raw
		template := loc[prefix+"_Description"]
		if template != "" {
			attrs = templateAttrs(raw, entity)
		}
		desc := tooltip.Describe(template, attrs, key)
		// the remapped duplicates were only needed by the description
		attrs = attrib.DedupeRemapped(attrs)

		if hasAttrs {
			if err := st.Upgrades.Record(key, UpgradeValues(attrs, entity)); err != nil {
				return nil, fmt.Errorf("abilities: %w", err)
			}
		}

		if strings.HasPrefix(key, "special_bonus") {
			out.Put(key, &Talent{Dname: name})
			continue
		}

		ability := &Ability{
			Dname:       name,
			Behavior:    formatBehavior(entity.Str("AbilityBehavior")),
			DmgType:     formatBehavior(entity.Str("AbilityUnitDamageType")),
			BKBPierce:   formatBehavior(entity.Str("SpellImmunityType")),
			Dispellable: formatBehavior(entity.Str("SpellDispellableType")),
			TargetTeam:  formatBehavior(entity.Str("AbilityUnitTargetTeam")),
			TargetType:  formatBehavior(entity.Str("AbilityUnitTargetType")),
			Desc:        desc,
			Attrib:      attrib.Format(attrs, loc, prefix+"_"),
			Lore:        loc[prefix+"_Lore"],
			MC:          levelValues(entity, "AbilityManaCost"),
			CD:          levelValues(entity, "AbilityCooldown"),
			Img:         abilityImageBase + key + ".png",
		}
		if dmg := entity.Str("AbilityDamage"); dmg != "" {
			ability.Dmg = attrib.FormatValueString(dmg, false, "")
		}
		out.Put(key, ability)
	}
	return out, nil
}

// levelValues reads a per-level stat from the entity or, when absent there,
// from its AbilityValues block.
func levelValues(entity *feed.Table, name string) attrib.Values {
	raw, ok := entity.Lookup(name)
	if !ok || raw == nil {
		raw, ok = entity.Sub("AbilityValues").Lookup(name)
	}
	if !ok {
		return nil
	}
	v := attrib.ValueOf(raw)
	if !v.Set || v.Text == "" {
		return nil
	}
	return attrib.FormatValueString(v.Text, false, "/")
}

func formatBehavior(s string) Labels {
	if s == "" {
		return nil
	}
	var labels Labels
	for _, part := range strings.Split(s, " | ") {
		part = strings.TrimSpace(part)
		if ignoredBehaviors[part] {
			continue
		}
		if label, ok := behaviorLabels[part]; ok {
			labels = append(labels, label)
		}
	}
	return labels
}

// UpgradeValues flattens an ability's attributes into the values it has
// with its scepter or shard upgrade.
//
// Abilities granted by an upgrade copy every value. Otherwise a record
// with a scepter or shard field yields the upgraded value (and the bare
// bonus under bonus_<key>, or scepter_/shard_<key> for bonus_ keys), an
// attribute named after the upgrade resolves against its sibling bonus,
// and a two-field record gated by RequiresScepter or RequiresShard yields
// its value.
func UpgradeValues(attrs []attrib.Attribute, entity *feed.Table) map[string]string {
	out := make(map[string]string, len(attrs))
	// Flags of "0" are off here even though they are non-empty strings.
	granted := feed.Truthy(rawValue(entity, "IsGrantedByScepter")) || feed.Truthy(rawValue(entity, "IsGrantedByShard"))

	for _, a := range attrs {
		key, v := a.LowerKey(), a.Value
		if granted || v.Kind == attrib.KindScalar {
			if v.Set {
				out[key] = v.Text
			}
			continue
		}

		for _, f := range v.Upgrades() {
			kind := "shard"
			if attrib.ClassifyField(f.Name) == attrib.UpgradeScepter {
				kind = "scepter"
			}
			bonusKey := "bonus_" + key
			if strings.HasPrefix(key, "bonus_") {
				bonusKey = kind + "_" + key
			}
			out[bonusKey] = attrib.StripSigns(f.Value)
			out[key] = attrib.ApplyBonus(v.Text, v.Set, f.Value)
		}

		if k := attrib.ClassifyField(key); k == attrib.UpgradeScepter || k == attrib.UpgradeShard {
			base, hasBase := v.Text, v.Set
			if !hasBase {
				base, hasBase = v.Field(key)
			}
			var sibling *attrib.Field
			for _, f := range v.Upgrades() {
				if f.Name != key {
					sibling = &f
					break
				}
			}
			switch {
			case sibling != nil:
				out[key] = attrib.ApplyBonus(base, hasBase, sibling.Value)
			case hasBase:
				out[key] = base
			}
		}

		if v.Size() == 2 {
			requiresScepter, _ := v.Field("RequiresScepter")
			requiresShard, _ := v.Field("RequiresShard")
			// "0" does not gate the record.
			if (v.Set && v.Text != "" && feed.Truthy(requiresScepter)) || feed.Truthy(requiresShard) {
				if v.Set {
					out[key] = v.Text
				}
			}
		}
	}
	return out
}
