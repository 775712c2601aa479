package transform

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"dotaconstants/internal/attrib"
	"dotaconstants/internal/feed"
	"dotaconstants/internal/tooltip"
)

const (
	itemImageBase   = "/apps/dota2/images/dota_react/items/"
	itemImageStamp  = "?t=1593393829403"
	itemTooltipBase = "DOTA_Tooltip_ability_"
)

var recipeMarker = regexp.MustCompile(`(?i)recipe_`)

// qualities the item scripts get wrong
var itemQualOverrides = map[string]string{
	"fluffy_hat":            "component",
	"ring_of_health":        "secret_shop",
	"void_stone":            "secret_shop",
	"overwhelming_blink":    "artifact",
	"swift_blink":           "artifact",
	"arcane_blink":          "artifact",
	"moon_shard":            "common",
	"aghanims_shard":        "consumable",
	"kaya":                  "artifact",
	"helm_of_the_dominator": "common",
	"helm_of_the_overlord":  "common",
	"desolator":             "epic",
	"mask_of_madness":       "common",
	"orb_of_corrosion":      "common",
	"falcon_blade":          "common",
	"mage_slayer":           "artifact",
	"revenants_brooch":      "epic",
}

// Item is one entry of items.json.
type Item struct {
	Hint       []string           `json:"hint,omitempty"`
	ID         int                `json:"id"`
	Img        string             `json:"img"`
	Dname      string             `json:"dname,omitempty"`
	Qual       string             `json:"qual,omitempty"`
	Cost       *int               `json:"cost"`
	Desc       *string            `json:"desc,omitempty"`
	Notes      string             `json:"notes"`
	Attrib     []attrib.Formatted `json:"attrib"`
	MC         Flag               `json:"mc"`
	CD         Flag               `json:"cd"`
	Lore       string             `json:"lore"`
	Components []string           `json:"components"`
	Created    bool               `json:"created"`
	Charges    *Flag              `json:"charges,omitempty"`
	Tier       int                `json:"tier,omitempty"`
}

// Items builds items.json from the ability localization tokens, the item
// scripts and the neutral item tier list.
func Items(tokens, defs, neutrals *feed.Table) *Collection[*Item] {
	loc := tokens.Strings()
	// item strings are published under both capitalizations
	for key, v := range loc {
		if strings.Contains(key, "DOTA_Tooltip_Ability_") {
			loc[strings.Replace(key, "DOTA_Tooltip_Ability_", itemTooltipBase, 1)] = v
		}
	}
	tiers := NeutralTiers(neutrals)

	items := NewCollection[*Item]()
	for _, key := range entityKeys(defs) {
		entity := defs.Sub(key)
		if key == "Version" || (strings.Contains(key, "item_recipe") && entity.Str("ItemCost") == "0") {
			continue
		}
		items.Put(strings.TrimPrefix(key, "item_"), buildItem(key, entity, loc, tiers))
	}

	for _, key := range entityKeys(defs) {
		entity := defs.Sub(key)
		result, hasResult := entity.StrOK("ItemResult")
		requirements := feed.AsList(rawValue(entity, "ItemRequirements"))
		if !hasResult || result == "" || len(requirements) == 0 {
			continue
		}
		name := strings.TrimPrefix(result, "item_")
		item, ok := items.Get(name)
		if !ok {
			log.Printf("[Items] %s: recipe result %s not found", key, name)
			continue
		}
		first, _ := feed.Text(requirements[0])
		item.Components = Components(first)
		item.Created = true
	}

	items.Put("diffusal_blade_2", diffusalBlade2())
	items.Put("recipe_iron_talon", recipeIronTalon())
	return items
}

func rawValue(t *feed.Table, key string) any {
	v, _ := t.Lookup(key)
	return v
}

func buildItem(key string, entity *feed.Table, loc map[string]string, tiers map[string]int) *Item {
	prefix := itemTooltipBase + key
	raw, _ := attrib.Collect(entity)
	attrs := templateAttrs(raw, entity)

	item := &Item{
		Hint:  tooltip.Hints(loc[prefix+"_Description"], attrs, key),
		Img:   itemImageBase + strings.TrimPrefix(key, "item_") + ".png" + itemImageStamp,
		Dname: loc[prefix],
		Qual:  entity.Str("ItemQuality"),
	}
	if strings.Contains(key, "item_recipe") {
		item.Img = itemImageBase + "recipe.png" + itemImageStamp
	}
	if id, ok := attrib.ParseLeadingInt(entity.Str("ID")); ok {
		item.ID = id
	} else {
		log.Printf("[Items] %s: no ID", key)
	}
	if q, ok := itemQualOverrides[strings.TrimPrefix(key, "item_")]; ok {
		item.Qual = q
	}
	if cost, ok := attrib.ParseLeadingInt(entity.Str("ItemCost")); ok {
		item.Cost = &cost
	}

	var notes []string
	for i := 0; loc[prefix+"_Note"+strconv.Itoa(i)] != ""; i++ {
		notes = append(notes, tooltip.Describe(loc[prefix+"_Note"+strconv.Itoa(i)], attrs, key))
	}
	item.Notes = strings.Join(notes, "\n")

	item.Attrib = []attrib.Formatted{}
	for _, row := range attrib.Format(attrs, loc, prefix+"_") {
		if !row.Generated || row.Key == "lifetime" {
			item.Attrib = append(item.Attrib, row)
		}
	}

	item.MC = intFlag(entity.Str("AbilityManaCost"))
	item.CD = intFlag(entity.Str("AbilityCooldown"))
	item.Lore = strings.ReplaceAll(loc[prefix+"_Lore"], tooltip.LineMarker, "\r\n")
	charges := intFlag(entity.Str("ItemInitialCharges"))
	item.Charges = &charges
	item.Tier = tiers[key]
	return item
}

func intFlag(s string) Flag {
	n, _ := attrib.ParseLeadingInt(s)
	return Flag(n)
}

// Components splits a recipe requirements string ("item_a;item_b*") into
// component names.
func Components(requirements string) []string {
	parts := strings.Split(requirements, ";")
	for i, p := range parts {
		parts[i] = strings.Replace(strings.TrimPrefix(p, "item_"), "*", "", 1)
	}
	return parts
}

// NeutralTiers maps neutral item script names (and their recipes without
// the recipe_ part) to their tier.
func NeutralTiers(neutrals *feed.Table) map[string]int {
	tiers := make(map[string]int)
	neutrals.Each(func(tier string, v any) {
		n, ok := attrib.ParseLeadingInt(tier)
		if !ok {
			return
		}
		block, _ := v.(*feed.Table)
		for _, name := range block.Sub("items").Keys() {
			tiers[name] = n
			tiers[recipeMarker.ReplaceAllString(name, "")] = n
		}
	})
	return tiers
}

// templateAttrs is the list %token% templates resolve against: keys
// lower-cased, base stats appended. A nil list stays nil.
func templateAttrs(attrs []attrib.Attribute, entity *feed.Table) []attrib.Attribute {
	if attrs == nil {
		return nil
	}
	out := make([]attrib.Attribute, len(attrs), len(attrs)+8)
	for i, a := range attrs {
		out[i] = attrib.Attribute{Key: a.LowerKey(), Value: a.Value}
	}
	return attrib.WithBaseStats(out, entity)
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

// historical records kept for matches played before 7.07

func diffusalBlade2() *Item {
	generated := func(key, header, value string) attrib.Formatted {
		return attrib.Formatted{Key: key, Header: header, Value: attrib.Values{value}, Generated: true}
	}
	return &Item{
		ID:    196,
		Img:   itemImageBase + "diffusal_blade_2.png?3",
		Dname: "Diffusal Blade",
		Qual:  "artifact",
		Cost:  intPtr(3850),
		Desc: strPtr("Active: Purge Targets an enemy, removing buffs from the target and slowing it for 4 seconds.Range: 600\n" +
			"Passive: ManabreakEach attack burns 50 mana from the target, and deals 0.8 physical damage per burned mana. " +
			"Burns 16 mana per attack from melee illusions and 8 mana per attack from ranged illusions. Dispel Type: Basic Dispel"),
		Notes: "Does not stack with other manabreak abilities.",
		Attrib: []attrib.Formatted{
			{Key: "bonus_agility", Header: "", Value: attrib.Values{"25", "35"}, Footer: "Agility"},
			{Key: "bonus_intellect", Header: "", Value: attrib.Values{"10", "15"}, Footer: "Intelligence"},
			generated("initial_charges", "INITIAL CHARGES:", "8"),
			generated("feedback_mana_burn", "FEEDBACK MANA BURN:", "50"),
			generated("feedback_mana_burn_illusion_melee", "FEEDBACK MANA BURN ILLUSION MELEE:", "16"),
			generated("feedback_mana_burn_illusion_ranged", "FEEDBACK MANA BURN ILLUSION RANGED:", "8"),
			generated("purge_summoned_damage", "PURGE SUMMONED DAMAGE:", "99999"),
			generated("purge_rate", "PURGE RATE:", "5"),
			generated("purge_root_duration", "PURGE ROOT DURATION:", "3"),
			generated("purge_slow_duration", "PURGE SLOW DURATION:", "4"),
			generated("damage_per_burn", "DAMAGE PER BURN:", "0.8"),
			generated("cast_range_tooltip", "CAST RANGE TOOLTIP:", "600"),
		},
		CD:         4,
		Lore:       "An enchanted blade that allows the user to cut straight into the enemy's soul.",
		Components: []string{"diffusal_blade", "recipe_diffusal_blade"},
		Created:    true,
	}
}

func recipeIronTalon() *Item {
	return &Item{
		ID:     238,
		Img:    itemImageBase + "recipe.png?3",
		Dname:  "Iron Talon Recipe",
		Cost:   intPtr(125),
		Desc:   strPtr(""),
		Attrib: []attrib.Formatted{},
	}
}
