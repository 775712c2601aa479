package transform

import (
	"reflect"
	"strings"
	"testing"

	"dotaconstants/internal/attrib"
	"dotaconstants/internal/feed"
)

const itemScripts = `{
	"Version": "1",
	"item_blade_of_alacrity": {"ID": "2", "ItemCost": "1000", "ItemQuality": "component"},
	"item_crystalys": {
		"ID": "149", "ItemCost": "2000", "ItemQuality": "epic", "AbilityCooldown": "0",
		"AbilityValues": {"crit_chance": "30", "crit_multiplier": "160"}
	},
	"item_recipe_crystalys": {
		"ID": "148", "ItemCost": "500",
		"ItemRequirements": ["item_broadsword*;item_blades_of_attack"],
		"ItemResult": "item_crystalys"
	},
	"item_recipe_free": {"ID": "300", "ItemCost": "0"},
	"item_trusty_shovel": {"ID": "1000", "ItemCost": "0", "ItemInitialCharges": "3", "AbilityCooldown": "15"},
	"item_fluffy_hat": {"ID": "593", "ItemCost": "250", "ItemQuality": "common"}
}`

const itemTokens = `{
	"DOTA_Tooltip_ability_item_crystalys": "Crystalys",
	"DOTA_Tooltip_ability_item_crystalys_Description": "<h1>Passive: Critical Strike</h1>Grants a %crit_chance%%% chance to deal %crit_multiplier%%% damage.",
	"DOTA_Tooltip_ability_item_crystalys_crit_chance": "%CRIT CHANCE:",
	"DOTA_Tooltip_Ability_item_crystalys_Lore": "A blade.\\nSharp.",
	"DOTA_Tooltip_ability_item_crystalys_Note0": "Does not stack with <b>other</b> criticals.",
	"DOTA_Tooltip_ability_item_crystalys_Note1": "Procs on %crit_chance%%% of attacks."
}`

const neutralItems = `"neutral_items"
{
	"1"
	{
		"items"
		{
			"item_trusty_shovel"        "1"
			"item_recipe_trusty_shovel" "1"
		}
	}
	"version" "2"
}`

func buildTestItems(t *testing.T) *Collection[*Item] {
	t.Helper()
	neutrals := feed.AsTable(feed.Parse([]byte(neutralItems)))
	return Items(decode(t, itemTokens), decode(t, itemScripts), neutrals)
}

func TestItems_RecipeComponentsRoundTrip(t *testing.T) {
	items := buildTestItems(t)

	crystalys, ok := items.Get("crystalys")
	if !ok {
		t.Fatal("crystalys missing")
	}
	want := []string{"broadsword", "blades_of_attack"}
	if !reflect.DeepEqual(crystalys.Components, want) {
		t.Errorf("Components = %v, want %v", crystalys.Components, want)
	}
	if !crystalys.Created {
		t.Error("Created = false, want true")
	}

	blade, _ := items.Get("blade_of_alacrity")
	if blade.Components != nil || blade.Created {
		t.Errorf("blade_of_alacrity = %v / %v, want no components", blade.Components, blade.Created)
	}
}

func TestItems_Fields(t *testing.T) {
	items := buildTestItems(t)
	c, _ := items.Get("crystalys")

	if c.ID != 149 || c.Dname != "Crystalys" || c.Qual != "epic" || c.Cost == nil || *c.Cost != 2000 {
		t.Errorf("crystalys = %+v", c)
	}
	wantHint := []string{"Passive: Critical Strike Grants a 30% chance to deal 160% damage."}
	if !reflect.DeepEqual(c.Hint, wantHint) {
		t.Errorf("Hint = %q, want %q", c.Hint, wantHint)
	}
	if c.Notes != "Does not stack with other criticals.\nProcs on 30% of attacks." {
		t.Errorf("Notes = %q", c.Notes)
	}
	if c.Lore != "A blade.\r\nSharp." {
		t.Errorf("Lore = %q", c.Lore)
	}
	wantAttrib := []attrib.Formatted{{Key: "crit_chance", Header: "CRIT CHANCE:", Value: attrib.Values{"30%"}}}
	if !reflect.DeepEqual(c.Attrib, wantAttrib) {
		t.Errorf("Attrib = %+v, want %+v", c.Attrib, wantAttrib)
	}
	if c.Img != "/apps/dota2/images/dota_react/items/crystalys.png?t=1593393829403" {
		t.Errorf("Img = %q", c.Img)
	}

	encoded := marshal(t, c)
	for _, fragment := range []string{`"mc":false`, `"cd":false`, `"charges":false`, `"components":["broadsword","blades_of_attack"]`} {
		if !strings.Contains(encoded, fragment) {
			t.Errorf("encoded item missing %s: %s", fragment, encoded)
		}
	}
}

func TestItems_FiltersAndOverrides(t *testing.T) {
	items := buildTestItems(t)

	if _, ok := items.Get("recipe_free"); ok {
		t.Error("zero cost recipe was kept")
	}
	if _, ok := items.Get("Version"); ok {
		t.Error("Version was kept")
	}
	recipe, ok := items.Get("recipe_crystalys")
	if !ok || !strings.HasSuffix(recipe.Img, "/recipe.png?t=1593393829403") {
		t.Errorf("recipe_crystalys = %+v", recipe)
	}
	if hat, _ := items.Get("fluffy_hat"); hat.Qual != "component" {
		t.Errorf("fluffy_hat qual = %q, want override component", hat.Qual)
	}

	shovel, _ := items.Get("trusty_shovel")
	if shovel.Tier != 1 || shovel.CD != 15 || shovel.Charges == nil || *shovel.Charges != 3 {
		t.Errorf("trusty_shovel = %+v", shovel)
	}
	if shovel.Hint != nil {
		t.Errorf("Hint = %q, want none without a description", shovel.Hint)
	}
}

func TestItems_HistoricalRecords(t *testing.T) {
	items := buildTestItems(t)
	names := items.Names()
	if names[len(names)-2] != "diffusal_blade_2" || names[len(names)-1] != "recipe_iron_talon" {
		t.Fatalf("last names = %v", names[len(names)-2:])
	}
	d, _ := items.Get("diffusal_blade_2")
	if d.ID != 196 || len(d.Attrib) != 12 || d.CD != 4 || d.Desc == nil {
		t.Errorf("diffusal_blade_2 = %+v", d)
	}
	encoded := marshal(t, d)
	if strings.Contains(encoded, `"charges"`) {
		t.Errorf("diffusal_blade_2 encodes charges: %s", encoded)
	}
}

func TestComponents(t *testing.T) {
	tests := map[string][]string{
		"item_a;item_b":         {"a", "b"},
		"item_ogre_axe*;item_x": {"ogre_axe", "x"},
		"item_single":           {"single"},
	}
	for in, want := range tests {
		if got := Components(in); !reflect.DeepEqual(got, want) {
			t.Errorf("Components(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNeutralTiers(t *testing.T) {
	tiers := NeutralTiers(feed.AsTable(feed.Parse([]byte(neutralItems))))
	want := map[string]int{"item_trusty_shovel": 1, "item_recipe_trusty_shovel": 1, "item_trusty_shovel_": 0}
	for name, tier := range want {
		if tiers[name] != tier {
			t.Errorf("tiers[%q] = %d, want %d", name, tiers[name], tier)
		}
	}
}
