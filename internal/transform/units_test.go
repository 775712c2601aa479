package transform

import (
	"reflect"
	"testing"
)

const unitScripts = `{
	"Version": "1",
	"npc_dota_units_base": {
		"BountyXP": "10",
		"UnitRelationshipClass": "DOTA_NPC_UNIT_RELATIONSHIP_TYPE_DEFAULT",
		"Level": "1",
		"TeamName": "DOTA_TEAM_GOODGUYS"
	},
	"npc_dota_neutral_template": {"BountyXP": "0"},
	"npc_dota_neutral_ghost": {"include_keys_from": "npc_dota_neutral_template", "Ability1": "ghost_frost_attack"},
	"npc_dota_neutral_kobold_taskmaster": {
		"BountyXP": "20",
		"Ability1": "kobold_taskmaster_speed_aura",
		"Ability2": "creep_piercing"
	},
	"npc_dota_neutral_kobold": {"include_keys_from": "npc_dota_neutral_kobold_taskmaster"},
	"npc_dota_neutral_with_icon": {"BountyXP": "20", "MinimapIcon": "minimap_x", "Ability1": "icon_ability"},
	"npc_dota_courier": {
		"BountyXP": "20",
		"UnitRelationshipClass": "DOTA_NPC_UNIT_RELATIONSHIP_TYPE_COURIER",
		"Ability1": "courier_burst"
	},
	"npc_dota_carrier": {"BountyXP": "20", "HasInventory": "1", "Ability1": "carrier_ability"},
	"npc_dota_hero_like": {"BountyXP": "20", "HasInventory": "0", "Ability1": "hero_like_ability"},
	"npc_dota_loop_a": {"BaseClass": "npc_dota_loop_b"},
	"npc_dota_loop_b": {"include_keys_from": "npc_dota_loop_a", "Ability2": "loop_ability"},
	"npc_dota_neutral_black_dragon": {
		"BountyXP": "100", "Level": "6", "TeamName": "DOTA_TEAM_NEUTRALS",
		"IsNeutralUnitType": "1", "IsAncient": "1",
		"Ability1": "black_dragon_fireball"
	},
	"npc_dota_roshan": {
		"BountyXP": "400", "Level": "30", "TeamName": "DOTA_TEAM_NEUTRALS",
		"IsRoshan": "1", "IsAncient": "1"
	},
	"npc_dota_neutral_satyr": {
		"BountyXP": "30", "Level": "4", "TeamName": "DOTA_TEAM_NEUTRALS", "IsNeutralUnitType": "1"
	}
}`

func TestUnitGraph_Prop(t *testing.T) {
	g := NewUnitGraph(decode(t, unitScripts))

	tests := []struct {
		name, unit, prop string
		want             string
		wantOK           bool
	}{
		{"own", "npc_dota_neutral_kobold_taskmaster", "BountyXP", "20", true},
		{"include_keys_from", "npc_dota_neutral_ghost", "BountyXP", "0", true},
		{"two hops", "npc_dota_neutral_kobold", "Ability1", "kobold_taskmaster_speed_aura", true},
		{"base unit", "npc_dota_neutral_kobold", "Level", "1", true},
		{"missing", "npc_dota_neutral_kobold", "IsAncient", "", false},
		{"unknown unit", "npc_dota_nope", "BountyXP", "10", true},
		{"cycle falls back to base", "npc_dota_loop_a", "BountyXP", "10", true},
		{"cycle finds own value", "npc_dota_loop_a", "Ability2", "loop_ability", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.Prop(tt.unit, tt.prop)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Prop(%q, %q) = %q, %v, want %q, %v", tt.unit, tt.prop, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNeutralAbilities(t *testing.T) {
	out := NeutralAbilities(decode(t, unitScripts))

	want := []string{"kobold_taskmaster_speed_aura", "loop_ability", "black_dragon_fireball"}
	if got := out.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	a, _ := out.Get("black_dragon_fireball")
	if a.Img != "/assets/images/dota2/neutral_abilities/black_dragon_fireball.png" {
		t.Errorf("Img = %q", a.Img)
	}
}

func TestNeutralAbilities_InheritedZeroBountyExcluded(t *testing.T) {
	out := NeutralAbilities(decode(t, unitScripts))
	if _, ok := out.Get("ghost_frost_attack"); ok {
		t.Error("unit inheriting BountyXP 0 was kept")
	}
	for _, excluded := range []string{"creep_piercing", "icon_ability", "courier_burst", "carrier_ability", "hero_like_ability"} {
		if _, ok := out.Get(excluded); ok {
			t.Errorf("%s was kept", excluded)
		}
	}
}

func TestAncients(t *testing.T) {
	out := Ancients(decode(t, unitScripts))
	if got := out.Names(); !reflect.DeepEqual(got, []string{"npc_dota_neutral_black_dragon"}) {
		t.Errorf("Names() = %v", got)
	}
	if got := marshal(t, out); got != `{"npc_dota_neutral_black_dragon":1}` {
		t.Errorf("encoded = %s", got)
	}
}
