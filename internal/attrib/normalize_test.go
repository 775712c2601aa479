package attrib

import (
	"reflect"
	"testing"

	"dotaconstants/internal/feed"
)

func TestFormat(t *testing.T) {
	const prefix = "DOTA_Tooltip_ability_test_"
	loc := map[string]string{
		prefix + "damage":          "DAMAGE:",
		prefix + "slow":            "%<b>MOVE SLOW</b>:",
		prefix + "bonus_armor":     "+$armor",
		prefix + "bonus_range":     "+$attack_range",
		"dota_ability_variable_armor":        "Armor",
		"dota_ability_variable_attack_range": "<font color='#fff'>Attack Range</font>",
	}
	attrs := []Attribute{
		{Key: "damage", Value: Scalar("100 150 200")},
		{Key: "Slow", Value: Value{Kind: KindRecord, Text: "20 30", Set: true, Fields: []Field{{Name: "special_bonus_unique_test", Value: "+10"}}}},
		{Key: "bonus_armor", Value: Scalar("5")},
		{Key: "bonus_range", Value: Scalar("100")},
		{Key: "abilitycastrange", Value: Scalar("600")},
		{Key: "radius_extra", Value: Scalar("250.0")},
		{Key: "abilitymanacost", Value: Scalar("100")},
		{Key: "nothing", Value: Value{Kind: KindScalar}},
		{Key: "empty_record", Value: Value{Kind: KindRecord, Fields: []Field{{Name: "RequiresScepter", Value: "1"}}}},
	}

	got := Format(attrs, loc, prefix)
	want := []Formatted{
		{Key: "damage", Header: "DAMAGE:", Value: Values{"100", "150", "200"}},
		{Key: "slow", Header: "MOVE SLOW:", Value: Values{"20%", "30%"}},
		{Key: "bonus_armor", Header: "+", Value: Values{"5"}, Footer: "Armor"},
		{Key: "bonus_range", Header: "+", Value: Values{"100"}, Footer: "Attack Range"},
		{Key: "abilitycastrange", Header: "CAST RANGE:", Value: Values{"600"}, Generated: true},
		{Key: "radius_extra", Header: "RADIUS EXTRA:", Value: Values{"250"}, Generated: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Format() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestFormat_NeverEmitsMissingValue(t *testing.T) {
	entity := feed.NewTable()
	values := feed.NewTable()
	values.Put("a", nil)
	rec := feed.NewTable()
	rec.Put("special_bonus_x", "+1")
	values.Put("b", rec)
	values.Put("c", "3")
	entity.Put("AbilityValues", values)

	attrs, ok := Collect(entity)
	if !ok {
		t.Fatal("Collect() ok = false, want true")
	}
	for _, row := range Format(attrs, map[string]string{}, "p_") {
		if len(row.Value) == 0 {
			t.Errorf("row %q has no value", row.Key)
		}
		if row.Key == "a" || row.Key == "b" {
			t.Errorf("row %q should have been dropped", row.Key)
		}
	}
}

func TestGeneratedHeader(t *testing.T) {
	tests := map[string]string{
		"abilitycharges":      "MAX CHARGES",
		"charge_restore_time": "CHARGE RESTORE TIME",
		"bonus_damage":        "BONUS DAMAGE",
		"radius":              "RADIUS",
	}
	for key, want := range tests {
		if got := GeneratedHeader(key); got != want {
			t.Errorf("GeneratedHeader(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestStripTags(t *testing.T) {
	if got := StripTags("<b>Bold</b> and <font color='red'>red</font>"); got != "Bold and red" {
		t.Errorf("StripTags() = %q", got)
	}
}
