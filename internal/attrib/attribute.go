// Package attrib models per-entity special attributes and turns them into
// display records: header lookup, value formatting and upgrade bonus math.
package attrib

import (
	"strings"

	"dotaconstants/internal/feed"
)

// Kind separates plain values from records carrying bonus sub-fields.
type Kind int

const (
	// KindScalar is a bare value such as "10 20 30".
	KindScalar Kind = iota
	// KindRecord is {value: ..., <upgrade or talent>: ..., ...}.
	KindRecord
)

// UpgradeKind classifies a record sub-field that changes the value.
type UpgradeKind int

const (
	UpgradeNone UpgradeKind = iota
	UpgradeScepter
	UpgradeShard
	UpgradeTalent
)

const talentPrefix = "special_bonus_"

// ClassifyField tells which upgrade, if any, a record sub-field stands for.
func ClassifyField(name string) UpgradeKind {
	switch {
	case strings.Contains(name, "scepter"):
		return UpgradeScepter
	case strings.Contains(name, "shard"):
		return UpgradeShard
	case strings.HasPrefix(name, talentPrefix):
		return UpgradeTalent
	default:
		return UpgradeNone
	}
}

// Field is a record sub-field other than value.
type Field struct {
	Name  string
	Value string
}

// Value is an attribute value: Scalar(text) or Record(text, fields).
type Value struct {
	Kind Kind
	// Text is the scalar, or the record's value field.
	Text string
	// Set is false for a null scalar or a record without a value field.
	Set bool
	// Fields holds a record's sub-fields except value, in feed order.
	Fields []Field
}

// Scalar builds a plain value.
func Scalar(text string) Value {
	return Value{Kind: KindScalar, Text: text, Set: true}
}

// Field returns the named record sub-field.
func (v Value) Field(name string) (string, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Upgrades returns the scepter and shard sub-fields in feed order.
func (v Value) Upgrades() []Field {
	var out []Field
	for _, f := range v.Fields {
		if k := ClassifyField(f.Name); k == UpgradeScepter || k == UpgradeShard {
			out = append(out, f)
		}
	}
	return out
}

// TalentField returns the first special_bonus_* sub-field.
func (v Value) TalentField() (Field, bool) {
	for _, f := range v.Fields {
		if strings.HasPrefix(f.Name, talentPrefix) {
			return f, true
		}
	}
	return Field{}, false
}

// Size counts the record's keys including value.
func (v Value) Size() int {
	n := len(v.Fields)
	if v.Set {
		n++
	}
	return n
}

// Attribute is one entry of an entity's special attribute list.
type Attribute struct {
	Key   string
	Value Value
}

// LowerKey returns the key as used for lookups.
func (a Attribute) LowerKey() string {
	return strings.ToLower(a.Key)
}

// Find returns the first attribute whose lower-cased key is name.
func Find(attrs []Attribute, name string) (Attribute, bool) {
	for _, a := range attrs {
		if a.LowerKey() == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// keys that describe an AbilitySpecial entry rather than name it
var specialMetaKeys = map[string]bool{
	"var_type":                    true,
	"LinkedSpecialBonus":          true,
	"LinkedSpecialBonusField":     true,
	"LinkedSpecialBonusOperation": true,
	"CalculateSpellDamageTooltip": true,
	"RequiresScepter":             true,
	"RequiresShard":               true,
	"DamageTypeTooltip":           true,
	"levelkey":                    true,
	"ad_linked_abilities":         true,
}

// Collect reads an entity's AbilitySpecial (array or object of entries) or,
// failing that, its AbilityValues block. The bool is false when the entity
// has neither.
func Collect(entity *feed.Table) ([]Attribute, bool) {
	if special, ok := entity.Lookup("AbilitySpecial"); ok && special != nil {
		attrs := []Attribute{}
		for _, raw := range feed.AsList(special) {
			entry, ok := raw.(*feed.Table)
			if !ok {
				continue
			}
			for _, key := range entry.Keys() {
				if specialMetaKeys[key] {
					continue
				}
				v, _ := entry.Lookup(key)
				attrs = append(attrs, Attribute{Key: key, Value: ValueOf(v)})
				break
			}
		}
		return attrs, true
	}

	values := entity.Sub("AbilityValues")
	if values == nil {
		return nil, false
	}
	attrs := make([]Attribute, 0, values.Len())
	values.Each(func(key string, v any) {
		attrs = append(attrs, Attribute{Key: key, Value: ValueOf(v)})
	})
	return attrs, true
}

// ValueOf converts a decoded feed value.
func ValueOf(raw any) Value {
	switch x := raw.(type) {
	case *feed.Table:
		v := Value{Kind: KindRecord}
		x.Each(func(name string, fv any) {
			text, ok := feed.Text(fv)
			if name == "value" {
				v.Text, v.Set = text, ok
				return
			}
			if ok {
				v.Fields = append(v.Fields, Field{Name: name, Value: text})
			}
		})
		return v
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := feed.Text(item); ok {
				parts = append(parts, s)
			}
		}
		return Scalar(strings.Join(parts, " "))
	default:
		text, ok := feed.Text(raw)
		return Value{Kind: KindScalar, Text: text, Set: ok}
	}
}

var baseStatKeys = []string{
	"AbilityCastRange",
	"AbilityChargeRestoreTime",
	"AbilityDuration",
	"AbilityChannelTime",
	"AbilityCastPoint",
	"AbilityCharges",
	"AbilityManaCost",
	"AbilityCooldown",
}

// remapped base stats also published under a second name
var remapped = map[string]string{
	"abilitychargerestoretime": "charge_restore_time",
	"abilitycharges":           "max_charges",
}

// WithBaseStats appends the entity's base-stat fields (cast range, charges,
// ...) as lower-cased attributes so templates can reference them. A
// remapped alias is only added when the list does not already carry it.
func WithBaseStats(attrs []Attribute, entity *feed.Table) []Attribute {
	for _, name := range baseStatKeys {
		raw, ok := entity.Lookup(name)
		if !ok {
			continue
		}
		v := ValueOf(raw)
		if !v.Set {
			continue
		}
		levels := strings.Split(v.Text, " ")
		for i, l := range levels {
			levels[i] = feed.FormatNumber(Number(l))
		}
		stat := Scalar(strings.Join(levels, " "))

		key := strings.ToLower(name)
		attrs = append(attrs, Attribute{Key: key, Value: stat})
		if alias, ok := remapped[key]; ok {
			if _, exists := Find(attrs, alias); !exists {
				attrs = append(attrs, Attribute{Key: alias, Value: stat})
			}
		}
	}
	return attrs
}

// DedupeRemapped drops a base-stat key when its remapped alias is also in
// the list, leaving one entry per pair.
func DedupeRemapped(attrs []Attribute) []Attribute {
	for base, alias := range remapped {
		if _, ok := Find(attrs, alias); !ok {
			continue
		}
		for i, a := range attrs {
			if a.LowerKey() == base {
				attrs = append(attrs[:i:i], attrs[i+1:]...)
				break
			}
		}
	}
	return attrs
}
