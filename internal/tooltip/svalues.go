package tooltip

import (
	"strings"
	"sync"

	"dotaconstants/internal/attrib"
	"dotaconstants/internal/feed"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// BonusLookup accumulates talent bonus values across every ability
// rendered in a run. When ability X carries a special_bonus_* sub-field,
// the talent's entry gains bonus_<attr> so the talent's own name template
// can be filled when it is rendered later. Entries are never reset within
// a run. Safe for concurrent use.
type BonusLookup struct {
	mu      sync.Mutex
	talents map[string]*orderedmap.OrderedMap[string, string]
}

// NewBonusLookup returns an empty lookup.
func NewBonusLookup() *BonusLookup {
	return &BonusLookup{talents: make(map[string]*orderedmap.OrderedMap[string, string])}
}

// record stores a talent bonus. A talent seen for the first time also
// answers {s:value}.
func (b *BonusLookup) record(talent, bonusKey, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.talents[talent]
	if !ok {
		entry = orderedmap.New[string, string]()
		entry.Set(bonusKey, value)
		entry.Set("value", value)
		b.talents[talent] = entry
		return
	}
	entry.Set(bonusKey, value)
}

// Values returns a copy of the entries recorded for a talent.
func (b *BonusLookup) Values(talent string) *orderedmap.OrderedMap[string, string] {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := orderedmap.New[string, string]()
	if entry, ok := b.talents[talent]; ok {
		for pair := entry.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value)
		}
	}
	return out
}

// Len reports how many talents have entries.
func (b *BonusLookup) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.talents)
}

// ReplaceS fills {s:token} placeholders in an ability name template.
// Values come from the entity's attributes on top of whatever the lookup
// already holds for key; talent sub-fields met on the way are recorded.
func (b *BonusLookup) ReplaceS(template string, attrs []attrib.Attribute, key string) string {
	values := b.Values(key)
	if template == "" || (attrs == nil && values.Len() == 0) {
		return template
	}

	for _, a := range attrs {
		v := a.Value
		if v.Set {
			values.Set(a.Key, v.Text)
		}
		if v.Kind != attrib.KindRecord {
			continue
		}
		if talent, ok := v.TalentField(); ok {
			b.record(talent.Name, "bonus_"+a.Key, attrib.StripSigns(talent.Value))
		}
	}

	for pair := values.Oldest(); pair != nil; pair = pair.Next() {
		template = strings.ReplaceAll(template, "{s:"+pair.Key+"}", pair.Value)
	}
	return template
}

// ReplaceLinkedBonus fills a talent name from the values of the ability
// it is linked to: {s:bonus_<attr>} and {s:value} take the amount that
// ability lists under the talent's name.
func ReplaceLinkedBonus(template, talent string, linked *feed.Table) string {
	if template == "" || linked == nil {
		return template
	}
	linked.Each(func(name string, raw any) {
		v := attrib.ValueOf(raw)
		if v.Kind != attrib.KindRecord {
			return
		}
		amount, ok := v.Field(talent)
		if !ok {
			return
		}
		for _, marker := range []string{"+", "-", "x"} {
			amount = strings.Replace(amount, marker, "", 1)
		}
		template = strings.ReplaceAll(template, "{s:bonus_"+name+"}", amount)
		template = strings.ReplaceAll(template, "{s:value}", amount)
	})
	return template
}
