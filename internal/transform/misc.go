package transform

import (
	"log"
	"strings"

	"dotaconstants/internal/attrib"
	"dotaconstants/internal/feed"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const regionPrefix = "#dota_region_"

// ItemIDs maps item ids to item names.
func ItemIDs(defs *feed.Table) *Collection[string] {
	out := NewCollection[string]()
	for _, key := range entityKeys(defs) {
		if id, ok := defs.Sub(key).StrOK("ID"); ok {
			out.Put(id, strings.Replace(key, "item_", "", 1))
		}
	}
	// retired in 7.07 but still referenced by old matches
	out.Put("196", "diffusal_blade_2")
	return idOrder(out)
}

// AbilityIDs maps ability ids to ability names.
func AbilityIDs(defs *feed.Table) *Collection[string] {
	out := NewCollection[string]()
	for _, key := range entityKeys(defs) {
		if id := defs.Sub(key).Str("ID"); id != "" {
			out.Put(id, key)
		}
	}
	return idOrder(out)
}

// Regions maps region ids to upper-cased region names
// ("#dota_region_us_west" becomes "US WEST").
func Regions(regions *feed.Table) *Collection[string] {
	upper := cases.Upper(language.English)
	out := NewCollection[string]()
	regions.Sub("regions").Each(func(key string, v any) {
		r, ok := v.(*feed.Table)
		if !ok {
			return
		}
		id := r.Str("region")
		if n := attrib.Number(id); !(n > 0) {
			return
		}
		name := strings.TrimPrefix(r.Str("display_name"), regionPrefix)
		out.Put(id, upper.String(strings.Join(strings.Split(name, "_"), " ")))
	})
	return idOrder(out)
}

// Clusters maps server cluster ids to region ids.
func Clusters(clusters []any) *Collection[any] {
	out := NewCollection[any]()
	for _, raw := range clusters {
		c, ok := raw.(*feed.Table)
		if !ok {
			continue
		}
		id, ok := c.StrOK("id")
		if !ok {
			log.Printf("[Cluster] entry without id")
			continue
		}
		region, _ := c.Lookup("regionId")
		out.Put(id, region)
	}
	return idOrder(out)
}

// Country is one entry of countries.json.
type Country struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	CCA2 string `json:"cca2"`
}

// Countries keys countries by ISO 3166-1 alpha-2 code.
func Countries(countries []any) *Collection[*Country] {
	out := NewCollection[*Country]()
	for _, raw := range countries {
		c, ok := raw.(*feed.Table)
		if !ok {
			continue
		}
		country := &Country{CCA2: c.Str("cca2")}
		country.Name.Common = c.Sub("name").Str("common")
		out.Put(country.CCA2, country)
	}
	return out
}
