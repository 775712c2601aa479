package pipeline

import (
	"fmt"

	"dotaconstants/internal/feed"
	"dotaconstants/internal/transform"
)

const (
	vpkBase       = "https://raw.githubusercontent.com/dotabuff/d2vpkr/master/dota/"
	heroDataURL   = "http://www.dota2.com/datafeed/herodata?language=english&hero_id="
	heroDataPath  = "result.data.heroes.0"
	clusterURL    = "https://api.stratz.com/api/v1/Cluster"
	countriesURL  = "https://raw.githubusercontent.com/mledoze/countries/master/countries.json"
	langTokenPath = "lang.Tokens"
)

var (
	abilityTokensFeed = feed.Spec{URL: vpkBase + "resource/localization/abilities_english.json", Path: langTokenPath}
	itemsFeed         = feed.Spec{URL: vpkBase + "scripts/npc/items.json", Path: "DOTAAbilities"}
	neutralItemsFeed  = feed.Spec{URL: vpkBase + "scripts/npc/neutral_items.txt"}
	abilitiesFeed     = feed.Spec{URL: vpkBase + "scripts/npc/npc_abilities.json", Path: "DOTAAbilities"}
	unitsFeed         = feed.Spec{URL: vpkBase + "scripts/npc/npc_units.json", Path: "DOTAUnits"}
	resourceFeed      = feed.Spec{URL: vpkBase + "resource/dota_english.json", Path: langTokenPath}
	heroesFeed        = feed.Spec{URL: vpkBase + "scripts/npc/npc_heroes.json", Path: "DOTAHeroes"}
	dotaTokensFeed    = feed.Spec{URL: vpkBase + "resource/localization/dota_english.json", Path: langTokenPath}
	heroLoreFeed      = feed.Spec{URL: vpkBase + "resource/localization/hero_lore_english.txt"}
	regionsFeed       = feed.Spec{URL: vpkBase + "scripts/regions.json"}
	chatWheelFeed     = feed.Spec{URL: vpkBase + "scripts/chat_wheel.txt"}
	heroChatWheelFeed = feed.Spec{URL: vpkBase + "resource/localization/hero_chat_wheel_english.txt"}
	patchNotesFeed    = feed.Spec{URL: vpkBase + "resource/localization/patchnotes/patchnotes_english.txt"}
	clusterFeed       = feed.Spec{URL: clusterURL, Auth: true}
	countriesFeed     = feed.Spec{URL: countriesURL}
)

// Inputs is what a source transform receives: its decoded feeds in
// declaration order (expanded feeds last), the outputs of the sources it
// needs, and the run state.
type Inputs struct {
	Feeds []any
	Deps  map[string]any
	State *transform.State
}

// Table returns feed i as a table, empty when it is not one.
func (in Inputs) Table(i int) *feed.Table {
	if i >= len(in.Feeds) {
		return feed.NewTable()
	}
	return feed.AsTable(in.Feeds[i])
}

// List returns feed i as a list.
func (in Inputs) List(i int) []any {
	if i >= len(in.Feeds) {
		return nil
	}
	return feed.AsList(in.Feeds[i])
}

// Source is one output document and how to build it.
type Source struct {
	Key   string
	Feeds []feed.Spec
	// Expand adds feeds computed from the outputs of Needs.
	Expand func(deps map[string]any) ([]feed.Spec, error)
	// Needs lists sources that must finish before this one starts.
	Needs []string
	// Seals marks the source that completes the upgrade value index.
	Seals     bool
	Transform func(in Inputs) (any, error)
}

// RequiresToken reports whether any declared feed is credentialed.
func (s Source) RequiresToken() bool {
	for _, spec := range s.Feeds {
		if spec.Auth {
			return true
		}
	}
	return false
}

// named is implemented by every keyed output document.
type named interface {
	Names() []string
}

func depNames(deps map[string]any, key string) ([]string, error) {
	n, ok := deps[key].(named)
	if !ok {
		return nil, fmt.Errorf("%s output has no names (%T)", key, deps[key])
	}
	return n.Names(), nil
}

func pure(fn func(in Inputs) any) func(Inputs) (any, error) {
	return func(in Inputs) (any, error) { return fn(in), nil }
}

// Sources returns every document the builder produces.
func Sources() []Source {
	return []Source{
		{
			Key:   "items",
			Feeds: []feed.Spec{abilityTokensFeed, itemsFeed, neutralItemsFeed},
			Transform: pure(func(in Inputs) any {
				return transform.Items(in.Table(0), in.Table(1), in.Table(2))
			}),
		},
		{
			Key:   "item_ids",
			Feeds: []feed.Spec{itemsFeed},
			Transform: pure(func(in Inputs) any {
				return transform.ItemIDs(in.Table(0))
			}),
		},
		{
			Key:   "abilities",
			Feeds: []feed.Spec{abilityTokensFeed, abilitiesFeed},
			Seals: true,
			Transform: func(in Inputs) (any, error) {
				return transform.Abilities(in.Table(0), in.Table(1), in.State)
			},
		},
		{
			Key:   "ability_ids",
			Feeds: []feed.Spec{abilitiesFeed},
			Transform: pure(func(in Inputs) any {
				return transform.AbilityIDs(in.Table(0))
			}),
		},
		{
			Key:   "neutral_abilities",
			Feeds: []feed.Spec{unitsFeed},
			Transform: pure(func(in Inputs) any {
				return transform.NeutralAbilities(in.Table(0))
			}),
		},
		{
			Key:   "ancients",
			Feeds: []feed.Spec{unitsFeed},
			Transform: pure(func(in Inputs) any {
				return transform.Ancients(in.Table(0))
			}),
		},
		{
			Key:   "heroes",
			Feeds: []feed.Spec{resourceFeed, heroesFeed, dotaTokensFeed},
			Transform: pure(func(in Inputs) any {
				return transform.Heroes(in.Table(0), in.Table(1), in.Table(2))
			}),
		},
		{
			Key:   "hero_names",
			Feeds: []feed.Spec{resourceFeed, heroesFeed, dotaTokensFeed},
			Transform: pure(func(in Inputs) any {
				return transform.HeroNames(in.Table(0), in.Table(1), in.Table(2))
			}),
		},
		{
			Key:   "hero_lore",
			Feeds: []feed.Spec{heroLoreFeed, heroesFeed},
			Transform: pure(func(in Inputs) any {
				return transform.HeroLore(in.Table(0), in.Table(1))
			}),
		},
		{
			Key:   "hero_abilities",
			Feeds: []feed.Spec{heroesFeed},
			Transform: pure(func(in Inputs) any {
				return transform.BuildHeroAbilities(in.Table(0))
			}),
		},
		{
			Key:   "region",
			Feeds: []feed.Spec{regionsFeed},
			Transform: pure(func(in Inputs) any {
				return transform.Regions(in.Table(0))
			}),
		},
		{
			Key:   "cluster",
			Feeds: []feed.Spec{clusterFeed},
			Transform: pure(func(in Inputs) any {
				return transform.Clusters(in.List(0))
			}),
		},
		{
			Key:   "countries",
			Feeds: []feed.Spec{countriesFeed},
			Transform: pure(func(in Inputs) any {
				return transform.Countries(in.List(0))
			}),
		},
		{
			Key:   "chat_wheel",
			Feeds: []feed.Spec{chatWheelFeed, dotaTokensFeed, heroChatWheelFeed},
			Transform: pure(func(in Inputs) any {
				return transform.ChatWheel(in.Table(0), in.Table(1), in.Table(2))
			}),
		},
		{
			Key:   "patchnotes",
			Feeds: []feed.Spec{patchNotesFeed},
			Needs: []string{"items", "hero_names"},
			Transform: func(in Inputs) (any, error) {
				items, err := depNames(in.Deps, "items")
				if err != nil {
					return nil, err
				}
				heroes, err := depNames(in.Deps, "hero_names")
				if err != nil {
					return nil, err
				}
				return transform.BuildPatchNotes(in.Table(0), items, heroes), nil
			},
		},
		{
			Key:    "aghs_desc",
			Needs:  []string{"abilities", "heroes"},
			Expand: heroDataFeeds,
			Transform: func(in Inputs) (any, error) {
				heroData := make([]*feed.Table, len(in.Feeds))
				for i := range in.Feeds {
					heroData[i] = in.Table(i)
				}
				return transform.AghsDescriptions(heroData, in.State.Upgrades), nil
			},
		},
	}
}

// heroDataFeeds requests one herodata document per hero id.
func heroDataFeeds(deps map[string]any) ([]feed.Spec, error) {
	ids, err := depNames(deps, "heroes")
	if err != nil {
		return nil, err
	}
	specs := make([]feed.Spec, len(ids))
	for i, id := range ids {
		specs[i] = feed.Spec{URL: heroDataURL + id, Path: heroDataPath}
	}
	return specs, nil
}
