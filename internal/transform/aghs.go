package transform

import (
	"log"
	"regexp"
	"strings"

	"dotaconstants/internal/attrib"
	"dotaconstants/internal/feed"
)

var (
	aghsToken     = regexp.MustCompile(`%([^% ]*)%`)
	aghsLineBreak = regexp.MustCompile(`(?i)<br>`)
)

// AghsDesc describes what a hero's Aghanim's Scepter and Shard do.
type AghsDesc struct {
	HeroName string `json:"hero_name"`
	HeroID   int    `json:"hero_id"`

	HasScepter       bool   `json:"has_scepter"`
	ScepterDesc      string `json:"scepter_desc"`
	ScepterSkillName string `json:"scepter_skill_name"`
	ScepterNewSkill  bool   `json:"scepter_new_skill"`

	HasShard       bool   `json:"has_shard"`
	ShardDesc      string `json:"shard_desc"`
	ShardSkillName string `json:"shard_skill_name"`
	ShardNewSkill  bool   `json:"shard_new_skill"`
}

// upgrade is the scepter or shard half of an AghsDesc.
type upgrade struct {
	has       *bool
	desc      *string
	skillName *string
	newSkill  *bool
	ability   string
}

// capture fills u from one ability of the hero data feed. A granted
// ability takes precedence over one that is merely upgraded.
func (u *upgrade) capture(ability *feed.Table, kind string) {
	// Truthy reads "0" as unset, unlike a plain non-empty check.
	switch {
	case feed.Truthy(rawValue(ability, "ability_is_granted_by_"+kind)):
		*u.desc = ability.Str("desc_loc")
		*u.newSkill = true
	case feed.Truthy(rawValue(ability, "ability_has_"+kind)) && ability.Str(kind+"_loc") != "":
		*u.desc = ability.Str(kind + "_loc")
		*u.newSkill = false
	default:
		return
	}
	*u.skillName = ability.Str("name_loc")
	*u.has = true
	u.ability = ability.Str("name")
}

// AghsDescriptions builds aghs_desc.json from one hero data document per
// hero. Description tokens resolve against the upgrade values recorded by
// Abilities; a hero without a scepter or shard entry is logged and kept
// with the flag false.
func AghsDescriptions(heroData []*feed.Table, upgrades *UpgradeIndex) []AghsDesc {
	out := make([]AghsDesc, 0, len(heroData))
	for _, hero := range heroData {
		if hero.Len() == 0 {
			continue
		}
		d := AghsDesc{HeroName: hero.Str("name")}
		d.HeroID, _ = attrib.ParseLeadingInt(hero.Str("id"))

		scepter := upgrade{has: &d.HasScepter, desc: &d.ScepterDesc, skillName: &d.ScepterSkillName, newSkill: &d.ScepterNewSkill}
		shard := upgrade{has: &d.HasShard, desc: &d.ShardDesc, skillName: &d.ShardSkillName, newSkill: &d.ShardNewSkill}

		for _, raw := range feed.AsList(rawValue(hero, "abilities")) {
			ability, ok := raw.(*feed.Table)
			if !ok || ability.Str("name_loc") == "" || ability.Str("desc_loc") == "" {
				continue
			}
			scepter.capture(ability, "scepter")
			shard.capture(ability, "shard")
		}

		d.ScepterDesc = resolveAghs(d.ScepterDesc, scepter.ability, upgrades)
		d.ShardDesc = resolveAghs(d.ShardDesc, shard.ability, upgrades)

		if !d.HasScepter {
			log.Printf("[AghsDesc] %s[%d]: Didn't find a scepter...", d.HeroName, d.HeroID)
		}
		if !d.HasShard {
			log.Printf("[AghsDesc] %s[%d]: Didn't find a shard...", d.HeroName, d.HeroID)
		}
		out = append(out, d)
	}
	return out
}

// resolveAghs fills %token% placeholders from the ability's upgrade values
// and normalizes line breaks. Unknown tokens are left in place.
func resolveAghs(desc, ability string, upgrades *UpgradeIndex) string {
	if ability != "" {
		values, _ := upgrades.Values(ability)
		desc = aghsToken.ReplaceAllStringFunc(desc, func(token string) string {
			name := token[1 : len(token)-1]
			if name == "" {
				return "%"
			}
			if v, ok := values[strings.ToLower(name)]; ok {
				return v
			}
			return token
		})
	}
	desc = aghsLineBreak.ReplaceAllString(desc, "\n")
	return strings.Replace(desc, "%%", "%", 1)
}
