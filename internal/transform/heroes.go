package transform

import (
	"log"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"dotaconstants/internal/attrib"
	"dotaconstants/internal/feed"
)

const (
	heroPrefix        = "npc_dota_hero_"
	heroBase          = "npc_dota_hero_base"
	heroImageBase     = "/apps/dota2/images/dota_react/heroes/"
	defaultTalentSlot = 10
)

var (
	abilitySlot = regexp.MustCompile(`Ability([0-9]+)`)
	loreTabs    = regexp.MustCompile(`\t+`)
	loreLines   = regexp.MustCompile(`\n+`)
	loreBreaks  = regexp.MustCompile(`<br>+`)
	loreSpaces  = regexp.MustCompile(`\s+`)
)

// Hero is one entry of heroes.json and hero_names.json.
type Hero struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	LocalizedName   string   `json:"localized_name,omitempty"`
	PrimaryAttr     string   `json:"primary_attr"`
	AttackType      string   `json:"attack_type"`
	Roles           []string `json:"roles"`
	Img             string   `json:"img"`
	Icon            string   `json:"icon"`
	URL             string   `json:"url,omitempty"`
	BaseHealth      Num      `json:"base_health"`
	BaseHealthRegen Num      `json:"base_health_regen"`
	BaseMana        Num      `json:"base_mana"`
	BaseManaRegen   Num      `json:"base_mana_regen"`
	BaseArmor       Num      `json:"base_armor"`
	BaseMR          Num      `json:"base_mr"`
	BaseAttackMin   Num      `json:"base_attack_min"`
	BaseAttackMax   Num      `json:"base_attack_max"`
	BaseStr         Num      `json:"base_str"`
	BaseAgi         Num      `json:"base_agi"`
	BaseInt         Num      `json:"base_int"`
	StrGain         Num      `json:"str_gain"`
	AgiGain         Num      `json:"agi_gain"`
	IntGain         Num      `json:"int_gain"`
	AttackRange     Num      `json:"attack_range"`
	ProjectileSpeed Num      `json:"projectile_speed"`
	AttackRate      Num      `json:"attack_rate"`
	BaseAttackTime  Num      `json:"base_attack_time"`
	AttackPoint     Num      `json:"attack_point"`
	MoveSpeed       Num      `json:"move_speed"`
	TurnRate        Num      `json:"turn_rate"`
	CMEnabled       bool     `json:"cm_enabled"`
	Legs            Num      `json:"legs"`
	DayVision       Num      `json:"day_vision"`
	NightVision     Num      `json:"night_vision"`
}

// heroStats reads hero script values, falling back to npc_dota_hero_base
// for stats the hero leaves blank.
type heroStats struct {
	hero, base *feed.Table
}

func (s heroStats) own(key string) Num {
	v, ok := s.hero.StrOK(key)
	if !ok {
		return Num(math.NaN())
	}
	return Num(attrib.Number(v))
}

func (s heroStats) inherited(key string) Num {
	v, ok := s.hero.StrOK(key)
	if !ok || v == "" {
		v, ok = s.base.StrOK(key)
	}
	if !ok {
		return Num(math.NaN())
	}
	return Num(attrib.Number(v))
}

// heroNames lists the real heroes of a DOTAHeroes table.
func heroNames(heroes *feed.Table) []string {
	var names []string
	for _, name := range entityKeys(heroes) {
		if !badNames[name] {
			names = append(names, name)
		}
	}
	return names
}

func buildHero(name string, heroes *feed.Table, localized string) *Hero {
	def := heroes.Sub(name)
	s := heroStats{hero: def, base: heroes.Sub(heroBase)}
	short := strings.TrimPrefix(name, heroPrefix)

	h := &Hero{
		Name:          name,
		LocalizedName: localized,
		AttackType:    "Ranged",
		Roles:         []string{},
		Img:           heroImageBase + short + ".png?",
		Icon:          heroImageBase + "icons/" + short + ".png?",
		URL:           def.Str("url"),
	}
	if id, ok := attrib.ParseLeadingInt(def.Str("HeroID")); ok {
		h.ID = id
	} else {
		log.Printf("[Heroes] %s: no HeroID", name)
	}

	attr := strings.Replace(def.Str("AttributePrimary"), "DOTA_ATTRIBUTE_", "", 1)
	if len(attr) > 3 {
		attr = attr[:3]
	}
	h.PrimaryAttr = strings.ToLower(attr)
	if def.Str("AttackCapabilities") == "DOTA_UNIT_CAP_MELEE_ATTACK" {
		h.AttackType = "Melee"
	}
	if role, ok := def.StrOK("Role"); ok {
		h.Roles = strings.Split(role, ",")
	}

	h.BaseHealth = s.inherited("StatusHealth")
	h.BaseHealthRegen = s.inherited("StatusHealthRegen")
	h.BaseMana = s.inherited("StatusMana")
	h.BaseManaRegen = s.inherited("StatusManaRegen")
	h.BaseArmor = s.inherited("ArmorPhysical")
	h.BaseMR = s.inherited("MagicalResistance")
	h.BaseAttackMin = s.inherited("AttackDamageMin")
	h.BaseAttackMax = s.inherited("AttackDamageMax")
	h.BaseStr = s.own("AttributeBaseStrength")
	h.BaseAgi = s.own("AttributeBaseAgility")
	h.BaseInt = s.own("AttributeBaseIntelligence")
	h.StrGain = s.own("AttributeStrengthGain")
	h.AgiGain = s.own("AttributeAgilityGain")
	h.IntGain = s.own("AttributeIntelligenceGain")
	h.AttackRange = s.own("AttackRange")
	h.ProjectileSpeed = s.inherited("ProjectileSpeed")
	h.AttackRate = s.inherited("AttackRate")
	h.BaseAttackTime = s.inherited("BaseAttackSpeed")
	h.AttackPoint = s.inherited("AttackAnimationPoint")
	h.MoveSpeed = s.own("MovementSpeed")
	h.TurnRate = s.own("MovementTurnRate")
	h.CMEnabled = def.Str("CMEnabled") == "1"
	h.Legs = s.inherited("Legs")
	h.DayVision = s.inherited("VisionDaytimeRange")
	h.NightVision = s.inherited("VisionNighttimeRange")
	return h
}

// sortedHeroes builds every hero and orders them by id. The display name
// comes from "<name>:n" in the localization tokens, then the script's
// workshop_guide_name, then the resource tokens.
func sortedHeroes(resource, heroes, tokens *feed.Table) []*Hero {
	var out []*Hero
	for _, name := range heroNames(heroes) {
		localized := tokens.Str(name + ":n")
		if localized == "" {
			localized = heroes.Sub(name).Str("workshop_guide_name")
		}
		if localized == "" {
			localized = resource.Str(name)
		}
		out = append(out, buildHero(name, heroes, localized))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Heroes builds heroes.json, keyed by hero id.
func Heroes(resource, heroes, tokens *feed.Table) *Collection[*Hero] {
	out := NewCollection[*Hero]()
	for _, h := range sortedHeroes(resource, heroes, tokens) {
		out.Put(strconv.Itoa(h.ID), h)
	}
	return idOrder(out)
}

// HeroNames builds hero_names.json, the same records keyed by script name.
func HeroNames(resource, heroes, tokens *feed.Table) *Collection[*Hero] {
	out := NewCollection[*Hero]()
	for _, h := range sortedHeroes(resource, heroes, tokens) {
		out.Put(h.Name, h)
	}
	return out
}

// HeroLore builds hero_lore.json: each hero's biography flattened to one
// line, keyed by short name in id order.
func HeroLore(lore, heroes *feed.Table) *Collection[string] {
	type entry struct {
		name string
		id   float64
	}
	var ordered []entry
	for _, name := range heroNames(heroes) {
		ordered = append(ordered, entry{name, attrib.Number(heroes.Sub(name).Str("HeroID"))})
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	tokens := lore.Sub("tokens")
	out := NewCollection[string]()
	for _, e := range ordered {
		bio, ok := tokens.StrOK(e.name + "_bio")
		if !ok {
			log.Printf("[HeroLore] %s: no biography", e.name)
			continue
		}
		bio = loreTabs.ReplaceAllString(bio, " ")
		bio = loreLines.ReplaceAllString(bio, " ")
		bio = loreBreaks.ReplaceAllString(bio, " ")
		bio = loreSpaces.ReplaceAllString(bio, " ")
		bio = strings.ReplaceAll(bio, `\`, "")
		bio = strings.ReplaceAll(bio, `"`, "'")
		out.Put(strings.TrimPrefix(e.name, heroPrefix), strings.TrimSpace(bio))
	}
	return out
}

// HeroTalent is a talent slot of a hero.
type HeroTalent struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// HeroAbilities lists a hero's ability slots and talents.
type HeroAbilities struct {
	Abilities []string     `json:"abilities"`
	Talents   []HeroTalent `json:"talents"`
}

// BuildHeroAbilities builds hero_abilities.json. Slots numbered below the
// hero's AbilityTalentStart (10 by default) are abilities, the rest are
// talents paired two per level tier.
func BuildHeroAbilities(heroes *feed.Table) *Collection[*HeroAbilities] {
	out := NewCollection[*HeroAbilities]()
	for _, name := range entityKeys(heroes) {
		if name == "Version" || name == heroBase || name == "npc_dota_hero_target_dummy" {
			continue
		}
		def := heroes.Sub(name)
		talentStart := float64(defaultTalentSlot)
		if v, ok := def.StrOK("AbilityTalentStart"); ok {
			talentStart = attrib.Number(v)
		}

		h := &HeroAbilities{Abilities: []string{}, Talents: []HeroTalent{}}
		counter := 2
		def.Each(func(key string, raw any) {
			m := abilitySlot.FindStringSubmatch(key)
			value, ok := feed.Text(raw)
			if m == nil || !ok || value == "" {
				return
			}
			slot, _ := strconv.Atoi(m[1])
			if float64(slot) < talentStart {
				h.Abilities = append(h.Abilities, value)
				return
			}
			h.Talents = append(h.Talents, HeroTalent{Name: value, Level: counter / 2})
			counter++
		})
		out.Put(name, h)
	}
	return out
}
