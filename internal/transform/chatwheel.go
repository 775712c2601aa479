package transform

import (
	"log"
	"strconv"
	"strings"

	"dotaconstants/internal/attrib"
	"dotaconstants/internal/feed"
)

// hero response ids are hero id * 1000 + n; heroes from Grimstroke (121)
// on ship aac clips
const aacHeroID = 121

// ChatWheelMessage is one entry of chat_wheel.json.
type ChatWheelMessage struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	AllChat   bool   `json:"all_chat,omitempty"`
	Label     string `json:"label,omitempty"`
	Message   string `json:"message,omitempty"`
	Image     string `json:"image,omitempty"`
	BadgeTier string `json:"badge_tier,omitempty"`
	SoundExt  string `json:"sound_ext,omitempty"`
}

type chatWheelStrings struct {
	tokens map[string]string
	heroes *feed.Table
}

// localize resolves a "#key" reference; other text is returned as is and
// an unknown key resolves to itself.
func (s chatWheelStrings) localize(ref string) string {
	if !strings.HasPrefix(ref, "#") {
		return ref
	}
	key := ref[1:]
	if v := s.tokens[key]; v != "" {
		return v
	}
	if v := s.heroes.Sub("tokens").Str(key); v != "" {
		return v
	}
	if v := s.heroes.Str(key); v != "" {
		return v
	}
	return key
}

// ChatWheel builds chat_wheel.json from the chat wheel script, the main
// localization tokens and the hero chat wheel strings.
func ChatWheel(wheel, tokens, heroLines *feed.Table) *Collection[*ChatWheelMessage] {
	s := chatWheelStrings{tokens: tokens.Strings(), heroes: heroLines}
	out := NewCollection[*ChatWheelMessage]()

	add := func(key string, m *feed.Table) {
		id, ok := attrib.ParseLeadingInt(m.Str("message_id"))
		if !ok {
			log.Printf("[ChatWheel] %s: no message_id", key)
			return
		}
		msg := &ChatWheelMessage{
			ID:        id,
			Name:      key,
			AllChat:   m.Str("all_chat") == "1",
			Label:     s.localize(m.Str("label")),
			Message:   s.localize(m.Str("message")),
			Image:     m.Str("image"),
			BadgeTier: m.Str("unlock_hero_badge_tier"),
			SoundExt:  soundExt(key, m.Str("sound"), id),
		}
		out.Put(strconv.Itoa(id), msg)
	}

	wheel.Sub("messages").Each(func(key string, v any) {
		if m, ok := v.(*feed.Table); ok {
			add(key, m)
		}
	})
	wheel.Sub("hero_messages").Each(func(_ string, v any) {
		hero, _ := v.(*feed.Table)
		hero.Each(func(key string, v any) {
			if m, ok := v.(*feed.Table); ok {
				add(key, m)
			}
		})
	})
	return idOrder(out)
}

// soundExt picks the clip format: soundboard and Io lines are wav, hero
// responses from aacHeroID on are aac, the rest mp3.
func soundExt(key, sound string, id int) string {
	switch {
	case sound == "":
		return ""
	case strings.HasPrefix(sound, "soundboard.") || strings.HasPrefix(key, "wisp_"):
		return "wav"
	case float64(id)/1000 >= aacHeroID:
		return "aac"
	default:
		return "mp3"
	}
}
