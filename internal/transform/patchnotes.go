package transform

import (
	"log"
	"strings"

	"dotaconstants/internal/feed"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const miscBucket = "misc"

// PatchNotes are the notes of one patch version.
type PatchNotes struct {
	General []string                                 `json:"general"`
	Items   *orderedmap.OrderedMap[string, []string] `json:"items"`
	Heroes  *orderedmap.OrderedMap[string, []string] `json:"heroes"`
}

func newPatchNotes() *PatchNotes {
	return &PatchNotes{
		General: []string{},
		Items:   orderedmap.New[string, []string](),
		Heroes:  orderedmap.New[string, []string](),
	}
}

func appendNote(bucket *orderedmap.OrderedMap[string, []string], name, note string) {
	notes, _ := bucket.Get(name)
	bucket.Set(name, append(notes, note))
}

// BuildPatchNotes groups patch note strings by version. Keys look like
// dota_patch_7_33_<subject>_<n>: the first two tokens after the prefix
// are the version, the subject is general, item_<name> or a hero name.
// Items and heroes are matched by the longest known name the key starts
// with; unmatched notes go to the misc bucket of their category.
func BuildPatchNotes(notes *feed.Table, items, heroes []string) *Collection[*PatchNotes] {
	itemNames := nameSet(items, "")
	heroNames := nameSet(heroes, heroPrefix)
	out := NewCollection[*PatchNotes]()

	notes.Each(func(key string, v any) {
		note, ok := feed.Text(v)
		if !ok {
			return
		}
		parts := strings.Split(strings.Replace(key, "dota_patch_", "", 1), "_")
		if len(parts) < 3 {
			log.Printf("[PatchNotes] %s: no subject", key)
			return
		}
		version, subject := strings.Join(parts[:2], "_"), parts[2:]

		patch, ok := out.Get(version)
		if !ok {
			patch = newPatchNotes()
			out.Put(version, patch)
		}

		switch {
		case strings.EqualFold(subject[0], "general"):
			patch.General = append(patch.General, note)
		case subject[0] == "item":
			name := longestPrefix(subject[1:], itemNames)
			if name == "" {
				name = miscBucket
			}
			appendNote(patch.Items, name, note)
		default:
			name := longestPrefix(subject, heroNames)
			if name == "" {
				name = miscBucket
			}
			appendNote(patch.Heroes, name, note)
		}
	})
	return out
}

func nameSet(names []string, trim string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.TrimPrefix(n, trim)] = true
	}
	return set
}

// longestPrefix returns the longest underscore-joined prefix of parts
// that is a known name, or "".
func longestPrefix(parts []string, known map[string]bool) string {
	for i := len(parts); i > 0; i-- {
		if name := strings.Join(parts[:i], "_"); known[name] {
			return name
		}
	}
	return ""
}
