// Package tooltip fills localized description templates with attribute
// values.
//
// Two placeholder dialects exist in the game's strings: %token% in
// descriptions and notes, and {s:token} in ability and talent names.
package tooltip

import (
	"log"
	"regexp"
	"strings"

	"dotaconstants/internal/attrib"
)

// LineMarker is the escaped newline kept verbatim in localization text.
const LineMarker = `\n`

var (
	percentToken = regexp.MustCompile(`%([^% ]*)%`)
	tomesLabel   = regexp.MustCompile(`[ a-zA-Z]+: %\w+%`)
	lineBreak    = regexp.MustCompile(`(?i)<br>`)
	closeTag     = regexp.MustCompile(`</[^>]+>`)
	openTag      = regexp.MustCompile(`<[^>]+>`)
	spaces       = regexp.MustCompile(` {2,}`)
)

// tokens renamed upstream that still appear in old strings
var tokenAliases = map[string]string{
	"lifesteal":     "lifesteal_percent",
	"movement_slow": "damage_pct",
}

// Substitute resolves %token% placeholders against attrs. A nil attrs
// leaves the template untouched. Unresolvable tokens stay in place and
// are logged with the entity name.
//
// Lookup is case-insensitive. A token starting with "d" that does not
// match is retried without the "d", and the aliases above are tried last.
func Substitute(template string, attrs []attrib.Attribute, entity string) string {
	if template == "" || attrs == nil {
		return template
	}
	if strings.Contains(template, "%customval_team_tomes_used%") {
		template = tomesLabel.ReplaceAllString(template, "")
	}

	return percentToken.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		if name == "" {
			return "%"
		}
		value, ok := resolve(attrs, strings.ToLower(name))
		if !ok {
			log.Printf("[Tooltip] %s: cannot resolve %s", entity, token)
			return token
		}
		return attrib.NormalizeNumeric(value)
	})
}

func resolve(attrs []attrib.Attribute, name string) (string, bool) {
	a, ok := attrib.Find(attrs, name)
	if !ok && strings.HasPrefix(name, "d") {
		name = name[1:]
		a, ok = attrib.Find(attrs, name)
	}
	if !ok {
		if alias, has := tokenAliases[name]; has {
			a, ok = attrib.Find(attrs, alias)
		}
	}
	if !ok || !a.Value.Set {
		return "", false
	}
	return a.Value.Text, true
}

// Clean applies the markup normalization every rendered string gets:
// <br> becomes a newline, %% becomes %, closing tags become a space,
// opening tags are dropped and runs of spaces collapse. The \n marker is
// left for Text or Lines to handle.
func Clean(s string) string {
	s = lineBreak.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "%%", "%")
	s = closeTag.ReplaceAllString(s, " ")
	s = openTag.ReplaceAllString(s, "")
	return spaces.ReplaceAllString(s, " ")
}

// Text cleans s and turns \n markers into newlines.
func Text(s string) string {
	return strings.ReplaceAll(Clean(s), LineMarker, "\n")
}

// Lines cleans s and splits it on \n markers into trimmed, non-empty lines.
func Lines(s string) []string {
	var out []string
	for _, line := range strings.Split(Clean(s), LineMarker) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Describe renders a description template for an ability.
func Describe(template string, attrs []attrib.Attribute, entity string) string {
	if template == "" {
		return ""
	}
	return Text(Substitute(template, attrs, entity))
}

// Hints renders an item description template as hint lines.
func Hints(template string, attrs []attrib.Attribute, entity string) []string {
	if template == "" {
		return nil
	}
	return Lines(Substitute(template, attrs, entity))
}
