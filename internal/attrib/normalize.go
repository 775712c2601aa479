package attrib

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Formatted is one display row of an ability or item.
type Formatted struct {
	Key       string `json:"key"`
	Header    string `json:"header"`
	Value     Values `json:"value"`
	Footer    string `json:"footer,omitempty"`
	Generated bool   `json:"generated,omitempty"`
}

var (
	headerPattern = regexp.MustCompile(`(%)?(\+\$)?(.*)`)
	htmlTag       = regexp.MustCompile(`<[^>]*>`)
)

// values already shown as the mana cost and cooldown fields
var excluded = map[string]bool{
	"abilitymanacost": true,
	"abilitycooldown": true,
}

// labels for base stats that have no localized header
var generatedHeaders = map[string]string{
	"abilitycastrange":         "CAST RANGE",
	"abilitycastpoint":         "CAST TIME",
	"abilitycharges":           "MAX CHARGES",
	"max_charges":              "MAX CHARGES",
	"abilitychargerestoretime": "CHARGE RESTORE TIME",
	"charge_restore_time":      "CHARGE RESTORE TIME",
	"abilityduration":          "DURATION",
	"abilitychanneltime":       "CHANNEL TIME",
}

// Format turns an attribute list into display rows. Headers come from
// loc[prefix+key]; a header starting with % formats values as
// percentages and one starting with +$ becomes a "+" row whose footer is
// the dota_ability_variable_* string it names. Attributes without a header
// get a generated label. Null or missing values are dropped.
func Format(attrs []Attribute, loc map[string]string, prefix string) []Formatted {
	out := make([]Formatted, 0, len(attrs))
	for _, a := range attrs {
		key := a.LowerKey()
		if excluded[key] {
			continue
		}
		if !a.Value.Set {
			continue
		}
		levels := splitLevels(a.Value.Text)

		header, found := loc[prefix+key]
		if !found {
			out = append(out, Formatted{
				Key:       key,
				Header:    GeneratedHeader(key) + ":",
				Value:     FormatValues(levels, false, ""),
				Generated: true,
			})
			continue
		}

		m := headerPattern.FindStringSubmatch(header)
		percent := m[1] != ""
		row := Formatted{Key: key, Value: FormatValues(levels, percent, "")}
		if m[2] != "" {
			row.Header = "+"
			row.Footer = footer(loc, m[3])
		} else {
			row.Header = StripTags(m[3])
		}
		out = append(out, row)
	}
	return out
}

func footer(loc map[string]string, variable string) string {
	text := loc["dota_ability_variable_"+variable]
	if strings.Contains(variable, "attack_range") {
		text = StripTags(text)
	}
	return text
}

// GeneratedHeader labels an attribute that has no localized header. The
// fallback is upper-cased like the fixed labels above.
func GeneratedHeader(key string) string {
	if label, ok := generatedHeaders[key]; ok {
		return label
	}
	return cases.Upper(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// StripTags removes HTML-like tags.
func StripTags(s string) string {
	return htmlTag.ReplaceAllString(s, "")
}

func splitLevels(s string) []string {
	return strings.Split(s, " ")
}
