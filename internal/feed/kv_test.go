package feed

import (
	"reflect"
	"testing"
)

func TestParseKeyValue(t *testing.T) {
	src := `// generated
"DOTAUnits"
{
	"Version"		"1"
	"npc_dota_neutral_kobold"
	{
		"BaseClass"	"npc_dota_creep_neutral"	[$WIN32]
		"Ability1"	""
		"BountyXP"	"25" // comment after value
		bare_key	bare_value
	}
	"quoted"	"say \"hi\"\nline"
}`

	root, err := ParseKeyValue([]byte(src))
	if err != nil {
		t.Fatalf("ParseKeyValue() error = %v", err)
	}
	units := root.Sub("DOTAUnits")
	if units == nil {
		t.Fatalf("missing root block, keys = %v", root.Keys())
	}
	if !reflect.DeepEqual(units.Keys(), []string{"Version", "npc_dota_neutral_kobold", "quoted"}) {
		t.Errorf("Keys() = %v", units.Keys())
	}

	kobold := units.Sub("npc_dota_neutral_kobold")
	tests := map[string]string{
		"BaseClass": "npc_dota_creep_neutral",
		"Ability1":  "",
		"BountyXP":  "25",
		"bare_key":  "bare_value",
	}
	for key, want := range tests {
		got, ok := kobold.StrOK(key)
		if !ok || got != want {
			t.Errorf("kobold[%q] = (%q, %v), want %q", key, got, ok, want)
		}
	}

	// escaped quotes are unescaped, the \n marker is kept literally
	if got := units.Str("quoted"); got != `say "hi"\nline` {
		t.Errorf("quoted = %q", got)
	}
}

func TestParseKeyValue_EscapedBackslashBeforeQuote(t *testing.T) {
	root, err := ParseKeyValue([]byte(`"r" { "path" "C:\\" "next" "1" }`))
	if err != nil {
		t.Fatalf("ParseKeyValue() error = %v", err)
	}
	r := root.Sub("r")
	if got := r.Str("path"); got != `C:\\` {
		t.Errorf("path = %q, want %q", got, `C:\\`)
	}
	if r.Str("next") != "1" {
		t.Errorf("next = %q, keys = %v", r.Str("next"), r.Keys())
	}
}

func TestParseKeyValue_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	root, err := ParseKeyValue([]byte(`"r" { "a" "1" "b" "2" "a" "3" }`))
	if err != nil {
		t.Fatalf("ParseKeyValue() error = %v", err)
	}
	r := root.Sub("r")
	if !reflect.DeepEqual(r.Keys(), []string{"a", "b"}) || r.Str("a") != "3" {
		t.Errorf("got keys %v a=%q, want [a b] a=3", r.Keys(), r.Str("a"))
	}
}

func TestParseKeyValue_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"unbalanced close", `"a" "b" }`},
		{"unclosed block", `"a" { "b" "c"`},
		{"unterminated string", `"a" "b`},
		{"dangling key", `"a" { "b" }`},
		{"block without key", `{ "a" "b" }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseKeyValue([]byte(tt.src)); err == nil {
				t.Errorf("ParseKeyValue(%q) error = nil, want error", tt.src)
			}
		})
	}
}
