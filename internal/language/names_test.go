package language

import "testing"

func TestName(t *testing.T) {
	if got := Name("ru"); got != "Russian" {
		t.Errorf("expected Russian, got %q", got)
	}
	if got := Name("en-US"); got != "English" {
		t.Errorf("expected English for en-US, got %q", got)
	}
	if got := Name("xx"); got != "XX" {
		t.Errorf("expected XX fallback, got %q", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"en":    "en",
		"EN":    "en",
		"pt-BR": "pt",
		"zh_CN": "zh",
		" de ":  "de",
		"":      "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
