package detector

import "testing"

func TestDetect_English(t *testing.T) {
	d := New([]string{"en", "es", "ru"}, 4)
	res := d.Detect("The quick brown fox jumps over the lazy dog and keeps running")
	if res.Lang != "en" {
		t.Errorf("expected en, got %q (confidence %.2f)", res.Lang, res.Confidence)
	}
	if res.Confidence <= 0 {
		t.Errorf("expected positive confidence, got %.2f", res.Confidence)
	}
}

func TestDetect_Russian(t *testing.T) {
	d := New([]string{"en", "ru"}, 4)
	res := d.Detect("Привет, как у тебя сегодня дела? Надеюсь, всё хорошо")
	if res.Lang != "ru" {
		t.Errorf("expected ru, got %q", res.Lang)
	}
}

func TestDetect_ShortText_ZeroConfidence(t *testing.T) {
	d := New([]string{"en", "es"}, 4)
	res := d.Detect("ok")
	if res.Confidence != 0 {
		t.Errorf("expected zero confidence for short text, got %.2f", res.Confidence)
	}
}

func TestDetect_WhitespaceOnly(t *testing.T) {
	d := New([]string{"en"}, 4)
	res := d.Detect("   \t  ")
	if res.Confidence != 0 || res.Lang != "" {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestDetect_OutsideAllowedSet(t *testing.T) {
	// Japanese text with an allowed set that excludes ja: the raw code is
	// reported but confidence drops to zero so the caller falls back.
	d := New([]string{"en", "es"}, 4)
	res := d.Detect("これは日本語のテキストです。翻訳サービスのテストです。")
	if res.Confidence != 0 {
		t.Errorf("expected zero confidence outside allowed set, got %.2f", res.Confidence)
	}
}

func TestAllowed(t *testing.T) {
	d := New([]string{"en", "ES"}, 4)
	if !d.Allowed("es") {
		t.Error("expected es to be allowed")
	}
	if !d.Allowed("EN") {
		t.Error("expected EN to normalize to allowed en")
	}
	if d.Allowed("zh") {
		t.Error("expected zh to be disallowed")
	}
}

func TestAllowed_EmptySetAllowsAll(t *testing.T) {
	d := New(nil, 4)
	if !d.Allowed("zh") {
		t.Error("empty allowed set should allow everything")
	}
}
