package export

import (
	"testing"
	"time"

	"github.com/hookmill/hookmill/internal/model"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Raccoon Steals Pizza!", "raccoon-steals-pizza"},
		{"  --weird__ INPUT 42 ", "weird-input-42"},
		{"", "untitled"},
		{"!!!", "untitled"},
		{"[Hook] my wifi went out", "hook-my-wifi-went-out"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlug_Truncates(t *testing.T) {
	long := "the quick brown fox jumps over the lazy dog again and again"
	got := Slug(long)
	if len([]rune(got)) != 40 {
		t.Errorf("len = %d, want 40", len([]rune(got)))
	}
}

func TestFilename(t *testing.T) {
	when := time.Date(2026, 9, 1, 14, 5, 0, 0, time.UTC)
	got := Filename(when, "HOOK", "PUNK", "[Hook] Screaming At My Router")
	want := "2026-09-01_1405_HOOK_PUNK_hook-screaming-at-my-router.txt"
	if got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}
}

func TestStarredFilename(t *testing.T) {
	when := time.Date(2026, 9, 1, 14, 5, 30, 0, time.UTC)
	if got := StarredFilename(when); got != "starred_2026-09-01-14-05.txt" {
		t.Errorf("StarredFilename = %q", got)
	}
}

func TestBundle(t *testing.T) {
	artifacts := []model.Artifact{
		{Output: "first song"},
		{Output: "second song"},
	}
	want := "first song\n\n---\n\nsecond song"
	if got := Bundle(artifacts); got != want {
		t.Errorf("Bundle = %q, want %q", got, want)
	}
	if got := Bundle(nil); got != "" {
		t.Errorf("empty bundle = %q, want empty", got)
	}
}

func TestTitle(t *testing.T) {
	if got := Title("\n\n[Hook] the actual title\nsecond line"); got != "[Hook] the actual title" {
		t.Errorf("Title = %q", got)
	}
	if got := Title("   \n  "); got != "" {
		t.Errorf("Title of blank text = %q, want empty", got)
	}
}

const fullLyric = `[Style: Country | Key: G | Tempo: 120 | Time: 4/4]
[Verse 1] dusty road and a flat white tire
[Chorus] sing it loud
sing it proud
[Verse 2] second verse same as the first
[Chorus] sing it loud again`

func TestChorus(t *testing.T) {
	want := "[Chorus] sing it loud\nsing it proud"
	if got := Chorus(fullLyric); got != want {
		t.Errorf("Chorus = %q, want %q", got, want)
	}
}

func TestChorus_AtEndOfText(t *testing.T) {
	text := "[Verse] only verse\n[Chorus] final chant\nstill the chorus\n"
	want := "[Chorus] final chant\nstill the chorus"
	if got := Chorus(text); got != want {
		t.Errorf("Chorus = %q, want %q", got, want)
	}
}

func TestChorus_Missing(t *testing.T) {
	if got := Chorus("[Verse] no chorus here"); got != "" {
		t.Errorf("Chorus = %q, want empty", got)
	}
}

func TestHook(t *testing.T) {
	text := "[Hook] line one\nline two\n[Chant] go go go\n"
	want := "[Hook] line one\nline two\n[Chant] go go go"
	if got := Hook(text); got != want {
		t.Errorf("Hook = %q, want %q", got, want)
	}
}

func TestHook_ChantOnly(t *testing.T) {
	if got := Hook("[Chant] just the chant"); got != "[Chant] just the chant" {
		t.Errorf("Hook = %q", got)
	}
}

func TestHook_Missing(t *testing.T) {
	if got := Hook("[Verse] nothing hooky"); got != "" {
		t.Errorf("Hook = %q, want empty", got)
	}
}
