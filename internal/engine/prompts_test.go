package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildSystemPrompt_NoLens(t *testing.T) {
	got, err := BuildSystemPrompt(PresetHook, LensNone)
	if err != nil {
		t.Fatalf("BuildSystemPrompt: %v", err)
	}
	if got != presetSystems[PresetHook] {
		t.Errorf("LensNone should return the bare preset text")
	}
}

func TestBuildSystemPrompt_AppendsLens(t *testing.T) {
	got, err := BuildSystemPrompt(PresetChorus, LensCountry)
	if err != nil {
		t.Fatalf("BuildSystemPrompt: %v", err)
	}
	want := presetSystems[PresetChorus] + "\n\n" + lensSnippets[LensCountry]
	if got != want {
		t.Errorf("lens should be appended after a blank line")
	}
	if !strings.Contains(got, "diners, trucks, cheap beer") {
		t.Errorf("country lens text missing from prompt")
	}
}

func TestBuildSystemPrompt_Deterministic(t *testing.T) {
	a, err := BuildSystemPrompt(PresetFull, LensPunk)
	if err != nil {
		t.Fatalf("BuildSystemPrompt: %v", err)
	}
	b, _ := BuildSystemPrompt(PresetFull, LensPunk)
	if a != b {
		t.Errorf("same inputs should produce identical prompts")
	}
}

func TestBuildSystemPrompt_UnknownPreset(t *testing.T) {
	_, err := BuildSystemPrompt("BALLAD", LensNone)
	if !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("err = %v, want ErrUnknownPreset", err)
	}
}

func TestBuildSystemPrompt_UnknownLens(t *testing.T) {
	_, err := BuildSystemPrompt(PresetHook, "DISCO")
	if !errors.Is(err, ErrUnknownLens) {
		t.Errorf("err = %v, want ErrUnknownLens", err)
	}
}

func TestEnforceCap_Disabled(t *testing.T) {
	long := strings.Repeat("word ", 500)
	if got := EnforceCap(long, PresetHook, false); got != long {
		t.Errorf("disabled cap should return input unchanged")
	}
}

func TestEnforceCap_WordLimit(t *testing.T) {
	text := strings.Repeat("la ", 100) // 100 words
	got := EnforceCap(text, PresetHook, true)
	if n := len(strings.Fields(got)); n != 35 {
		t.Errorf("word count = %d, want 35", n)
	}
	if strings.HasSuffix(got, " ") || strings.Contains(got, "…") {
		t.Errorf("truncation should join words with single spaces, no ellipsis: %q", got)
	}
}

func TestEnforceCap_CharLimit(t *testing.T) {
	// Few words, many runes: TITLE allows 8 words but only 64 chars.
	text := strings.Repeat("ай", 50) // one long 100-rune word
	got := EnforceCap(text, PresetTitle, true)
	if n := len([]rune(got)); n != 64 {
		t.Errorf("rune count = %d, want 64", n)
	}
}

func TestEnforceCap_UnderBudgetUnchanged(t *testing.T) {
	text := "[Hook] two short lines [Chant] go go"
	if got := EnforceCap(text, PresetHook, true); got != text {
		t.Errorf("under-budget text should pass through: %q", got)
	}
}

func TestEnforceCap_Idempotent(t *testing.T) {
	inputs := []string{
		strings.Repeat("word ", 300),
		strings.Repeat(strings.Repeat("x", 40)+" ", 20), // long words hit char cap after word cap
		"short",
		"",
	}
	for _, preset := range []string{PresetFull, PresetTruncated, PresetChorus, PresetHook, PresetTitle, "NOPE"} {
		for _, in := range inputs {
			once := EnforceCap(in, preset, true)
			twice := EnforceCap(once, preset, true)
			if once != twice {
				t.Errorf("preset %s: EnforceCap not idempotent for %q", preset, in[:min(20, len(in))])
			}
			if len(once) > len(in) {
				t.Errorf("preset %s: cap grew the input", preset)
			}
		}
	}
}

func TestEnforceCap_UnknownPresetFallsBack(t *testing.T) {
	text := strings.Repeat("word ", 300)
	got := EnforceCap(text, "NOPE", true)
	if n := len(strings.Fields(got)); n != 220 {
		t.Errorf("unknown preset should use the FULL budget, got %d words", n)
	}
}
