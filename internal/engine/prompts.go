package engine

import (
	"fmt"
	"strings"
)

// Preset identifiers. Each preset fixes the structural shape and length of
// the requested lyric.
const (
	PresetFull      = "FULL"
	PresetTruncated = "TRUNCATED"
	PresetChorus    = "CHORUS"
	PresetHook      = "HOOK"
	PresetTitle     = "TITLE"
)

// Lens identifiers. A lens is an optional stylistic overlay; LensNone
// appends nothing.
const (
	LensNone    = "NONE"
	LensCountry = "COUNTRY"
	LensVintage = "VINTAGE"
	LensPunk    = "PUNK"
)

var presetSystems = map[string]string{
	PresetFull: `Treat the premise with professional songwriting craft. Output Suno-ready sections. At least 3 verses, evolving chorus, and a bridge. Optional intro, pre-chorus, outro. Keep it performable straight; humor from premise and phrasing, not sloppy meter.

Output ONLY:
[Style: <genre> | Key: <key> | Tempo: <bpm> | Time: <meter>]
[Intro] … (optional, 1–2 lines)
[Verse 1] 4–6 lines
[Pre-Chorus] (optional, 2–4 lines)
[Chorus] 2–4 lines, chantable
[Verse 2] 4–6 lines
[Chorus] slight variation / escalation
[Verse 3] 4–6 lines
[Bridge] 2–4 lines (contrast, set up final chorus)
[Chorus] final, strongest (may combine prior ideas)
[Outro] (optional, 1–2 lines)

Rules: consistent meter & syllables; internal rhyme encouraged; chorus evolves; ≤ ~220 words total; no explanations or extra text.`,

	PresetTruncated: `Write a very short meme song for Suno: one [Verse] (2–4 lines) and one [Chorus] (2–4 lines). Chorus must be chantable/repeatable. ≤ 60 words total. Include header.

Output:
[Style: <genre> | Key: <key> | Tempo: <bpm> | Time: <meter>]
[Verse] …
[Chorus] …

No extra sections. No explanations.`,

	PresetChorus: `Return ONLY a Suno [Chorus] (2–4 lines), chant-ready, ≤ 50 words, plus header.

[Style: <genre> | Key: <key> | Tempo: <bpm> | Time: <meter>]
[Chorus] …`,

	PresetHook: `Return ONLY two shocking/funny lines followed by a tiny chant tag. ≤ 35 words total.

[Hook]   line 1   line 2   [Chant] short chant (2–6 words)`,

	PresetTitle: `Return ONLY a 2–4 word title; no colons/parentheses; PG-13; punchy.

[Title] Your Title`,
}

var lensSnippets = map[string]string{
	LensNone:    "",
	LensCountry: "Blue-collar country tropes; diners, trucks, cheap beer; playful, not mean.",
	LensVintage: "Pretend this is a 1972 lost 7-inch. [Style: Vintage Soul] [Tempo: 92] [Key: A minor]. Slightly retro diction; avoid modern brand names.",
	LensPunk:    "140–170 BPM, short lines, barked chant. Humor > coherence; keep lines punchy.",
}

// Refine instructions, keyed by RefineKind.
var refineSystems = map[RefineKind]string{
	RefinePolish: `You are polishing a meme-ready lyric for short-form video. Tighten meter, remove filler, improve internal rhyme, and maximize chantability. Keep the original joke/POV. If too long, trim to the shortest version that preserves the punchline. Ensure Suno sections remain intact.
Tasks:
1. Keep or add [Style | Key | Tempo | Time].
2. Standardize labels ([Intro] [Verse] [Pre-Chorus] [Chorus] [Bridge] [Hook] [Chant] [Outro]).
3. Split long lines; avoid tongue-twisters.
4. Keep PG-13 and platform-safe.
Output only the revised lyric in the same bracketed format. No explanations.`,

	RefineShorten: `Aggressively compress to the catchiest version (aim ≤ 90 words). Keep the hook; boost punch; simplify diction; preserve bracketed sections. Output lyrics only.`,

	RefineVerse: `You are expanding an existing song. Add exactly one [Verse] matching the given lyrics’ meter/rhyme/tone. Do not modify existing text.
Output only the new [Verse].`,

	RefineBridge: `You are expanding an existing song. Add exactly one [Bridge] that provides contrast and sets up the final chorus. Do not modify existing text.
Output only the new [Bridge].`,
}

// CapBudget is the word/character (rune) budget for one preset.
type CapBudget struct {
	Words int
	Chars int
}

var capBudgets = map[string]CapBudget{
	PresetFull:      {Words: 220, Chars: 2000},
	PresetTruncated: {Words: 60, Chars: 600},
	PresetChorus:    {Words: 50, Chars: 450},
	PresetHook:      {Words: 35, Chars: 280},
	PresetTitle:     {Words: 8, Chars: 64},
}

// BuildSystemPrompt combines the preset's fixed instruction text with the
// lens's stylistic note. The lens note is appended on its own paragraph;
// LensNone appends nothing. Deterministic: same inputs, same output.
func BuildSystemPrompt(preset, lens string) (string, error) {
	base, ok := presetSystems[preset]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
	snippet, ok := lensSnippets[lens]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLens, lens)
	}
	if snippet == "" {
		return base, nil
	}
	return base + "\n\n" + snippet, nil
}

// EnforceCap limits text to the preset's word and rune budget. The word cap
// is checked first: over-budget text is cut to the first Words words joined
// by single spaces, no ellipsis. The rune cap is then applied to whatever
// remains, which keeps the function idempotent even when the surviving
// words are unusually long. Unknown presets fall back to the FULL budget;
// this function never fails.
func EnforceCap(text, preset string, capsEnabled bool) string {
	if !capsEnabled {
		return text
	}
	budget, ok := capBudgets[preset]
	if !ok {
		budget = capBudgets[PresetFull]
	}
	words := strings.Fields(text)
	if len(words) > budget.Words {
		text = strings.Join(words[:budget.Words], " ")
	}
	if runes := []rune(text); len(runes) > budget.Chars {
		text = string(runes[:budget.Chars])
	}
	return text
}
