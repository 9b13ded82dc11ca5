// Package export renders artifacts to copy/download-ready text: filenames,
// starred bundles, and section grabs for pasting into a music tool.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hookmill/hookmill/internal/model"
)

const maxSlugLen = 40

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns free text into a filename-safe fragment: lowercased, runs of
// anything but a-z0-9 collapsed to a hyphen, trimmed, at most 40 runes.
// Empty input slugs to "untitled".
func Slug(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if runes := []rune(s); len(runes) > maxSlugLen {
		s = string(runes[:maxSlugLen])
	}
	if s == "" {
		return "untitled"
	}
	return s
}

// Filename builds the export name for a single artifact:
// YYYY-MM-DD_HHMM_PRESET_LENS_slug.txt.
func Filename(t time.Time, preset, lens, titleSource string) string {
	return fmt.Sprintf("%s_%s_%s_%s.txt", t.Format("2006-01-02_1504"), preset, lens, Slug(titleSource))
}

// StarredFilename names the starred bundle by minute of export (UTC).
func StarredFilename(t time.Time) string {
	return "starred_" + t.UTC().Format("2006-01-02-15-04") + ".txt"
}

// Bundle joins artifact outputs with a horizontal-rule separator.
func Bundle(artifacts []model.Artifact) string {
	outputs := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		outputs = append(outputs, a.Output)
	}
	return strings.Join(outputs, "\n\n---\n\n")
}

// Title is the display name of an artifact: its first non-empty line.
func Title(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// sectionHeader matches the start of the next bracketed section on a new
// line, e.g. "\n[Chorus]" or "\n[Verse 2]".
var sectionHeader = regexp.MustCompile(`\n\[[A-Z][^\]]+\]`)

// Chorus extracts the first [Chorus] section, up to the next section
// header or end of text. Empty when the text has no chorus.
func Chorus(text string) string {
	start := strings.Index(text, "[Chorus]")
	if start < 0 {
		return ""
	}
	rest := text[start:]
	// Look past the label itself so a chorus directly followed by another
	// section still captures its lines.
	if loc := sectionHeader.FindStringIndex(rest[len("[Chorus]"):]); loc != nil {
		rest = rest[:len("[Chorus]")+loc[0]]
	}
	return strings.TrimSpace(rest)
}

var (
	hookRe  = regexp.MustCompile(`\[Hook\][^\[]+`)
	chantRe = regexp.MustCompile(`\[Chant\][^\[]+`)
)

// Hook extracts the [Hook] and [Chant] sections, newline-joined. Empty
// when the text has neither.
func Hook(text string) string {
	hook := strings.TrimSpace(hookRe.FindString(text))
	chant := strings.TrimSpace(chantRe.FindString(text))
	switch {
	case hook != "" && chant != "":
		return hook + "\n" + chant
	case hook != "":
		return hook
	default:
		return chant
	}
}
