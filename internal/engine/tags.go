package engine

import (
	"regexp"
	"strings"
)

type tagRule struct {
	tag string
	re  *regexp.Regexp
}

// Keyword heuristics, checked against lowercased output. Order is the
// order tags appear on the artifact.
var tagRules = []tagRule{
	{"#country", regexp.MustCompile(`\b(truck|chevy|beer|boots|county|barstool|whiskey|mud)\b`)},
	{"#vintage", regexp.MustCompile(`\b(vintage|needle|vinyl|spindle|jukebox|cassette|tape)\b`)},
	{"#punk", regexp.MustCompile(`\b(yell|mosh|pit|leather|amp|snare)\b`)},
	{"#character", regexp.MustCompile(`\b(grandma|uncle|neighbor|teacher)\b`)},
	{"#meme", regexp.MustCompile(`\b(vape|tiktok|meme|wifi|dm)\b`)},
}

// AutoTags derives library tags from the generated text.
func AutoTags(text string) []string {
	t := strings.ToLower(text)
	var tags []string
	for _, rule := range tagRules {
		if rule.re.MatchString(t) {
			tags = append(tags, rule.tag)
		}
	}
	return tags
}
