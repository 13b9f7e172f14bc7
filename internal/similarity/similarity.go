// Package similarity is the single definition of "similar" used by the fuzzy
// duplicate matcher. Both the normalization rules and the ratio function live
// here so every caller scores strings the same way.
package similarity

import (
	"regexp"
	"strings"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/unicode/norm"
)

var (
	// Bracketed qualifiers that name a variant of the same recording:
	// "(Remastered 2009)", "[Deluxe Edition]", "(feat. Pharrell)", ...
	bracketQualifier = regexp.MustCompile(`(?i)\s*[(\[][^)\]]*(remaster|remix|feat\.?|featuring|deluxe|edition|version|mono|stereo|live|bonus|single|radio|edit|anniversary)[^)\]]*[)\]]`)

	// Trailing qualifiers without brackets: "Song Title - Remastered".
	trailingQualifier = regexp.MustCompile(`(?i)\s*-\s*(remastered|remaster|live|mono|stereo)(\s+\d{4})?$`)

	featSuffix = regexp.MustCompile(`(?i)\s+(feat\.?|featuring)\s+.*$`)

	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a tag value for fuzzy comparison: NFC, lowercase,
// bracketed and trailing qualifiers stripped, punctuation removed, whitespace
// collapsed.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = bracketQualifier.ReplaceAllString(s, "")
	s = trailingQualifier.ReplaceAllString(s, "")
	s = featSuffix.ReplaceAllString(s, "")
	s = removePunctuation(s)
	return whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}

func removePunctuation(s string) string {
	replacer := strings.NewReplacer(
		".", "",
		",", "",
		"!", "",
		"?", "",
		"'", "",
		"\"", "",
		":", "",
		";", "",
		"-", " ",
		"_", " ",
		"&", "and",
		"/", " ",
	)
	return replacer.Replace(s)
}

// Ratio returns the Jaro-Winkler similarity of two strings after
// normalization, in [0,1]. It is symmetric, and reflexive (Ratio(a,a) == 1)
// for non-empty strings. The empty guard runs first: two empty values carry
// no evidence of similarity, so they score 0, not 1.
func Ratio(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	sim, err := edlib.StringsSimilarity(na, nb, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(sim)
}

// Combiner folds per-field ratios into one match score.
type Combiner func(artistRatio, titleRatio float64) float64

// Mean is the default Combiner: the arithmetic mean of the artist and title
// ratios. A weighted or minimum combiner can be substituted where a lower
// false-positive rate matters more than recall.
func Mean(artistRatio, titleRatio float64) float64 {
	return (artistRatio + titleRatio) / 2
}

// Combined scores two (artist, title) pairs with the Mean combiner.
func Combined(artistA, titleA, artistB, titleB string) float64 {
	return Mean(Ratio(artistA, artistB), Ratio(titleA, titleB))
}
