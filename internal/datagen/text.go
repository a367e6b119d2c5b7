package datagen

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldASCII strips combining marks, so "José" becomes "Jose".
func FoldASCII(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return ascii
}

// TitleCase joins words with spaces and title-cases the result.
func TitleCase(words ...string) string {
	return cases.Title(language.English).String(strings.Join(words, " "))
}
