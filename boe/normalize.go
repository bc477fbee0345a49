package boe

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuation = strings.NewReplacer(
	"“", `"`, "”", `"`, "«", `"`, "»", `"`, "„", `"`,
	"‘", "'", "’", "'", "´", "'",
	"–", "-", "—", "-", "−", "-",
	"\u00a0", " ", "\u2009", " ", "\u202f", " ",
	"\r\n", "\n", "\r", "\n",
)

// Normalize returns the canonical form of an article text: NFC, unified quotes
// and dashes, whitespace collapsed inside each line and empty lines dropped.
func Normalize(s string) string {
	s = punctuation.Replace(norm.NFC.String(s))
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Fold lowercases the normalized text and strips diacritics. Only used for comparisons.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, Normalize(s))
	if err != nil {
		folded = Normalize(s)
	}
	return strings.ToLower(folded)
}

// Hash is the sha256 of the normalized text, hex encoded.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(Normalize(s)))
	return hex.EncodeToString(sum[:])
}
