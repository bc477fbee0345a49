package boe

import (
	"strings"
	"unicode"
)

const (
	Unchanged = "unchanged"
	Modified  = "modified"
	New       = "new"
	Removed   = "removed"
)

// Stored is the current state of an article in the database.
type Stored struct {
	ID      int64
	Number  string
	Content string
	Hash    string
}

type Change struct {
	Number     string
	Type       string
	Similarity float64
	OldHash    string
	NewHash    string
	StoredID   int64
	Fetched    *Article
}

// Diff compares stored articles against the fetched ones. Fetched articles are
// reported in document order followed by the removed ones in stored order.
func Diff(stored []Stored, fetched []Article) []Change {
	byNumber := make(map[string]Stored, len(stored))
	for _, s := range stored {
		byNumber[s.Number] = s
	}

	out := make([]Change, 0, len(fetched))
	present := make(map[string]bool, len(fetched))
	for i := range fetched {
		f := &fetched[i]
		present[f.Number] = true
		newHash := Hash(f.Content)

		s, ok := byNumber[f.Number]
		if !ok {
			out = append(out, Change{Number: f.Number, Type: New, NewHash: newHash, Fetched: f})
			continue
		}
		oldHash := s.Hash
		if oldHash == "" {
			oldHash = Hash(s.Content)
		}
		c := Change{Number: f.Number, OldHash: oldHash, NewHash: newHash, StoredID: s.ID, Fetched: f}
		if oldHash == newHash || Fold(s.Content) == Fold(f.Content) {
			c.Type = Unchanged
			c.Similarity = 1
		} else {
			c.Type = Modified
			c.Similarity = Similarity(s.Content, f.Content)
		}
		out = append(out, c)
	}

	for _, s := range stored {
		if present[s.Number] {
			continue
		}
		oldHash := s.Hash
		if oldHash == "" {
			oldHash = Hash(s.Content)
		}
		out = append(out, Change{Number: s.Number, Type: Removed, OldHash: oldHash, StoredID: s.ID})
	}
	return out
}

// Similarity is 2·LCS/(|a|+|b|) over the folded word tokens of both texts.
func Similarity(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta)+len(tb) == 0 {
		return 1
	}
	return 2 * float64(lcs(ta, tb)) / float64(len(ta)+len(tb))
}

func tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func lcs(a, b []string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
