// Package similarity computes a normalized lexical similarity between two
// strings. Every matching tier in the engine scores names with it: account
// matching, pattern learning and the manual duplicate heuristic.
package similarity

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Normalize lowers the string and collapses runs of whitespace to single
// spaces so scoring ignores casing and spacing differences.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Score returns a similarity in [0,1]. It is symmetric, returns 1.0 exactly
// when the normalized strings are equal and 0.0 when either side is empty.
// The result is the better of an edit-distance ratio and a token-overlap
// (Dice) coefficient; the token component keeps reordered multi-word names
// ("Savings Transfer" vs "Transfer to Savings") from scoring near zero.
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	edit := editRatio(na, nb)
	tokens := tokenOverlap(na, nb)
	if tokens > edit {
		return tokens
	}
	return edit
}

func editRatio(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	dist := levenshtein.ComputeDistance(a, b)
	if dist >= maxLen {
		return 0.0
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

func tokenOverlap(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)

	setA := make(map[string]struct{}, len(tokensA))
	for _, tok := range tokensA {
		setA[tok] = struct{}{}
	}

	shared := 0
	seen := make(map[string]struct{}, len(tokensB))
	for _, tok := range tokensB {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := setA[tok]; ok {
			shared++
		}
	}

	return 2.0 * float64(shared) / float64(len(setA)+len(seen))
}

// LongestCommonSubstring returns the longest common substring of the
// normalized inputs. Pattern learning uses it to derive the literal core of
// an auto-learned expression from repeated exclusion names.
func LongestCommonSubstring(a, b string) string {
	ra := []rune(Normalize(a))
	rb := []rune(Normalize(b))
	if len(ra) == 0 || len(rb) == 0 {
		return ""
	}

	// Classic O(len(a)*len(b)) table, rolling one row at a time.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	best, bestEnd := 0, 0

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > best {
					best = curr[j]
					bestEnd = i
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}

	return string(ra[bestEnd-best : bestEnd])
}
