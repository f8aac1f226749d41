// Package lang provides best-effort language detection for chunk and query
// text. This is a small heuristic classifier based on function-word
// frequency, the same category of hand-rolled, fully
// specified small algorithm the chunker itself is.
package lang

import "strings"

// stopWords maps an ISO 639-3 code to a set of highly frequent function
// words for that language. Detection counts matches against each table and
// picks the language with the most hits, requiring a minimum number of
// matches to avoid false positives on short or code-like text.
var stopWords = map[string]map[string]struct{}{
	"eng": set("the", "and", "is", "of", "to", "in", "that", "it", "for", "with", "as", "was", "on", "are", "this", "be", "or", "by", "an", "at"),
	"fra": set("le", "la", "les", "de", "et", "des", "un", "une", "est", "que", "pour", "dans", "sur", "avec", "pas", "plus", "par", "ce", "en", "qui"),
	"spa": set("el", "la", "los", "las", "de", "que", "y", "en", "un", "una", "es", "por", "para", "con", "no", "se", "su", "al", "del", "como"),
	"deu": set("der", "die", "das", "und", "ist", "von", "zu", "den", "mit", "sich", "des", "auf", "fur", "im", "dem", "nicht", "ein", "eine", "als", "auch"),
	"por": set("o", "a", "os", "as", "de", "que", "e", "do", "da", "em", "um", "uma", "para", "com", "nao", "se", "no", "na", "por", "como"),
	"ita": set("il", "la", "di", "che", "e", "un", "una", "per", "non", "in", "con", "si", "del", "della", "da", "sono", "come", "gli", "le", "ma"),
	"nld": set("de", "het", "een", "van", "en", "is", "dat", "in", "op", "te", "voor", "met", "niet", "aan", "ook", "zijn", "bij", "als", "maar", "dan"),
}

// minMatches is the minimum number of stop-word hits (a repeated word
// counts each time) required
// before a detection result is trusted; below this, Detect returns "" (none).
const minMatches = 3

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Detect returns the best-effort ISO 639-3 code for text's dominant
// language, or "" if no language scores enough matches to be trusted.
func Detect(text string) string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return ""
	}

	best := ""
	bestScore := 0
	for code, words := range stopWords {
		score := 0
		for _, tok := range tokens {
			if _, ok := words[tok]; ok {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = code
		}
	}

	if bestScore < minMatches {
		return ""
	}
	return best
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'à' && r <= 'ÿ'))
	})
	if len(fields) > 500 {
		fields = fields[:500]
	}
	return fields
}
