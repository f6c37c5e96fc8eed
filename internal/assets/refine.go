package assets

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// Sentinel is the answer the extraction prompt asks for when nothing fits.
	Sentinel = "EXTRACTION_FAILED"
	// legacySentinel is the Korean sentinel older prompts used.
	legacySentinel = "추출불가"

	prefixWords     = 5
	minClueWords    = 3
	minOverlapRatio = 0.5
)

var (
	leadInRe = regexp.MustCompile(`(?is)^.*?(?:다음과 같습니다|추출 문장은|\[extracted sentence\]|here is the (?:extracted )?sentence|the (?:extracted )?sentence is)\s*[:：]?\s*`)
	quotesRe = regexp.MustCompile("[\"“”]")
)

// Refine maps a generated answer back onto a sentence of original. The answer
// is cleaned of lead-in phrases and quotes; then the original sentence that
// contains the answer's first words is returned, or else the sentence sharing
// more than half of the answer's words. An empty result means the extraction
// failed.
func Refine(generated, original string) string {
	clue := cleanClue(generated)
	if clue == "" || isSentinel(clue) {
		return ""
	}

	words := strings.Fields(clue)
	if len(words) < minClueWords {
		return ""
	}

	sentences := SplitSentences(original)

	start := strings.Join(words[:min(prefixWords, len(words))], " ")
	for _, s := range sentences {
		if strings.Contains(s, start) {
			return s
		}
	}

	best, bestRatio := "", 0.0
	for _, s := range sentences {
		matched := 0
		for _, w := range words {
			if strings.Contains(s, w) {
				matched++
			}
		}
		ratio := float64(matched) / float64(len(words))
		if ratio > bestRatio && ratio > minOverlapRatio {
			best, bestRatio = s, ratio
		}
	}
	return best
}

func cleanClue(generated string) string {
	clue := leadInRe.ReplaceAllString(generated, "")
	clue = quotesRe.ReplaceAllString(clue, "")
	return strings.TrimSpace(clue)
}

func isSentinel(text string) bool {
	return strings.Contains(text, Sentinel) || strings.Contains(text, legacySentinel)
}

// SplitSentences splits text after '.', '!' or '?' followed by whitespace.
// Sentences are trimmed; empty ones are dropped.
func SplitSentences(text string) []string {
	var (
		out   []string
		start int
	)

	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}
