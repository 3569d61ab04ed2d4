package memfts

import (
	"strings"
	"unicode"

	"github.com/kagent-dev/agentmem/internal/fulltextindex"
)

// EnglishTokenizer lowercases, splits on non-letter/digit runes, and drops a
// small stopword list. The default tokenizer (language=english, §6).
type EnglishTokenizer struct{}

var englishStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "of": {}, "to": {}, "in": {}, "on": {}, "for": {}, "with": {},
	"at": {}, "by": {}, "from": {}, "it": {}, "this": {}, "that": {}, "be": {}, "as": {},
}

func (EnglishTokenizer) Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		w := cur.String()
		cur.Reset()
		if _, stop := englishStopwords[w]; !stop {
			tokens = append(tokens, w)
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// ChineseTokenizer produces character bigrams, the common fallback for CJK
// text with no word-segmentation dictionary available (language=chinese, §6).
type ChineseTokenizer struct{}

func (ChineseTokenizer) Tokenize(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	filtered := make([]rune, 0, len(runes))
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 1 {
		return []string{string(filtered)}
	}
	tokens := make([]string, 0, len(filtered))
	for i := 0; i+1 < len(filtered); i++ {
		tokens = append(tokens, string(filtered[i:i+2]))
	}
	return tokens
}

// NewTokenizer selects a tokenizer by language config value.
func NewTokenizer(language string) fulltextindex.Tokenizer {
	if language == "chinese" {
		return ChineseTokenizer{}
	}
	return EnglishTokenizer{}
}
