/*
Package text turns free text into the content tokens every NLP component works on.

Normalization lowercases the input, replaces every character that is not a
word character or whitespace with a space, tokenizes, and drops tokens of
length one and stopwords. Callers can additionally drop a fixed list of
intensifier adverbs that carry no preference signal ("really", "quite").

The default stop list is bleve's English list plus the fragments left behind
when contractions are split on the apostrophe ("wasn", "didn"). A
newline-separated file can replace it.
*/
package text

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Tokenizer names accepted by WithTokenizer.
const (
	TokenizerWhitespace = "whitespace"
	TokenizerUnicode    = "unicode"
)

var commonAdverbs = map[string]struct{}{
	"actually": {}, "quite": {}, "rather": {}, "really": {}, "very": {},
	"extremely": {}, "supposedly": {}, "basically": {}, "literally": {},
	"definitely": {}, "certainly": {}, "absolutely": {}, "completely": {},
	"totally": {}, "utterly": {}, "obviously": {}, "clearly": {}, "simply": {},
	"just": {}, "generally": {}, "arguably": {},
}

// contractionFragments are the stems of "n't", "'ll", "'re" and "'ve"
// contractions once the apostrophe becomes a space.
var contractionFragments = []string{
	"ain", "aren", "couldn", "didn", "doesn", "don", "hadn", "hasn", "haven",
	"isn", "ll", "ma", "mightn", "mustn", "needn", "re", "shan", "shouldn",
	"ve", "wasn", "weren", "won", "wouldn",
}

// IsAdverb reports whether word is one of the filtered intensifier adverbs.
func IsAdverb(word string) bool {
	_, ok := commonAdverbs[word]
	return ok
}

// FilterAdverbs returns words without intensifier adverbs, preserving order.
func FilterAdverbs(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !IsAdverb(w) {
			out = append(out, w)
		}
	}
	return out
}

// Normalizer is safe for concurrent use once constructed.
type Normalizer struct {
	stopwords analysis.TokenMap
	tokenize  func(string) []string
}

// Option configures a Normalizer.
type Option func(*Normalizer) error

// WithStopwordsFile replaces the built-in stop list with the words in path.
func WithStopwordsFile(path string) Option {
	return func(n *Normalizer) error {
		if path == "" {
			return nil
		}
		words := analysis.NewTokenMap()
		if err := words.LoadFile(path); err != nil {
			return fmt.Errorf("failed to load stopwords file %s: %w", path, err)
		}
		n.stopwords = words
		return nil
	}
}

// WithTokenizer selects "whitespace" (default) or "unicode" word segmentation.
func WithTokenizer(name string) Option {
	return func(n *Normalizer) error {
		switch name {
		case "", TokenizerWhitespace:
			n.tokenize = strings.Fields
		case TokenizerUnicode:
			tokenizer := bleveunicode.NewUnicodeTokenizer()
			n.tokenize = func(s string) []string {
				stream := tokenizer.Tokenize([]byte(s))
				out := make([]string, 0, len(stream))
				for _, tok := range stream {
					out = append(out, string(tok.Term))
				}
				return out
			}
		default:
			return fmt.Errorf("unknown tokenizer %q", name)
		}
		return nil
	}
}

// New builds a Normalizer with the English stop list and whitespace tokenization.
func New(opts ...Option) (*Normalizer, error) {
	stopwords := analysis.NewTokenMap()
	if err := stopwords.LoadBytes(en.EnglishStopWords); err != nil {
		return nil, fmt.Errorf("failed to load english stopwords: %w", err)
	}
	for _, w := range contractionFragments {
		stopwords.AddToken(w)
	}

	n := &Normalizer{
		stopwords: stopwords,
		tokenize:  strings.Fields,
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// MustNew is New without options, panicking if the embedded stop list fails to load.
func MustNew() *Normalizer {
	n, err := New()
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize returns the ordered content tokens of text, duplicates included.
// Empty input yields an empty slice.
func (n *Normalizer) Normalize(text string, filterAdverbs bool) []string {
	if text == "" {
		return []string{}
	}

	cleaned := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	tokens := []string{}
	for _, tok := range n.tokenize(cleaned) {
		if len([]rune(tok)) <= 1 {
			continue
		}
		if n.IsStopword(tok) {
			continue
		}
		if filterAdverbs && IsAdverb(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// TokenSet returns the distinct content tokens of text.
func (n *Normalizer) TokenSet(text string) map[string]struct{} {
	tokens := n.Normalize(text, false)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// IsStopword reports whether word is in the active stop list.
func (n *Normalizer) IsStopword(word string) bool {
	return n.stopwords[word]
}
