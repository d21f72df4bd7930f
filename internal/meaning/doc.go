/*
Package meaning extracts structured meaning units from a dependency parse.

The parse itself comes from an optional external parser (a spaCy-style
service reached over HTTP). From the parsed document the Extractor pulls
noun phrases, adjective-noun pairs, negated concepts and named entities.
Without a parser, or when parsing fails, every list is empty.
*/
package meaning

import "strings"

// Token is one word of a parsed document.
type Token struct {
	Text  string `json:"text"`
	Lemma string `json:"lemma"`

	// POS is the universal part-of-speech tag (NOUN, PROPN, ADJ, VERB, ...).
	POS string `json:"pos"`

	// Dep is the dependency relation to Head (neg, dobj, attr, pobj, ...).
	Dep string `json:"dep"`

	// Head is the index of the syntactic head. The root points at itself.
	Head int `json:"head"`
}

// Entity is a named entity span.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Doc is a parsed document.
type Doc struct {
	Tokens     []Token  `json:"tokens"`
	NounChunks []string `json:"noun_chunks"`
	Entities   []Entity `json:"entities"`
}

// lower returns the lowercased surface form of token i.
func (d *Doc) lower(i int) string {
	return strings.ToLower(d.Tokens[i].Text)
}

// lemma returns the lemma of token i, or its lowercased text when the parser gave none.
func (d *Doc) lemma(i int) string {
	if l := d.Tokens[i].Lemma; l != "" {
		return strings.ToLower(l)
	}
	return d.lower(i)
}

// head returns the head index of token i, treating out-of-range heads as self.
func (d *Doc) head(i int) int {
	h := d.Tokens[i].Head
	if h < 0 || h >= len(d.Tokens) {
		return i
	}
	return h
}

// children returns the indices of tokens whose head is i, in document order.
func (d *Doc) children(i int) []int {
	var out []int
	for j := range d.Tokens {
		if j != i && d.head(j) == i {
			out = append(out, j)
		}
	}
	return out
}
