package meaning

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/tripsense/internal/remote"
)

func tok(text, lemma, pos, dep string, head int) Token {
	return Token{Text: text, Lemma: lemma, POS: pos, Dep: dep, Head: head}
}

func TestFromDoc_AdjNounPairsAndPhrases(t *testing.T) {
	doc := &Doc{
		Tokens: []Token{
			tok("Beautiful", "beautiful", "ADJ", "amod", 2),
			tok("quiet", "quiet", "ADJ", "amod", 2),
			tok("Beach", "beach", "NOUN", "ROOT", 2),
		},
		NounChunks: []string{"Beautiful quiet Beach"},
		Entities:   []Entity{{Text: "Bondi", Label: "GPE"}},
	}

	units := FromDoc(doc)
	assert.Equal(t, []string{"beautiful quiet beach"}, units.Phrases)
	assert.Equal(t, []string{"beautiful_beach", "quiet_beach"}, units.AdjNounPairs)
	assert.Equal(t, []Entity{{Text: "Bondi", Label: "GPE"}}, units.Entities)
	assert.Empty(t, units.NegationConcepts)
}

func TestFromDoc_ExplicitNegation(t *testing.T) {
	doc := &Doc{Tokens: []Token{
		tok("The", "the", "DET", "det", 1),
		tok("room", "room", "NOUN", "nsubj", 2),
		tok("was", "be", "AUX", "ROOT", 2),
		tok("not", "not", "PART", "neg", 4),
		tok("clean", "clean", "ADJ", "acomp", 2),
	}}

	assert.Equal(t, []string{"not_clean"}, FromDoc(doc).NegationConcepts)
}

func TestFromDoc_NegationWithObject(t *testing.T) {
	doc := &Doc{Tokens: []Token{
		tok("I", "I", "PRON", "nsubj", 3),
		tok("did", "do", "AUX", "aux", 3),
		tok("not", "not", "PART", "neg", 3),
		tok("like", "like", "VERB", "ROOT", 3),
		tok("the", "the", "DET", "det", 5),
		tok("food", "food", "NOUN", "dobj", 3),
	}}

	assert.Equal(t, []string{"not_like_food"}, FromDoc(doc).NegationConcepts)
}

func TestFromDoc_ImplicitNegation(t *testing.T) {
	doc := &Doc{Tokens: []Token{
		tok("There", "there", "PRON", "expl", 1),
		tok("was", "be", "AUX", "ROOT", 1),
		tok("nothing", "nothing", "PRON", "attr", 1),
		tok("interesting", "interesting", "ADJ", "amod", 2),
	}}

	assert.Equal(t, []string{"no_interesting"}, FromDoc(doc).NegationConcepts)
}

func TestFromDoc_ContrastEmptiness(t *testing.T) {
	doc := &Doc{Tokens: []Token{
		tok("The", "the", "DET", "det", 1),
		tok("room", "room", "NOUN", "nsubj", 2),
		tok("is", "be", "AUX", "ROOT", 2),
		tok("large", "large", "ADJ", "acomp", 2),
		tok("but", "but", "CCONJ", "cc", 2),
		tok("nothing", "nothing", "PRON", "conj", 2),
		tok("else", "else", "ADV", "advmod", 5),
		tok(".", ".", "PUNCT", "punct", 2),
	}}

	assert.Equal(t, []string{"empty_large"}, FromDoc(doc).NegationConcepts)
}

func TestFromDoc_ContrastWindowAtDocumentEnd(t *testing.T) {
	// The emptiness window would run past the last token; it must not panic.
	doc := &Doc{Tokens: []Token{
		tok("big", "big", "ADJ", "amod", 3),
		tok("yet", "yet", "CCONJ", "cc", 3),
		tok("room", "room", "NOUN", "nsubj", 3),
		tok("sleeps", "sleep", "VERB", "ROOT", 3),
	}}

	assert.Empty(t, FromDoc(doc).NegationConcepts)
}

func TestFromDoc_MissingLemmaUsesText(t *testing.T) {
	doc := &Doc{Tokens: []Token{
		tok("Nothing", "", "PRON", "nsubj", 1),
		tok("worked", "", "VERB", "ROOT", 1),
	}}

	assert.Equal(t, []string{"no_worked"}, FromDoc(doc).NegationConcepts)
}

type fakeParser struct {
	doc   *Doc
	err   error
	panic bool
}

func (f fakeParser) Parse(context.Context, string) (*Doc, error) {
	if f.panic {
		panic("parser crashed")
	}
	return f.doc, f.err
}

func TestExtractor_Degrades(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, EmptyUnits(), NewExtractor(nil, zerolog.Nop()).Extract(ctx, "nice beach"))
	assert.Equal(t, EmptyUnits(), NewExtractor(fakeParser{err: errors.New("down")}, zerolog.Nop()).Extract(ctx, "nice beach"))
	assert.Equal(t, EmptyUnits(), NewExtractor(fakeParser{panic: true}, zerolog.Nop()).Extract(ctx, "nice beach"))
	assert.False(t, NewExtractor(nil, zerolog.Nop()).Available())
}

func TestExtractor_UsesParser(t *testing.T) {
	doc := &Doc{Tokens: []Token{
		tok("nice", "nice", "ADJ", "amod", 1),
		tok("beach", "beach", "NOUN", "ROOT", 1),
	}}
	units := NewExtractor(fakeParser{doc: doc}, zerolog.Nop()).Extract(context.Background(), "nice beach")
	assert.Equal(t, []string{"nice_beach"}, units.AdjNounPairs)
}

func TestHTTPParser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tokens":[{"text":"nice","lemma":"nice","pos":"ADJ","dep":"amod","head":1},{"text":"beach","lemma":"beach","pos":"NOUN","dep":"ROOT","head":1}],"noun_chunks":["nice beach"],"entities":[]}`))
	}))
	defer srv.Close()

	client := remote.NewClient("parser", srv.URL, time.Second, remote.BreakerConfig{}, zerolog.Nop())
	doc, err := NewHTTPParser(client).Parse(context.Background(), "nice beach")
	require.NoError(t, err)
	require.Len(t, doc.Tokens, 2)
	assert.Equal(t, []string{"nice_beach"}, FromDoc(doc).AdjNounPairs)
}
