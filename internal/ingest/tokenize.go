package ingest

import (
	"strings"

	"github.com/roach88/mashup/internal/chain"
)

// Token is a word with its sentence-terminal flag.
type Token struct {
	Word     string
	Terminal bool
}

// Tokenize splits text on spaces and newlines after trimming outer
// whitespace. Empty tokens between adjacent separators are dropped.
//
// A token is terminal when it ends in '.', '?' or '!', when newlineTerminal
// is set and the separator right after it is a newline, or when it is the
// last token of the text.
func Tokenize(text string, newlineTerminal bool) []Token {
	text = strings.TrimSpace(text)

	var tokens []Token
	last := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != ' ' && c != '\n' {
			continue
		}
		if i > last {
			word := text[last:i]
			tokens = append(tokens, Token{
				Word:     word,
				Terminal: (newlineTerminal && c == '\n') || endsSentence(word),
			})
		}
		last = i + 1
	}
	if last < len(text) {
		tokens = append(tokens, Token{Word: text[last:], Terminal: true})
	}
	return tokens
}

func endsSentence(word string) bool {
	switch word[len(word)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}

// indexed is a token after interning.
type indexed struct {
	word     uint32
	terminal bool
}

// buildEntries slides a window of NGram+1 tokens over the sequence.
// Fewer than NGram+1 tokens produce no entries.
func buildEntries(tokens []indexed, ds chain.Datestamp) []chain.Entry {
	if len(tokens) < chain.NGram+1 {
		return nil
	}
	entries := make([]chain.Entry, 0, len(tokens)-chain.NGram)
	starting := true
	for i := 0; i+chain.NGram < len(tokens); i++ {
		suffix := tokens[i+chain.NGram]
		entries = append(entries, chain.Entry{
			Prefix:    chain.NewPrefix(tokens[i].word, tokens[i+1].word, starting),
			Suffix:    chain.NewSuffix(suffix.word, suffix.terminal),
			Datestamp: ds,
		})
		starting = suffix.terminal
	}
	return entries
}

// PushText tokenizes text, interns its words and appends the resulting
// entries to the source for pattern, creating the source if needed.
// It returns the number of entries appended.
func PushText(c *chain.Chain, pattern, text string, ds chain.Datestamp, newlineTerminal bool) (int, error) {
	tokens := Tokenize(text, newlineTerminal)
	idx := make([]indexed, 0, len(tokens))
	for _, tok := range tokens {
		w, err := c.Words.Intern(tok.Word)
		if err != nil {
			return 0, err
		}
		idx = append(idx, indexed{word: w, terminal: tok.Terminal})
	}

	src := c.SourceOrCreate(pattern)
	entries := buildEntries(idx, ds)
	src.Entries = append(src.Entries, entries...)
	return len(entries), nil
}
