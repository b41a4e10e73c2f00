package chain

import (
	"errors"
	"fmt"
)

// MaxWords is the largest vocabulary a chain can hold. Word indices share a
// 32-bit field with a flag bit, leaving 31 bits for the index.
const MaxWords = 1<<31 - 1

var (
	// ErrVocabularyFull is returned when interning a new word would exceed MaxWords.
	ErrVocabularyFull = errors.New("vocabulary full")

	// ErrIndexOutOfRange is returned for a word index not present in the vocabulary.
	ErrIndexOutOfRange = errors.New("word index out of range")
)

// Vocabulary interns words to dense indices in first-seen order.
// It is append-only.
type Vocabulary struct {
	words []string
	index map[string]uint32
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{index: make(map[string]uint32)}
}

// VocabularyFrom rebuilds a vocabulary from an ordered word list, as read
// back from a snapshot. Duplicate words are rejected since they would break
// the index mapping.
func VocabularyFrom(words []string) (*Vocabulary, error) {
	if len(words) > MaxWords {
		return nil, ErrVocabularyFull
	}
	v := &Vocabulary{
		words: make([]string, 0, len(words)),
		index: make(map[string]uint32, len(words)),
	}
	for i, w := range words {
		if _, dup := v.index[w]; dup {
			return nil, fmt.Errorf("duplicate word %q at index %d", w, i)
		}
		v.index[w] = uint32(i)
		v.words = append(v.words, w)
	}
	return v, nil
}

// Intern returns the index of word, appending it if unseen.
func (v *Vocabulary) Intern(word string) (uint32, error) {
	if idx, ok := v.index[word]; ok {
		return idx, nil
	}
	if len(v.words) >= MaxWords {
		return 0, ErrVocabularyFull
	}
	idx := uint32(len(v.words))
	v.words = append(v.words, word)
	v.index[word] = idx
	return idx, nil
}

// Lookup returns the word stored at idx.
func (v *Vocabulary) Lookup(idx uint32) (string, error) {
	if uint64(idx) >= uint64(len(v.words)) {
		return "", fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, idx, len(v.words))
	}
	return v.words[idx], nil
}

// Index returns the index of word if it has been interned.
func (v *Vocabulary) Index(word string) (uint32, bool) {
	idx, ok := v.index[word]
	return idx, ok
}

// Len returns the number of interned words.
func (v *Vocabulary) Len() int {
	return len(v.words)
}

// Words returns the interned words in index order.
// The returned slice must not be modified.
func (v *Vocabulary) Words() []string {
	return v.words
}

// contains reports whether idx is a valid index.
func (v *Vocabulary) contains(idx uint32) bool {
	return uint64(idx) < uint64(len(v.words))
}
