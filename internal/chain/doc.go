// Package chain holds the bigram Markov chain data model.
//
// A Chain is a Vocabulary plus an ordered list of TextSources. Each source
// owns the transition entries observed in text attributed to it:
//
//	Prefix (w0, w1, starting) -> Suffix (w2, terminal) @ Datestamp
//
// # Packing
//
// Prefix and Suffix keep their flag in the top bit of a 32-bit word index.
// Word indices therefore live in 31 bits and the vocabulary is capped at
// MaxWords entries. Vocabulary.Intern enforces the cap explicitly; nothing
// relies on overflow wrapping.
//
// # Lifecycle
//
// A Chain is built incrementally by package ingest, persisted whole by
// package store, loaded whole at startup, and read-only afterwards. Readers
// may share a loaded Chain across goroutines as long as nobody mutates it.
package chain
