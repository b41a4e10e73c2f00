// Package store provides SQLite-backed persistence for the Markov chain and
// the generation history.
//
// The chain is a snapshot: SaveChain replaces every word, source and entry in
// one transaction and LoadChain reads the whole thing back. There is no
// partial load. Generations are an append-only log keyed by UUIDv7 id.
//
// # Tables
//
//   - words: vocabulary, idx dense from 0
//   - sources: pattern literals with their insertion ordinal
//   - entries: packed prefix/suffix values plus datestamp, ordered by seq
//   - generations: prompt, text and whether the fallback was used
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
