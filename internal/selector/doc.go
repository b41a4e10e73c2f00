// Package selector parses source queries and resolves them to an entry pool.
//
// A query combines source pattern literals with '|' and '&':
//
//	expr := term (('|' | '&') term)*      left-associative, equal precedence
//	term := NAME | '(' expr ')'
//	NAME := run of characters other than | & ( ), trimmed
//
// Parsing produces an expression tree (Name, Or, And). Evaluation is a
// separate step that walks the tree and merges the named sources into one
// flat pool of entries. Both operators merge: each distinct source
// contributes all of its entries once, so a source's weight in the pool is
// proportional to its entry count. Parentheses only group.
//
// # Errors
//
// Every failure is an *Error carrying an ErrorCode. Locations are 0-based
// rune offsets into the original query string, so they can be pointed at in
// user-facing messages. Syntax errors are reported before unknown names.
//
// # Sealed expressions
//
// Expr is sealed with a marker method. Only Name, Or and And implement it,
// which keeps type switches over the tree exhaustive.
package selector
