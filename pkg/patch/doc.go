// Package patch parses normal, context and unified diff text back into hunks
// and replays those hunks against documents.
//
// Parsing auto-detects the grammar from the first hunk header and returns the
// first differential found in the input. Application walks the source once,
// copying untouched lines and substituting each selected hunk's added lines
// for its deleted range. Positions always refer to the original numbering of
// the source. Helpers apply a parsed file to the filesystem or to an
// in-memory document store.
package patch
