// Package normalisers provides implementations of the driven.Parser
// interface for various document formats. Each parser extracts
// page-level text from files with specific extensions.
//
// Parsers are collected in a Registry that selects one by file extension.
package normalisers
