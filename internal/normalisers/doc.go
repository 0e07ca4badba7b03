// Package normalisers turns course files into structured domain values.
//
// The format packages (plaintext, markdown, html, pdf) each extract UTF-8 text
// from one file format and are looked up by extension through a Registry. The
// course package parses that text into a Course and its lesson bodies.
package normalisers
