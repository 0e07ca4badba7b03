// Package connectors provides implementations of the DocumentSource port.
// Each connector knows how to list, read and watch course documents in one
// kind of store; the filesystem connector serves a local docs folder.
package connectors
