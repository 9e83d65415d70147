// Package connectors provides the sources the corpus is read from.
// Each connector turns a location into raw documents for the
// normaliser registry.
package connectors
