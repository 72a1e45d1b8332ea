// Package html extracts readable text from HTML contracts, dropping scripts,
// styles and markup and decoding entities.
package html
