// Package sensor models soil sensor readings and moves them around: stores
// for history (in memory or MongoDB) and a websocket hub that pushes each
// stored reading to subscribed forms.
//
// A Reading is a map of field name to value. Not every probe reports every
// field, so absence is meaningful and callers use Get or Or rather than
// indexing directly.
package sensor
