// Package session holds the form's session state: active mode, weather
// source, loading flag and the last sensor reading. State is a value;
// changes go through Reduce so every snapshot handed to the UI stays valid.
package session
