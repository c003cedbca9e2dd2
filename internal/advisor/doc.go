// Package advisor validates the input form and runs prediction submissions.
//
// Submissions move through idle, validating, submitting and then success or
// error before returning to idle. Only one runs at a time. A blank required
// field stops the submission before any request is made, and the loading
// state is always cleared when a request finishes, whatever the outcome.
package advisor
