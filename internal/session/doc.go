// Package session implements the photo edit session: the current working
// image, the selected filter and the rendered preview derived from them.
//
// All resizing and filtering runs on a single background worker. Requests
// are latest-wins: a newer request supersedes queued or in-flight work from
// an older one, and superseded results are discarded rather than applied.
// Callers that need the outcome wait on the returned Pending.
package session
