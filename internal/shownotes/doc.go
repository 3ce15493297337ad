// Package shownotes produces episode titles and descriptions from a
// transcript through a chat-completion model, and parses the loosely
// structured reply into Notes.
package shownotes
