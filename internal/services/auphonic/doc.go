// Package auphonic drives the Auphonic production lifecycle: create a
// production, upload the input, wait for the service to recognise it, start
// processing, poll until a verdict, and download the results.
//
// Status payloads are judged by Classifier, which checks the status text
// before the numeric code because the service can report an error code while
// a file is still being processed.
package auphonic
