// Package concat joins multiple recordings into one MP3 using ffmpeg's concat
// filter. Output naming follows the first input's stem, marked with
// "_concatenated" when more than one file is joined.
package concat
