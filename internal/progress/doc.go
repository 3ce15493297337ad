// Package progress reports byte progress of uploads and downloads.
package progress
