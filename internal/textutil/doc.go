// Package textutil validates user-supplied output file names.
package textutil
