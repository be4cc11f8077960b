// Package formats reads and writes the baker's binary asset formats.
package formats

// Note: DVOL (density volume) is fully implemented in dvol.go
