//go:build !unix

package main

// lockFile is a no-op where flock is unavailable; the transmitter still
// refuses overlapping runs within one process.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
