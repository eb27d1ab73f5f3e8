//go:build !linux

package main

func readInteractiveLine(_ string) (string, error) {
	return readPipedLine(stdinReader)
}
