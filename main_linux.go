//go:build linux

package main

const holdKeyLabel = "Hold Shift"

func main() {
	run()
}
