//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

const holdKeyLabel = "Hold Ctrl+Shift+Space"

func init() {
	runtime.LockOSThread()
}

func main() {
	mainthread.Init(run)
}
