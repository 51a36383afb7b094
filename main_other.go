//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

// Global hotkeys and the GUI both need the main thread on macOS.
func init() {
	runtime.LockOSThread()
}

func main() {
	cmd := parseArgs(os.Args[1:])
	if cmd == guiCmd.FullCommand() {
		runGUI()
		return
	}
	mainthread.Init(func() { run(cmd) })
}
