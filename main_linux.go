//go:build linux

package main

import "os"

func main() {
	cmd := parseArgs(os.Args[1:])
	if cmd == guiCmd.FullCommand() {
		runGUI()
		return
	}
	run(cmd)
}
