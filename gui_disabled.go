//go:build !gui

package main

func runGUI() {
	app.Fatalf("built without GUI support (rebuild with -tags gui)")
}
