package doctor

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dtmfpad/audio"
	"dtmfpad/clipboard"
	"dtmfpad/dtmf"
	"dtmfpad/hotkey"
	"dtmfpad/keypad"
	"dtmfpad/shutdown"
)

type Options struct {
	// Device is the configured output device name, empty for the default.
	Device   string
	Playback audio.PlaybackConfig
	LogDir   string
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("dtmfpad doctor - interactive system diagnostics")
	fmt.Println("===============================================")

	checks := []func(Options) bool{
		checkOutput,
		checkHotkey,
		checkClipboard,
		checkLogDir,
	}
	allPass := true
	for _, check := range checks {
		if !check(opts) {
			allPass = false
		}
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		resetTerminal()
		fmt.Println("\nInterrupted")
		os.Exit(1)
	}()
}

func confirm(question string) bool {
	resetTerminal()
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s [y/n]: ", question)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func checkOutput(opts Options) bool {
	fmt.Println()
	fmt.Println("[1/4] Audio output")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	fmt.Printf("  %d output device(s) found\n", len(devices))

	info, err := audio.FindDevice(ctx, opts.Device)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	dev, err := ctx.Open(info, opts.Playback)
	if err != nil {
		fmt.Printf("  FAIL: cannot open output: %v\n", err)
		return false
	}
	defer dev.Close()
	fmt.Printf("  Using: %s\n", dev.Name())
	if audio.IsBluetooth(dev.Name()) {
		fmt.Println("  Warning: bluetooth output, short tones may be clipped by its latency")
	}

	pair, _ := dtmf.Lookup("5")
	var gens []audio.Generator
	for _, freq := range pair.Slice() {
		g, err := dev.NewGenerator(freq)
		if err != nil {
			fmt.Printf("  FAIL: cannot create tone: %v\n", err)
			return false
		}
		gens = append(gens, g)
	}
	fmt.Println("  Playing the '5' tone for one second...")
	audio.StartAll(gens...)
	time.Sleep(time.Second)
	for _, g := range gens {
		g.Stop()
		g.Release()
	}

	if !confirm("  Did you hear a tone?") {
		fmt.Println("  FAIL: tone not confirmed")
		return false
	}
	fmt.Println("  PASS: audio output verified by user")
	return true
}

func checkHotkey(Options) bool {
	fmt.Println()
	fmt.Println("[2/4] Hotkeys")

	msg, err := hotkey.Diagnose()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  %s\n", msg)

	l := hotkey.New()
	if err := l.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkeys: %v\n", err)
		return false
	}
	defer l.Unregister()

	fmt.Println("  Press numpad 5 or Ctrl+Shift+5...")
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev := <-l.Events():
			if ev.Kind != keypad.Press {
				continue
			}
			fmt.Printf("  PASS: hotkey detected (%s)\n", ev.Key)
			resetTerminal()
			return true
		case <-timeout:
			fmt.Println("  FAIL: timeout waiting for hotkey")
			return false
		}
	}
}

func checkClipboard(Options) bool {
	fmt.Println()
	fmt.Println("[3/4] Clipboard")

	type result struct {
		msg string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := clipboard.Verify()
		ch <- result{msg, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			fmt.Printf("  FAIL: %v\n", res.err)
			return false
		}
		fmt.Printf("  PASS: %s\n", res.msg)
		return true
	case <-time.After(3 * time.Second):
		fmt.Println("  FAIL: clipboard timed out (clipboard tool hung - compositor not accessible?)")
		return false
	}
}

func checkLogDir(opts Options) bool {
	fmt.Println()
	fmt.Println("[4/4] Log directory")

	if opts.LogDir == "" {
		fmt.Println("  FAIL: no log directory resolved")
		return false
	}
	if err := os.MkdirAll(opts.LogDir, 0755); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	probe := filepath.Join(opts.LogDir, ".doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		fmt.Printf("  FAIL: %s is not writable: %v\n", opts.LogDir, err)
		return false
	}
	os.Remove(probe)
	fmt.Printf("  PASS: logs go to %s\n", opts.LogDir)
	return true
}
