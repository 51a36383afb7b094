package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"dtmfpad/audio"
	"dtmfpad/clipboard"
	"dtmfpad/config"
	"dtmfpad/doctor"
	"dtmfpad/dtmf"
	"dtmfpad/encoder"
	"dtmfpad/keypad"
	"dtmfpad/log"
	"dtmfpad/shutdown"
	"dtmfpad/web"
)

var version = "dev"

var (
	app = kingpin.New("dtmfpad", "DTMF keypad whose tones always sound for a minimum length.")

	configFlag   = app.Flag("config", "YAML config file.").Short('c').Envar("DTMFPAD_CONFIG").String()
	logPathFlag  = app.Flag("logpath", "Log directory (default: OS-specific location, ./ for the current dir).").String()
	logLevelFlag = app.Flag("log-level", "Diagnostics log level.").Enum("trace", "debug", "info", "warn", "error")
	floorFlag    = app.Flag("floor", "Minimum tone length, e.g. 150ms.").Duration()
	volumeFlag   = app.Flag("volume", "Peak amplitude of a tone pair, 0..1.").Float64()
	deviceFlag   = app.Flag("device", "Output device name or ID.").String()
	hotkeysFlag  = app.Flag("hotkeys", "Register global keypad hotkeys.").Bool()

	tuiCmd = app.Command("tui", "Terminal keypad.").Default()

	serveCmd   = app.Command("serve", "Serve the web keypad.")
	listenFlag = serveCmd.Flag("listen", "Listen address.").String()

	guiCmd = app.Command("gui", "Desktop keypad window.")

	dialCmd    = app.Command("dial", "Dial a sequence. ',' pauses.")
	dialDigits = dialCmd.Arg("digits", "Keys to dial, e.g. 555,1234#.").Required().String()
	dialOut    = dialCmd.Flag("out", "Render to a FLAC file instead of playing.").Short('o').String()

	devicesCmd    = app.Command("devices", "List output devices.")
	devicesSelect = devicesCmd.Flag("select", "Pick a device interactively.").Bool()

	doctorCmd = app.Command("doctor", "Run interactive diagnostics.")

	scriptCmd = app.Command("script", "Drive the keypad from stdin with a silent device.").Hidden()

	versionCmd = app.Command("version", "Print the version.")
)

// flagsSet records which global flags were given, so only those override
// the config file.
var flagsSet struct {
	logLevel, floor, volume, device, hotkeys, listen bool
}

func init() {
	app.HelpFlag.Short('h')
	app.GetFlag("log-level").IsSetByUser(&flagsSet.logLevel)
	app.GetFlag("floor").IsSetByUser(&flagsSet.floor)
	app.GetFlag("volume").IsSetByUser(&flagsSet.volume)
	app.GetFlag("device").IsSetByUser(&flagsSet.device)
	app.GetFlag("hotkeys").IsSetByUser(&flagsSet.hotkeys)
	serveCmd.GetFlag("listen").IsSetByUser(&flagsSet.listen)
}

func parseArgs(args []string) string {
	cmd, err := app.Parse(args)
	app.FatalIfError(err, "")
	return cmd
}

func overrides() config.Overrides {
	var o config.Overrides
	if flagsSet.floor {
		ms := int(*floorFlag / time.Millisecond)
		o.FloorMS = &ms
	}
	if flagsSet.volume {
		o.Volume = volumeFlag
	}
	if flagsSet.device {
		o.Device = deviceFlag
	}
	if flagsSet.hotkeys {
		o.Hotkeys = hotkeysFlag
	}
	if flagsSet.listen {
		o.Listen = listenFlag
	}
	if flagsSet.logLevel {
		o.LogLevel = logLevelFlag
	}
	return o
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadOrDefault(config.ExpandPath(*configFlag))
	if err != nil {
		return cfg, err
	}
	overrides().Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogging resolves the log directory and, for commands that keep
// logs, opens the log files and the crash log.
func setupLogging(cfg config.Config, keep bool) error {
	dir, err := log.ResolveDir(*logPathFlag, config.ExpandPath(cfg.Log.Path))
	if err != nil {
		return fmt.Errorf("resolving log directory: %w", err)
	}
	log.SetDir(dir)
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	if !keep {
		return nil
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
		return nil
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
		crashFile.Close()
	}
	return nil
}

// run executes every command except gui, which needs the main goroutine
// for itself.
func run(cmd string) {
	cfg, err := loadConfig()
	app.FatalIfError(err, "")

	keepLogs := cmd != versionCmd.FullCommand() && cmd != devicesCmd.FullCommand()
	app.FatalIfError(setupLogging(cfg, keepLogs), "")
	defer log.Close()

	switch cmd {
	case tuiCmd.FullCommand():
		err = runTUI(cfg)
	case serveCmd.FullCommand():
		err = runServe(cfg)
	case dialCmd.FullCommand():
		err = runDial(cfg, *dialDigits, *dialOut)
	case devicesCmd.FullCommand():
		err = runDevices(*devicesSelect)
	case doctorCmd.FullCommand():
		code := doctor.Run(doctor.Options{
			Device:   cfg.Audio.Device,
			Playback: playbackConfig(cfg),
			LogDir:   log.Dir(),
		})
		log.Close()
		os.Exit(code)
	case scriptCmd.FullCommand():
		err = runScript(cfg, os.Stdin, os.Stdout)
	case versionCmd.FullCommand():
		fmt.Printf("dtmfpad %s\n", version)
	}
	if err != nil {
		log.Errorf("%s: %v", cmd, err)
		log.Close()
	}
	app.FatalIfError(err, "%s", cmd)
}

func runServe(cfg config.Config) error {
	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	s, err := openSession("web", cfg, actx)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if err := s.startHotkeys(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("hotkeys_unavailable")
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	srv := web.NewServer(s.logger, s.binding, web.ControllerState(s.ctrl), web.Config{})
	s.fanout.Add(srv.Observe)
	fmt.Printf("Keypad on http://%s/\n", cfg.Web.Listen)
	return srv.ListenAndServe(ctx, cfg.Web.Listen)
}

func runDial(cfg config.Config, digits, out string) error {
	seq := dtmf.Clean(digits)
	if seq == "" {
		return fmt.Errorf("nothing to dial in %q", digits)
	}

	if out != "" {
		data, err := encoder.RenderFLAC(seq, encoder.RenderOptions{
			SampleRate: cfg.Audio.SampleRate,
			Volume:     cfg.Tone.Volume,
			Floor:      cfg.Floor(),
			Press:      cfg.Dial.Press(),
			Gap:        cfg.Dial.Gap(),
			Pause:      cfg.Dial.Pause(),
			Logger:     log.Logger(),
		})
		if err != nil {
			return fmt.Errorf("rendering: %w", err)
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return err
		}
		log.Dialed("render", seq)
		fmt.Printf("Wrote %s (%d bytes)\n", out, len(data))
		return nil
	}

	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	s, err := openSession("dial", cfg, actx)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	const source = "dial"
	s.binding.SetVisible(source, true)
	defer s.binding.SetVisible(source, false)

	d := keypad.Dialer{
		Binding: s.binding,
		Source:  source,
		Press:   cfg.Dial.Press(),
		Gap:     cfg.Dial.Gap(),
		Pause:   cfg.Dial.Pause(),
		Tail:    cfg.Floor(),
	}
	err = d.Dial(ctx, seq)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runDevices(pick bool) error {
	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer actx.Close()

	if pick {
		dev, err := audio.SelectDevice(actx)
		if err != nil {
			return err
		}
		fmt.Printf("Selected: %s\n", dev.Name)
		fmt.Printf("Use it with --device %q or audio.device in the config file.\n", dev.Name)
		return nil
	}

	devices, err := actx.Devices()
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}
	for _, d := range devices {
		tag := ""
		if audio.IsBluetooth(d.Name) {
			tag = "  [bluetooth]"
		}
		fmt.Printf("%s\t%s%s\n", d.ID, d.Name, tag)
	}
	return nil
}

// copyDialed is shared by the terminal and desktop front ends.
func copyDialed(number string) error {
	if clipboard.Unsupported() {
		return errors.New("no clipboard available")
	}
	return clipboard.Copy(number)
}
