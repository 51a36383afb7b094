package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"dtmfpad/audio"
	"dtmfpad/config"
	"dtmfpad/keypad"
	"dtmfpad/tone"
)

const scriptSource = "script"

// lockedWriter serializes lines written from key handlers and floor timers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// runScript drives the keypad from line commands on in. Output goes to a
// silent device that writes every device and generator transition to out,
// followed by the controller's tone events:
//
//	PRESS k | RELEASE k | CANCEL k | LEAVE k   one input event
//	TAP k                                     press and release
//	DIAL digits                               dial with the configured timing
//	HIDE | SHOW                               keypad visibility
//	SLEEP ms                                  wait
//	QUIT                                      stop reading
//
// The keypad starts visible. Blank lines and lines starting with '#' are
// skipped.
func runScript(cfg config.Config, in io.Reader, out io.Writer) error {
	w := &lockedWriter{w: out}
	fake := audio.NewFakeContext()
	fake.Trace = w

	s, err := openSession(scriptSource, cfg, fake)
	if err != nil {
		return err
	}
	defer s.Close()

	s.fanout.Add(func(ev tone.Event) {
		fmt.Fprintf(w, "%s %d %s\n", ev.Kind, ev.Session, ev.Key)
	})
	s.binding.SetVisible(scriptSource, true)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		quit, err := s.scriptLine(line)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
		if quit {
			break
		}
	}
	s.binding.SetVisible(scriptSource, false)
	return sc.Err()
}

func (s *session) scriptLine(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	cmd, args := strings.ToUpper(fields[0]), fields[1:]
	arg := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%s takes one argument", cmd)
		}
		return args[0], nil
	}

	switch cmd {
	case "QUIT":
		return true, nil
	case "HIDE":
		s.binding.SetVisible(scriptSource, false)
	case "SHOW":
		s.binding.SetVisible(scriptSource, true)
	case "SLEEP":
		a, err := arg()
		if err != nil {
			return false, err
		}
		ms, err := strconv.Atoi(a)
		if err != nil || ms < 0 {
			return false, fmt.Errorf("bad SLEEP %q", a)
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
	case "TAP":
		key, err := arg()
		if err != nil {
			return false, err
		}
		s.binding.Tap(scriptSource, key)
	case "DIAL":
		digits, err := arg()
		if err != nil {
			return false, err
		}
		d := keypad.Dialer{
			Binding: s.binding,
			Source:  scriptSource,
			Press:   s.cfg.Dial.Press(),
			Gap:     s.cfg.Dial.Gap(),
			Pause:   s.cfg.Dial.Pause(),
			Tail:    s.cfg.Floor(),
		}
		return false, d.Dial(context.Background(), digits)
	default:
		kind, err := keypad.ParseKind(cmd)
		if err != nil {
			return false, err
		}
		key, err := arg()
		if err != nil {
			return false, err
		}
		s.binding.Handle(keypad.Event{Source: scriptSource, Key: key, Kind: kind})
	}
	return false, nil
}
