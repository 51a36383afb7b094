package keypad

import (
	"context"
	"time"

	"dtmfpad/dtmf"
)

const (
	DefaultPress = 100 * time.Millisecond
	DefaultGap   = 50 * time.Millisecond
	DefaultPause = 2 * time.Second
)

// Dialer plays a dial string through a Binding as if the keys were pressed
// one after the other. ',' pauses.
type Dialer struct {
	Binding *Binding
	Source  string
	Press   time.Duration
	Gap     time.Duration
	Pause   time.Duration
	// Tail is waited after the last release so the final tone can finish
	// before the caller tears the device down.
	Tail time.Duration
}

func (d *Dialer) Dial(ctx context.Context, digits string) error {
	source := d.Source
	if source == "" {
		source = "dial"
	}
	for _, r := range dtmf.Clean(digits) {
		if r == ',' {
			if err := sleep(ctx, d.Pause); err != nil {
				return err
			}
			continue
		}
		key := string(r)
		d.Binding.Handle(Event{Source: source, Key: key, Kind: Press})
		err := sleep(ctx, d.Press)
		d.Binding.Handle(Event{Source: source, Key: key, Kind: Release})
		if err != nil {
			return err
		}
		if err := sleep(ctx, d.Gap); err != nil {
			return err
		}
	}
	return sleep(ctx, d.Tail)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
