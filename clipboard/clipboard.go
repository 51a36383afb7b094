// Package clipboard copies the dialed number to the system clipboard.
package clipboard

import (
	"fmt"

	cb "github.com/atotto/clipboard"
)

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

func Unsupported() bool {
	return cb.Unsupported
}

// Verify writes a probe to the clipboard, reads it back and restores the
// previous contents.
func Verify() (string, error) {
	if cb.Unsupported {
		return "", fmt.Errorf("no clipboard utility found (install xclip, xsel or wl-clipboard)")
	}
	prev, _ := cb.ReadAll()
	const probe = "dtmfpad-clipboard-check"
	if err := cb.WriteAll(probe); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	got, err := cb.ReadAll()
	if prev != "" {
		_ = cb.WriteAll(prev)
	}
	if err != nil {
		return "", fmt.Errorf("read back: %w", err)
	}
	if got != probe {
		return "", fmt.Errorf("read back %q, want %q", got, probe)
	}
	return "clipboard read/write OK", nil
}
