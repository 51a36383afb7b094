package hotkey

import (
	"encoding/binary"

	"dtmfpad/keypad"
)

// Linux input event codes, see linux/input-event-codes.h.
const (
	evKey = 1

	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2

	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54

	keyA = 30
	keyB = 48
	keyC = 46
	keyD = 32
)

const inputEventSize = 24

// numpad keys play without modifiers. A numeric keypad has no '#', so the
// slash key stands in for it.
var numpad = map[uint16]string{
	82: "0", 79: "1", 80: "2", 81: "3", 75: "4",
	76: "5", 77: "6", 71: "7", 72: "8", 73: "9",
	55: "*", 98: "#",
}

// letters need Ctrl+Shift so ordinary typing stays silent.
var letters = map[uint16]string{
	keyA: "A", keyB: "B", keyC: "C", keyD: "D",
}

// decoder tracks modifier state for one input device.
type decoder struct {
	ctrl  bool
	shift bool
	// held remembers which letter presses were emitted, so their release is
	// emitted even if a modifier went up first.
	held map[uint16]bool
}

func newDecoder() *decoder {
	return &decoder{held: make(map[uint16]bool)}
}

// feed decodes one key event. Auto-repeat never produces an event.
func (d *decoder) feed(code uint16, value int32) (keypad.Event, bool) {
	if value == keyRepeat {
		return keypad.Event{}, false
	}
	pressed := value == keyPress
	switch code {
	case keyLCtrl, keyRCtrl:
		d.ctrl = pressed
		return keypad.Event{}, false
	case keyLShift, keyRShift:
		d.shift = pressed
		return keypad.Event{}, false
	}

	if key, ok := numpad[code]; ok {
		return keyEvent(key, pressed), true
	}
	if key, ok := letters[code]; ok {
		if pressed && d.ctrl && d.shift {
			d.held[code] = true
			return keyEvent(key, true), true
		}
		if !pressed && d.held[code] {
			delete(d.held, code)
			return keyEvent(key, false), true
		}
	}
	return keypad.Event{}, false
}

// decode walks a buffer of raw input_event structs.
func (d *decoder) decode(buf []byte, emit func(keypad.Event)) {
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		evType := binary.LittleEndian.Uint16(buf[i+16:])
		evCode := binary.LittleEndian.Uint16(buf[i+18:])
		evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))
		if evType != evKey {
			continue
		}
		if ev, ok := d.feed(evCode, evValue); ok {
			emit(ev)
		}
	}
}

func keyEvent(key string, pressed bool) keypad.Event {
	kind := keypad.Release
	if pressed {
		kind = keypad.Press
	}
	return keypad.Event{Source: Source, Key: key, Kind: kind}
}
