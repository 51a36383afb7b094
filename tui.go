package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dtmfpad/audio"
	"dtmfpad/config"
	"dtmfpad/dtmf"
	"dtmfpad/keypad"
	"dtmfpad/log"
	"dtmfpad/shutdown"
	"dtmfpad/tone"
)

const tuiSource = "tui"

// Keypad geometry in terminal cells. Keys are keyW x keyH blocks with one
// blank column and one blank line between them.
const (
	padLeft = 2
	padTop  = 4
	keyW    = 7
	keyH    = 3
)

type toneMsg struct{ ev tone.Event }

type tuiKeypad interface {
	Handle(keypad.Event)
	Tap(source, key string)
	SetVisible(source string, visible bool)
	Dialed() string
	ResetDialed() string
}

type tuiModel struct {
	kp     tuiKeypad
	copy   func(string) error
	device string

	held     string // key under a held mouse button
	sounding string
	session  uint64 // session of the last ToneStarted
	pair     dtmf.Pair
	note     string
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	displayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldHelp     = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	keyBase     = lipgloss.NewStyle().Width(keyW).Align(lipgloss.Center).Foreground(lipgloss.Color("252"))
	keyIdle     = keyBase.Background(lipgloss.Color("236"))
	keyLetter   = keyBase.Background(lipgloss.Color("17"))
	keyHeld     = keyBase.Background(lipgloss.Color("240"))
	keySounding = keyBase.Background(lipgloss.Color("208")).Foreground(lipgloss.Color("16")).Bold(true)
)

func newTUIModel(kp tuiKeypad, copyFn func(string) error, device string) tuiModel {
	return tuiModel{kp: kp, copy: copyFn, device: device}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

// keyAt maps a terminal cell to the key drawn there, or "".
func keyAt(x, y int) string {
	x -= padLeft
	y -= padTop
	if x < 0 || y < 0 {
		return ""
	}
	col, cx := x/(keyW+1), x%(keyW+1)
	row, cy := y/(keyH+1), y%(keyH+1)
	if cx == keyW || cy == keyH {
		return ""
	}
	rows := dtmf.Rows()
	if row >= len(rows) || col >= len(rows[row]) {
		return ""
	}
	return rows[row][col]
}

func (m tuiModel) send(kind keypad.Kind, key string) {
	m.kp.Handle(keypad.Event{Source: tuiSource, Key: key, Kind: kind})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.MouseMsg:
		return m.mouse(msg), nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		case "y":
			m.note = m.copyDialed()
			return m, nil
		case "x":
			m.kp.ResetDialed()
			m.note = ""
			return m, nil
		}
		if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
			// The terminal reports no key-up, so keys are taps.
			if key := dtmf.Normalize(string(msg.Runes)); key != "" {
				m.kp.Tap(tuiSource, key)
				m.note = ""
			}
		}

	case tea.FocusMsg:
		m.kp.SetVisible(tuiSource, true)

	case tea.BlurMsg:
		m.held = ""
		m.kp.SetVisible(tuiSource, false)

	case toneMsg:
		switch {
		case msg.ev.Kind == tone.ToneStarted:
			m.sounding = msg.ev.Key
			m.session = msg.ev.Session
			m.pair = msg.ev.Pair
		case msg.ev.Session == m.session:
			m.sounding = ""
		}
	}
	return m, nil
}

func (m tuiModel) mouse(msg tea.MouseMsg) tuiModel {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m
		}
		if key := keyAt(msg.X, msg.Y); key != "" {
			m.held = key
			m.note = ""
			m.send(keypad.Press, key)
		}
	case tea.MouseActionMotion:
		if m.held != "" && keyAt(msg.X, msg.Y) != m.held {
			m.send(keypad.Leave, m.held)
			m.held = ""
		}
	case tea.MouseActionRelease:
		if m.held != "" {
			m.send(keypad.Release, m.held)
			m.held = ""
		}
	}
	return m
}

func (m tuiModel) copyDialed() string {
	number := m.kp.Dialed()
	if number == "" {
		return "nothing dialed yet"
	}
	if m.copy == nil {
		return "no clipboard"
	}
	if err := m.copy(number); err != nil {
		log.Warnf("copy failed: %v", err)
		return "copy failed: " + err.Error()
	}
	return "copied " + number
}

func (m tuiModel) View() string {
	indent := strings.Repeat(" ", padLeft)
	var b strings.Builder

	// Header: exactly padTop lines.
	b.WriteString(indent + titleStyle.Render("dtmfpad") + dimStyle.Render(" "+version) + "\n")
	dialed := m.kp.Dialed()
	if dialed == "" {
		b.WriteString(indent + dimStyle.Render("> ") + "\n")
	} else {
		b.WriteString(indent + dimStyle.Render("> ") + displayStyle.Render(dialed) + "\n")
	}
	if m.sounding != "" {
		b.WriteString(indent + noteStyle.Render(fmt.Sprintf("♪ %s  %.0f + %.0f Hz", m.sounding, m.pair.Low, m.pair.High)) + "\n")
	} else {
		b.WriteString(indent + dimStyle.Render("○ idle") + "\n")
	}
	b.WriteString("\n")

	for r, row := range dtmf.Rows() {
		for line := 0; line < keyH; line++ {
			b.WriteString(indent)
			for _, key := range row {
				label := ""
				if line == keyH/2 {
					label = key
				}
				b.WriteString(m.keyStyle(key).Render(label) + " ")
			}
			b.WriteString("\n")
		}
		if r < 3 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.note != "" {
		b.WriteString(indent + noteStyle.Render(m.note) + "\n")
	}
	b.WriteString(indent + boldHelp.Render("click/hold") + helpStyle.Render(" or type keys  ") +
		boldHelp.Render("y") + helpStyle.Render(" copy  ") +
		boldHelp.Render("x") + helpStyle.Render(" clear  ") +
		boldHelp.Render("q") + helpStyle.Render(" quit") + "\n")
	b.WriteString(indent + dimStyle.Render("out: "+m.device) + "\n")
	return b.String()
}

func (m tuiModel) keyStyle(key string) lipgloss.Style {
	switch {
	case key == m.sounding:
		return keySounding
	case key == m.held:
		return keyHeld
	case key >= "A" && key <= "D":
		return keyLetter
	}
	return keyIdle
}

func runTUI(cfg config.Config) error {
	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	s, err := openSession(tuiSource, cfg, actx)
	if err != nil {
		return err
	}
	defer s.Close()

	device := "system default"
	if s.device != nil {
		device = s.device.Name
	}
	p := tea.NewProgram(newTUIModel(s.binding, copyDialed, device),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)

	// p.Send blocks until the program reads the message, and observers run
	// inside key handlers, so events go through a buffer.
	events := make(chan tone.Event, 64)
	s.fanout.Add(func(ev tone.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case ev := <-events:
				p.Send(toneMsg{ev})
			case <-done:
				return
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	shutdown.Notify(sig)
	go func() {
		select {
		case <-sig:
			p.Quit()
		case <-done:
		}
	}()

	if err := s.startHotkeys(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("hotkeys_unavailable")
	}

	// Terminals without focus reporting never send FocusMsg.
	s.binding.SetVisible(tuiSource, true)
	defer s.binding.SetVisible(tuiSource, false)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}
