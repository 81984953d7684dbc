package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type RecordingStartMsg struct{}
type RecordingStopMsg struct{}
type RecordingTickMsg struct{ Duration float64 }
type AudioLevelMsg struct{ Level float64 }
type TranscriptionMsg struct {
	Text   string
	Copied bool
}
type StageMsg struct{ Text string }  // "transcribing", "rewriting", ""
type ModeLineMsg struct{ Text string }
type DeviceLineMsg struct{ Text string }
type ErrorMsg struct{ Text string }
type tickMsg time.Time

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
)

type tuiModel struct {
	state             tuiState
	frame             int
	recordingDuration float64
	audioLevel        float64
	peakLevel         float64
	msgCount          int
	width, height     int
	stage             string
	modeLine          string
	deviceLine        string
	lastText          string
	lastErr           string
	copied            bool
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	styleRec     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleStandby = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleStage   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleMode    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleText    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleCopied  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	barColors    = []string{"22", "28", "34", "40", "46", "82", "118", "154", "190", "226", "220", "214", "208", "202", "196"}
	barStyles    []lipgloss.Style
)

func init() {
	for _, c := range barColors {
		barStyles = append(barStyles, lipgloss.NewStyle().Foreground(lipgloss.Color(c)))
	}
}

func NewTUIProgram() *tea.Program {
	return tea.NewProgram(tuiModel{}, tea.WithAltScreen())
}

func sendTUI(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case RecordingStartMsg:
		m.state = tuiStateRecording
		m.recordingDuration = 0
		m.audioLevel = 0
		m.peakLevel = 0
		m.lastErr = ""

	case RecordingStopMsg:
		m.state = tuiStateIdle
		m.audioLevel = 0

	case RecordingTickMsg:
		m.recordingDuration = msg.Duration

	case AudioLevelMsg:
		if m.state == tuiStateRecording {
			// Smooth toward the incoming level so the bar doesn't jitter.
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			if msg.Level > m.peakLevel {
				m.peakLevel = msg.Level
			}
		}

	case StageMsg:
		m.stage = msg.Text

	case TranscriptionMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.copied = msg.Copied
		m.stage = ""

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case ErrorMsg:
		m.lastErr = msg.Text
		m.stage = ""
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string

	if m.state == tuiStateRecording {
		lines = append(lines, styleRec.Render(fmt.Sprintf("● REC %.1fs", m.recordingDuration)))
		lines = append(lines, renderLevelBar(m.audioLevel, 30))
		if m.recordingDuration > 1.0 && m.peakLevel < 0.02 {
			lines = append(lines, styleErr.Render("⚠ no voice detected"))
		}
	} else {
		lines = append(lines, styleStandby.Render("○ STANDBY"))
		lines = append(lines, renderLevelBar(0, 30))
	}

	if m.stage != "" {
		lines = append(lines, styleStage.Render(m.stage+"…"))
	}
	lines = append(lines, "")

	if m.modeLine != "" {
		lines = append(lines, styleMode.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, styleDim.Render(m.deviceLine))
	}
	lines = append(lines, "")

	wrapWidth := m.width - 4
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	if m.lastText != "" {
		lines = append(lines, styleDim.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)))
		for i, line := range wrapText(m.lastText, wrapWidth) {
			rendered := styleText.Render(line)
			if i == 0 && m.copied {
				rendered += " " + styleCopied.Render("[✓ copied]")
			}
			lines = append(lines, rendered)
		}
	} else {
		lines = append(lines, styleDim.Render("No transcriptions yet"))
	}
	if m.lastErr != "" {
		lines = append(lines, "")
		lines = append(lines, styleErr.Render("⚠ "+m.lastErr))
	}

	lines = append(lines, "")
	lines = append(lines, styleHelp.Bold(true).Render(holdKeyLabel)+styleHelp.Render(" to talk"))
	lines = append(lines, styleHelp.Render("murmur "+version))

	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

// renderLevelBar draws the capture intensity as a colored capsule.
func renderLevelBar(level float64, width int) string {
	filled := int(level * float64(width))
	if filled > width {
		filled = width
	}
	var b strings.Builder
	b.WriteString("▕")
	for i := 0; i < width; i++ {
		if i < filled {
			ci := i * len(barStyles) / width
			b.WriteString(barStyles[ci].Render("█"))
		} else {
			b.WriteString(styleDim.Render("·"))
		}
	}
	b.WriteString("▏")
	return b.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
