package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/grooveboxdev/groovebox-cli/internal/player"
	"github.com/rivo/tview"
)

type StatusRenderer struct {
	engine        *player.Engine
	animFrame     int
	maxAnimFrame  int
	tickCount     int
	ticksPerFrame int

	primaryColor string
}

func NewStatusRenderer(engine *player.Engine) *StatusRenderer {
	return &StatusRenderer{
		engine:        engine,
		maxAnimFrame:  4,
		ticksPerFrame: 8, // Slow down animation (8 ticks per frame)
	}
}

func (s *StatusRenderer) SetPrimaryColor(color string) {
	s.primaryColor = color
}

func (s *StatusRenderer) AdvanceAnimation() {
	s.tickCount++
	if s.tickCount >= s.ticksPerFrame {
		s.tickCount = 0
		s.animFrame = (s.animFrame + 1) % s.maxAnimFrame
	}
}

func (s *StatusRenderer) Render() string {
	if s.engine == nil {
		return s.renderIdle(false)
	}

	status := s.engine.Status()
	switch status.State {
	case player.StatePlaying:
		return s.renderPlaying(status)
	case player.StatePaused:
		return s.renderPaused(status)
	default:
		return s.renderIdle(status.Muted)
	}
}

func (s *StatusRenderer) renderIdle(muted bool) string {
	if muted {
		return "○ IDLE │ [red]MUTED[-] │ Select a song"
	}
	return "○ IDLE │ Select a song"
}

func (s *StatusRenderer) renderPlaying(status player.Status) string {
	dots := []string{"●", "◉", "○", "◉"}
	dot := dots[s.animFrame]

	if s.primaryColor != "" {
		dot = fmt.Sprintf("[%s]%s[-]", s.primaryColor, dot)
	}

	parts := []string{dot + " PLAYING"}

	if status.Muted {
		parts = append(parts, "[red]MUTED[-]")
	}

	parts = append(parts, status.Song.Title)

	if status.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%s/%s",
			formatDuration(status.Position), formatDuration(status.Duration)))
	}

	return joinParts(parts)
}

func (s *StatusRenderer) renderPaused(status player.Status) string {
	parts := []string{PauseIcon + " PAUSED"}

	if status.Muted {
		parts = append(parts, "[red]MUTED[-]")
	}
	if status.HasSong {
		parts = append(parts, status.Song.Title)
	}

	return joinParts(parts)
}

func joinParts(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	result := parts[0]
	for i := 1; i < len(parts); i++ {
		result += " │ " + parts[i]
	}
	return result
}

func (ui *UI) getPlaybackHint(keyColor string) string {
	switch ui.engine.State() {
	case player.StatePaused:
		return fmt.Sprintf("[%s]Space[-] resume", keyColor)
	case player.StatePlaying:
		return fmt.Sprintf("[%s]Space[-] pause", keyColor)
	default:
		return fmt.Sprintf("[%s]Space[-] play", keyColor)
	}
}

func (ui *UI) getHelpText() string {
	keyColor := ui.colors.helpHotkey.String()
	playbackHint := ui.getPlaybackHint(keyColor)

	muteText := "mute"
	if ui.engine.IsMuted() {
		muteText = "unmute"
	}

	if ui.onBoardPage() {
		return fmt.Sprintf(" %s  [%s]/[-] search  [%s]u[-] upvote  [%s]x[-] leave  [%s]b[-] albums  [%s]?[-] help  [%s]q[-] quit ",
			playbackHint, keyColor, keyColor, keyColor, keyColor, keyColor, keyColor)
	}
	return fmt.Sprintf(" %s  [%s]f[-] favorite  [%s]b[-] requests  [%s]+/-[-] vol  [%s]m[-] %s  [%s]?[-] help  [%s]q[-] quit ",
		playbackHint, keyColor, keyColor, keyColor, keyColor, muteText, keyColor, keyColor)
}

// The right half shows the transient notice when one is visible, otherwise
// the playback status.
func (ui *UI) statusText() string {
	ui.mu.Lock()
	notice := ui.noticeText
	ui.mu.Unlock()

	if notice != "" {
		color := ui.colors.highlight.String()
		return fmt.Sprintf("[%s]%s[-]", color, notice)
	}
	return ui.statusRenderer.Render()
}

func (ui *UI) createFooter() *tview.Box {
	box := tview.NewBox().SetBackgroundColor(ui.colors.background)

	box.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		helpText := ui.getHelpText()
		statusText := " " + ui.statusText() + " "

		helpWidth := width / 2
		statusWidth := width - helpWidth

		for row := y; row < y+height; row++ {
			for col := x; col < x+helpWidth; col++ {
				screen.SetContent(col, row, ' ', nil, tcell.StyleDefault.Background(ui.colors.helpBackground))
			}
		}
		for row := y; row < y+height; row++ {
			for col := x + helpWidth; col < x+width; col++ {
				screen.SetContent(col, row, ' ', nil, tcell.StyleDefault.Background(ui.colors.background))
			}
		}

		centerY := y + height/2
		tview.Print(screen, helpText, x, centerY, helpWidth, tview.AlignCenter, ui.colors.helpForeground)
		tview.Print(screen, statusText, x+helpWidth, centerY, statusWidth-2, tview.AlignRight, ui.colors.foreground)

		return x, y, width, height
	})

	return box
}
