package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type frameMsg time.Time
type playbackEndedMsg struct{}

func frameInterval(fps int) time.Duration {
	if fps < 1 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

func frameCmd(fps int) tea.Cmd {
	return tea.Tick(frameInterval(fps), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
