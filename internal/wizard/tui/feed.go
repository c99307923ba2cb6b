package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/lorasim/internal/provision"
)

// feedBuffer bounds queued events. The screen re-reads the full state after
// every operation, so a dropped event only delays a live update.
const feedBuffer = 1024

// Feed carries wizard events into the Bubble Tea loop.
type Feed struct {
	ch chan provision.Event
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{ch: make(chan provision.Event, feedBuffer)}
}

// Observer returns the provision.Observer to pass to the wizard.
func (f *Feed) Observer() provision.Observer {
	return func(ev provision.Event) {
		select {
		case f.ch <- ev:
		default:
		}
	}
}

type eventMsg provision.Event

// wait blocks until the next event arrives
func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-f.ch)
	}
}
