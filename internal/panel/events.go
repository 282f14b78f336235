package panel

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/lehigh-university-libraries/stitcher/internal/router"
)

type controlsMsg struct {
	enabled bool
}

type statusMsg struct {
	text    string
	isError bool
}

type actionDoneMsg struct {
	result router.Result
	err    error
}

type pageMsg struct {
	page *models.Page
	err  error
}

// Events carries router callbacks, which arrive on the action's
// goroutine, into the bubbletea update loop
type Events struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

func NewEvents() *Events {
	return &Events{ch: make(chan tea.Msg, 64), done: make(chan struct{})}
}

// Close stops delivery. Later callbacks are dropped instead of blocking
// the router once nothing reads them.
func (e *Events) Close() {
	e.once.Do(func() { close(e.done) })
}

// SetEnabled implements router.Controls
func (e *Events) SetEnabled(enabled bool) {
	e.send(controlsMsg{enabled: enabled})
}

// SetStatus implements router.StatusReporter
func (e *Events) SetStatus(text string, isError bool) {
	e.send(statusMsg{text: text, isError: isError})
}

func (e *Events) send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	case <-e.done:
	}
}

func (e *Events) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-e.ch:
			return msg
		case <-e.done:
			return nil
		}
	}
}
