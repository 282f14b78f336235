package panel

import (
	"log/slog"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/lehigh-university-libraries/stitcher/internal/router"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case controlsMsg:
		m.enabled = msg.enabled
		return m, m.events.wait()

	case statusMsg:
		m.status, m.statusErr = msg.text, msg.isError
		return m, m.events.wait()

	case actionDoneMsg:
		if msg.err != nil {
			slog.Debug("Panel action failed", "action", msg.result.Action, "state", msg.result.State, "err", msg.err)
			return m, nil
		}
		slog.Debug("Panel action finished", "action", msg.result.Action, "fallback", msg.result.UsedFallback)
		return m, nil

	case pageMsg:
		if msg.err != nil {
			m.status, m.statusErr = router.Describe(msg.err, "Refresh failed"), true
			return m, nil
		}
		m.page = msg.page
		m.set.Reset()
		m.applyFilter()
		m.status, m.statusErr = "Found "+strconv.Itoa(len(m.page.Images))+" images", false
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateFilterInput(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case " ", "x":
		if m.cursor < len(m.visible) {
			m.set.Toggle(m.visible[m.cursor].Src)
		}
	case "a":
		m.toggleAll()

	case "h":
		m.orientation = models.Horizontal
	case "v":
		m.orientation = models.Vertical

	case "f":
		m.editing = true
		if m.minKB != nil {
			m.filter.SetValue(strconv.Itoa(*m.minKB))
		} else {
			m.filter.SetValue("")
		}
		return m, m.filter.Focus()

	case "r":
		return m, m.refreshCmd()
	case "m":
		return m, m.stitchCmd()
	case "d":
		return m, m.downloadCmd()
	}
	return m, nil
}

// toggleAll selects every visible image, or clears them when all are
// already selected
func (m *Model) toggleAll() {
	for _, c := range m.visible {
		if !m.set.Contains(c.Src) {
			m.set.SelectAll(m.visible)
			return
		}
	}
	m.set.Clear(m.visible)
}

func (m *Model) updateFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		value := strings.TrimSpace(m.filter.Value())
		if value == "" {
			m.minKB = nil
		} else {
			kb, err := strconv.Atoi(value)
			if err != nil || kb < 0 {
				m.status, m.statusErr = "Invalid size filter: "+value, true
				return m, nil
			}
			m.minKB = &kb
		}
		m.editing = false
		m.filter.Blur()
		m.applyFilter()
		return m, nil

	case tea.KeyEsc:
		m.editing = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m *Model) stitchCmd() tea.Cmd {
	if !m.enabled || m.actions == nil {
		return nil
	}
	req := models.StitchRequest{
		Images:      m.Chosen(),
		Orientation: m.orientation,
		PageTitle:   m.page.Title,
		PageHost:    m.page.Host,
	}
	return func() tea.Msg {
		res, err := m.actions.Stitch(m.ctx, req)
		return actionDoneMsg{result: res, err: err}
	}
}

func (m *Model) downloadCmd() tea.Cmd {
	if !m.enabled || m.actions == nil {
		return nil
	}
	req := models.DownloadRequest{
		Images:    m.Chosen(),
		PageTitle: m.page.Title,
		PageHost:  m.page.Host,
	}
	return func() tea.Msg {
		res, err := m.actions.Download(m.ctx, req)
		return actionDoneMsg{result: res, err: err}
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	if m.refresh == nil {
		return nil
	}
	m.status, m.statusErr = "Refreshing...", false
	return func() tea.Msg {
		page, err := m.refresh(m.ctx)
		return pageMsg{page: page, err: err}
	}
}
