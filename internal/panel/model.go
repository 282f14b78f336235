package panel

import (
	"context"
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/lehigh-university-libraries/stitcher/internal/router"
	"github.com/lehigh-university-libraries/stitcher/internal/selection"
)

// Refresher rescans the page behind the panel
type Refresher func(ctx context.Context) (*models.Page, error)

// Actions is the part of the router the panel drives
type Actions interface {
	Stitch(ctx context.Context, req models.StitchRequest) (router.Result, error)
	Download(ctx context.Context, req models.DownloadRequest) (router.Result, error)
}

// Options configures a panel Model
type Options struct {
	Page    *models.Page
	Actions Actions
	Events  *Events
	Refresh Refresher
	// MinKB is the initial size filter; nil shows every image
	MinKB *int
}

// Model is the selection panel
type Model struct {
	ctx     context.Context
	page    *models.Page
	visible []models.ImageCandidate
	set     *selection.Set
	cursor  int

	orientation models.Orientation
	minKB       *int
	filter      textinput.Model
	editing     bool

	actions Actions
	events  *Events
	refresh Refresher

	enabled   bool
	status    string
	statusErr bool
	width     int
	quitting  bool
}

// New creates the panel for page
func New(ctx context.Context, opts Options) *Model {
	ti := textinput.New()
	ti.Placeholder = "KB, empty for no filter"
	ti.CharLimit = 8
	ti.Prompt = "Min size (KB): "

	page := opts.Page
	if page == nil {
		page = &models.Page{Title: models.DefaultBase, Host: models.DefaultBase}
	}
	events := opts.Events
	if events == nil {
		events = NewEvents()
	}

	m := &Model{
		ctx:         ctx,
		page:        page,
		set:         selection.NewSet(),
		orientation: models.Horizontal,
		minKB:       opts.MinKB,
		filter:      ti,
		actions:     opts.Actions,
		events:      events,
		refresh:     opts.Refresh,
		enabled:     true,
		width:       80,
	}
	m.applyFilter()
	return m
}

// DefaultMinKB returns a pointer to the default size filter
func DefaultMinKB() *int {
	kb := selection.DefaultMinKB
	return &kb
}

func (m *Model) Init() tea.Cmd {
	return m.events.wait()
}

// Visible returns the candidates that pass the size filter
func (m *Model) Visible() []models.ImageCandidate {
	return m.visible
}

// Chosen returns the selected candidates that pass the filter, in page order
func (m *Model) Chosen() []models.ImageCandidate {
	return m.set.Chosen(m.visible)
}

func (m *Model) Orientation() models.Orientation { return m.orientation }

// Status returns the status line and whether it reports an error
func (m *Model) Status() (string, bool) { return m.status, m.statusErr }

func (m *Model) Enabled() bool { return m.enabled }

func (m *Model) applyFilter() {
	m.visible = selection.FilterBySize(m.page.Images, m.minKB)
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

func (m *Model) filterLabel() string {
	if m.minKB == nil {
		return "all sizes"
	}
	return ">= " + strconv.Itoa(*m.minKB) + "KB"
}
