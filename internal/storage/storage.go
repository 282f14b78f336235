package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/stitcher/internal/models"
)

// Tab is a page the daemon has injected into
type Tab struct {
	ID         int          `json:"tabId"`
	URL        string       `json:"pageUrl"`
	Page       *models.Page `json:"page,omitempty"`
	InjectedAt time.Time    `json:"injectedAt"`
	PanelShown bool         `json:"panelShown"`
}

// TabStore holds the injected tabs
type TabStore struct {
	tabs map[int]*Tab
	mu   sync.RWMutex
}

func NewTabStore() *TabStore {
	return &TabStore{
		tabs: make(map[int]*Tab),
	}
}

// Get returns a copy of the tab, safe to read after the lock is released
func (s *TabStore) Get(tabID int) (Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tab, exists := s.tabs[tabID]
	if !exists {
		return Tab{}, false
	}
	return *tab, true
}

func (s *TabStore) Set(tab *Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab.ID] = tab
}

// Update applies fn to the stored tab under the write lock
func (s *TabStore) Update(tabID int, fn func(*Tab)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	tab, exists := s.tabs[tabID]
	if !exists {
		return false
	}
	fn(tab)
	return true
}

// GetAll returns copies of the tabs ordered by id
func (s *TabStore) GetAll() []Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Tab, 0, len(s.tabs))
	for _, v := range s.tabs {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (s *TabStore) Delete(tabID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tabs, tabID)
}

// Job is the outcome of one handled action message
type Job struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Images     int       `json:"images"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	Saved      []string  `json:"saved,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMS int64     `json:"durationMs"`
}

// DefaultJobHistory is the number of jobs kept when none is configured
const DefaultJobHistory = 100

// JobStore keeps the most recent jobs, oldest first
type JobStore struct {
	jobs  []*Job
	limit int
	mu    sync.RWMutex
}

func NewJobStore(limit int) *JobStore {
	if limit <= 0 {
		limit = DefaultJobHistory
	}
	return &JobStore{limit: limit}
}

// Add records job and drops the oldest entry beyond the limit
func (s *JobStore) Add(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	if over := len(s.jobs) - s.limit; over > 0 {
		s.jobs = append([]*Job(nil), s.jobs[over:]...)
	}
}

func (s *JobStore) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return nil, false
}

func (s *JobStore) GetAll() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Job(nil), s.jobs...)
}
