package service

import (
	"sort"
	"sync"

	"currency-bridge/internal/model"
)

// tableStore держит последние maxDates дневных таблиц, самая старая дата вытесняется первой
type tableStore struct {
	mu       sync.RWMutex
	tables   map[string]*model.RateTable
	latest   string // дата последней загруженной таблицы latest
	maxDates int
}

func newTableStore(maxDates int) *tableStore {
	if maxDates <= 0 {
		maxDates = 1
	}
	return &tableStore{
		tables:   make(map[string]*model.RateTable),
		maxDates: maxDates,
	}
}

func (s *tableStore) get(date string) (*model.RateTable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[date]
	return t, ok
}

// latestTable - таблица, которую API отдал на latest; исторические даты ее не подменяют
func (s *tableStore) latestTable() (*model.RateTable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == "" {
		return nil, false
	}
	t, ok := s.tables[s.latest]
	return t, ok
}

func (s *tableStore) putLatest(t *model.RateTable) {
	s.put(t)
	s.mu.Lock()
	s.latest = t.Date
	s.mu.Unlock()
}

func (s *tableStore) put(t *model.RateTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.Date] = t
	for len(s.tables) > s.maxDates {
		oldest := ""
		for date := range s.tables {
			if oldest == "" || date < oldest {
				oldest = date
			}
		}
		delete(s.tables, oldest)
	}
}

func (s *tableStore) dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tables))
	for date := range s.tables {
		out = append(out, date)
	}
	sort.Strings(out)
	return out
}
