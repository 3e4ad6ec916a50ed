package session

import (
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"stock-insight/src/helpers"
	"stock-insight/src/logger"
	"stock-insight/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Store keeps the last fetched series per interactive session.
// -----------------------------------------------------------------------------

type entry struct {
	key      string
	series   *models.MPriceSeries
	lastSeen time.Time
}

type Store struct {
	TTL         time.Duration
	MaxSessions int
	MaxMemoryMB int
	Logger      *logger.Logger

	sessions map[string]*entry
	mu       sync.Mutex
	now      func() time.Time
	memoryMB func() float64
}

// -----------------------------------------------------------------------------

func NewStore(cfg models.MSessionConfig, log *logger.Logger) *Store {
	maxMem := cfg.MaxMemoryMB
	if maxMem <= 0 {
		maxMem = helpers.GetRecommendedMemoryLimit()
	}
	return &Store{
		TTL:         time.Duration(cfg.TTLMinutes) * time.Minute,
		MaxSessions: cfg.MaxSessions,
		MaxMemoryMB: maxMem,
		Logger:      log,
		sessions:    make(map[string]*entry),
		now:         time.Now,
		memoryMB:    helpers.GetProcessMemoryMB,
	}
}

// -----------------------------------------------------------------------------

// SeriesKey identifies a fetch within a session.
func SeriesKey(ticker, start, end string) string {
	return strings.ToUpper(ticker) + "|" + start + "|" + end
}

// -----------------------------------------------------------------------------

// Ensure returns id if it is a well-formed session id, otherwise a new one.
func Ensure(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewString()
}

// -----------------------------------------------------------------------------

// Get returns the cached series when the session holds the same key and has not expired.
func (s *Store) Get(sessionID, key string) (*models.MPriceSeries, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if s.expired(e) {
		delete(s.sessions, sessionID)
		return nil, false
	}
	e.lastSeen = s.now()
	if e.key != key {
		return nil, false
	}
	return e.series, true
}

// -----------------------------------------------------------------------------

// Put replaces the session's cached series, evicting the least recently used
// sessions beyond MaxSessions.
func (s *Store) Put(sessionID, key string, series *models.MPriceSeries) {
	s.mu.Lock()
	s.sessions[sessionID] = &entry{key: key, series: series, lastSeen: s.now()}
	s.evictLocked(s.MaxSessions)
	count := len(s.sessions)
	s.mu.Unlock()

	if count%16 == 0 {
		s.CheckMemoryLimits()
	}
}

// -----------------------------------------------------------------------------

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// -----------------------------------------------------------------------------

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// -----------------------------------------------------------------------------

// MemoryMB reports the current heap usage.
func (s *Store) MemoryMB() float64 {
	return s.memoryMB()
}

// -----------------------------------------------------------------------------

// CheckMemoryLimits halves the session count while the heap is over budget.
func (s *Store) CheckMemoryLimits() {
	current := s.memoryMB()
	if current <= float64(s.MaxMemoryMB) {
		return
	}

	s.mu.Lock()
	keep := len(s.sessions) / 2
	s.evictLocked(keep)
	s.mu.Unlock()

	s.Logger.Warning("Memory usage %.1fMB exceeds limit %dMB. Kept %d sessions.", current, s.MaxMemoryMB, keep)
	runtime.GC()
	debug.FreeOSMemory()
}

// -----------------------------------------------------------------------------

func (s *Store) expired(e *entry) bool {
	return s.TTL > 0 && s.now().Sub(e.lastSeen) > s.TTL
}

// evictLocked removes the oldest sessions until at most keep remain.
func (s *Store) evictLocked(keep int) {
	if keep < 0 || len(s.sessions) <= keep {
		return
	}
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.sessions[ids[i]].lastSeen.Before(s.sessions[ids[j]].lastSeen)
	})
	for _, id := range ids[:len(ids)-keep] {
		delete(s.sessions, id)
	}
}
