package state

import (
	"sort"
	"sync"
	"time"
)

// DefaultInactivity is how long a principal can stay idle before its state
// is evicted.
const DefaultInactivity = 24 * time.Hour

// Store is the keyed registry of ConversationState. It is safe for
// concurrent use across principals. All mutations go through the store so
// the eviction loop never races a writer; callers serialize work for the
// same principal.
type Store struct {
	mu     sync.RWMutex
	states map[string]*ConversationState
	now    func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		states: make(map[string]*ConversationState),
		now:    time.Now,
	}
}

// GetOrCreate returns the principal's state, creating a default one on
// first reference. Repeated calls return the same pointer.
func (s *Store) GetOrCreate(principal string) *ConversationState {
	s.mu.RLock()
	st, ok := s.states[principal]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[principal]; ok {
		return st
	}
	now := s.now()
	st = &ConversationState{
		Principal:    principal,
		LastActivity: now,
		CreatedAt:    now,
	}
	s.states[principal] = st
	return st
}

// Update applies fn to the principal's state under the store lock and
// refreshes LastActivity.
func (s *Store) Update(principal string, fn func(st *ConversationState)) {
	st := s.GetOrCreate(principal)
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(st)
	st.LastActivity = s.now()
}

// Arm makes kind the primary awaited input. Arming anything other than the
// file browser drops the upload overlay.
func (s *Store) Arm(principal string, kind AwaitKind) {
	s.Update(principal, func(st *ConversationState) {
		if kind == AwaitFileUpload {
			return
		}
		st.Await = kind
		if kind != AwaitFileBrowse {
			st.UploadTarget = ""
		}
	})
}

// EnterUpload switches on the upload overlay bound to target without
// touching the primary await.
func (s *Store) EnterUpload(principal, target string) {
	s.Update(principal, func(st *ConversationState) {
		st.UploadTarget = target
	})
}

// ClearAwaiting resets a single awaiting slot to its default.
func (s *Store) ClearAwaiting(principal string, kind AwaitKind) {
	s.Update(principal, func(st *ConversationState) {
		st.clearAwaiting(kind)
	})
}

// ClearAllAwaiting resets every awaiting slot. Lock status and browse
// navigation are left as they are.
func (s *Store) ClearAllAwaiting(principal string) {
	s.Update(principal, func(st *ConversationState) {
		st.clearAll()
	})
}

// EvictInactive removes states idle for longer than threshold and returns
// how many were removed.
func (s *Store) EvictInactive(threshold time.Duration) int {
	if threshold <= 0 {
		threshold = DefaultInactivity
	}
	cutoff := s.now().Add(-threshold)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for principal, st := range s.states {
		if st.LastActivity.Before(cutoff) {
			delete(s.states, principal)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of tracked principals.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Snapshot is a read-only summary of one principal's state.
type Snapshot struct {
	Principal    string    `json:"principal"`
	Awaiting     string    `json:"awaiting"`
	Uploading    bool      `json:"uploading"`
	CurrentPath  string    `json:"current_path,omitempty"`
	IsLocked     bool      `json:"is_locked"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// Snapshots returns summaries of all tracked principals sorted by id.
func (s *Store) Snapshots() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, Snapshot{
			Principal:    st.Principal,
			Awaiting:     st.Await.String(),
			Uploading:    st.UploadTarget != "",
			CurrentPath:  st.CurrentPath,
			IsLocked:     st.IsLocked,
			LastActivity: st.LastActivity,
			CreatedAt:    st.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Principal < out[j].Principal })
	return out
}
