// Package state holds the single owned session state container. Readers get
// copies; writers go through the explicit mutation methods.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kirillkom/docchat/internal/core/domain"
)

const notificationKey = "notification"

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 5 * time.Second

type Store struct {
	mu sync.Mutex

	health     domain.HealthState
	documents  []domain.Document
	index      map[string]int
	pending    map[string]struct{}
	transcript []domain.TranscriptEntry
	upload     *domain.UploadStatus
	lastError  string

	// generation counts registry mutations. changes journals the mutations
	// made while at least one load is in flight.
	generation uint64
	changes    []registryChange
	loads      int

	sending bool

	notifications *cache.Cache
	now           func() time.Time
}

func NewStore(notificationTTL time.Duration) *Store {
	if notificationTTL <= 0 {
		notificationTTL = DefaultNotificationTTL
	}
	return &Store{
		health:        domain.HealthChecking,
		index:         make(map[string]int),
		pending:       make(map[string]struct{}),
		notifications: cache.New(notificationTTL, notificationTTL),
		now:           time.Now,
	}
}

func (s *Store) Health() domain.HealthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

func (s *Store) SetHealth(state domain.HealthState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = state
}

// Documents returns a copy of the registry in insertion order.
func (s *Store) Documents() []domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Document, len(s.documents))
	copy(out, s.documents)
	return out
}

func (s *Store) DocumentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.documents)
}

func (s *Store) Document(id string) (domain.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Document{}, false
	}
	return s.documents[i], true
}

type registryChange struct {
	generation uint64
	upload     *domain.Document
	deleted    string
}

// BeginLoad marks a list request in flight and returns the registry
// generation the snapshot will be compared against. Every BeginLoad must be
// paired with ApplyLoad or EndLoad.
func (s *Store) BeginLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.generation
}

// ApplyLoad replaces the registry with a snapshot requested at generation
// since. Uploads and deletes applied after since are replayed on top of it,
// so a slow snapshot never resurrects or drops them. Repeated ids in the
// snapshot keep their first occurrence.
func (s *Store) ApplyLoad(since uint64, docs []domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make([]domain.Document, 0, len(docs))
	s.index = make(map[string]int, len(docs))
	for _, doc := range docs {
		if _, seen := s.index[doc.ID]; seen {
			continue
		}
		s.index[doc.ID] = len(s.documents)
		s.documents = append(s.documents, doc)
	}
	for _, change := range s.changes {
		if change.generation <= since {
			continue
		}
		if change.upload != nil {
			s.upsert(*change.upload)
		} else {
			s.remove(change.deleted)
		}
	}
	s.endLoad()
}

// EndLoad releases a load that produced no snapshot.
func (s *Store) EndLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLoad()
}

func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// ApplyUploadSuccess appends doc, or replaces the entry with the same id.
func (s *Store) ApplyUploadSuccess(doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(doc)
	s.record(registryChange{upload: &doc})
}

// ApplyDeleteSuccess removes id from the registry and the pending set.
func (s *Store) ApplyDeleteSuccess(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	s.remove(id)
	s.record(registryChange{deleted: id})
}

func (s *Store) upsert(doc domain.Document) {
	if i, ok := s.index[doc.ID]; ok {
		s.documents[i] = doc
		return
	}
	s.index[doc.ID] = len(s.documents)
	s.documents = append(s.documents, doc)
}

func (s *Store) remove(id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.documents = append(s.documents[:i], s.documents[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.documents); j++ {
		s.index[s.documents[j].ID] = j
	}
}

func (s *Store) record(change registryChange) {
	s.generation++
	if s.loads == 0 {
		return
	}
	change.generation = s.generation
	s.changes = append(s.changes, change)
}

func (s *Store) endLoad() {
	if s.loads > 0 {
		s.loads--
	}
	if s.loads == 0 {
		s.changes = nil
	}
}

// BeginDelete marks id pending. It reports false if id is already pending.
func (s *Store) BeginDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; ok {
		return false
	}
	s.pending[id] = struct{}{}
	return true
}

// EndDelete drops id from the pending set without touching the registry.
func (s *Store) EndDelete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

func (s *Store) IsDeleting(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// PendingDeletes returns the pending ids sorted.
func (s *Store) PendingDeletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pending))
	for id := range s.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AppendTranscript appends entry, stamping CreatedAt so the transcript stays
// ordered by creation time even when the wall clock steps backwards.
func (s *Store) AppendTranscript(entry domain.TranscriptEntry) domain.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if n := len(s.transcript); n > 0 && entry.CreatedAt.Before(s.transcript[n-1].CreatedAt) {
		entry.CreatedAt = s.transcript[n-1].CreatedAt
	}
	entry.Sources = cloneStrings(entry.Sources)
	s.transcript = append(s.transcript, entry)
	return cloneEntry(entry)
}

func (s *Store) Transcript() []domain.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TranscriptEntry, len(s.transcript))
	for i, e := range s.transcript {
		out[i] = cloneEntry(e)
	}
	return out
}

func (s *Store) SetUploadStatus(status *domain.UploadStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upload = status
}

func (s *Store) UploadStatus() *domain.UploadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upload == nil {
		return nil
	}
	out := *s.upload
	if out.Document != nil {
		doc := *out.Document
		out.Document = &doc
	}
	return &out
}

// Notify overwrites the notification slot; it expires after the store TTL.
func (s *Store) Notify(kind domain.NotificationKind, message string) {
	s.notifications.SetDefault(notificationKey, domain.Notification{
		Kind:    kind,
		Message: message,
		ShownAt: s.now(),
	})
}

func (s *Store) Notification() *domain.Notification {
	v, ok := s.notifications.Get(notificationKey)
	if !ok {
		return nil
	}
	n := v.(domain.Notification)
	return &n
}

func (s *Store) DismissNotification() {
	s.notifications.Delete(notificationKey)
}

func (s *Store) SetLastError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = message
}

func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Loading reports whether a list request is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads > 0
}

// TryBeginSend sets the chat busy flag. It reports false if already set.
func (s *Store) TryBeginSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending {
		return false
	}
	s.sending = true
	return true
}

func (s *Store) EndSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
}

func (s *Store) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

func cloneEntry(e domain.TranscriptEntry) domain.TranscriptEntry {
	e.Sources = cloneStrings(e.Sources)
	if e.Confidence != nil {
		c := *e.Confidence
		e.Confidence = &c
	}
	return e
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
