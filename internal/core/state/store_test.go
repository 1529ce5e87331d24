package state

import (
	"reflect"
	"testing"
	"time"

	"github.com/kirillkom/docchat/internal/core/domain"
)

func doc(id string) domain.Document {
	return domain.Document{ID: id, Filename: id + ".pdf", FileType: domain.FileTypePDF, Status: domain.StatusProcessed}
}

func ids(docs []domain.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestApplyLoadReproducesServerSnapshot(t *testing.T) {
	s := NewStore(time.Second)
	s.ApplyUploadSuccess(doc("local"))

	since := s.BeginLoad()
	s.ApplyLoad(since, []domain.Document{doc("a"), doc("b"), doc("a"), doc("c")})

	if got := ids(s.Documents()); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("expected snapshot order without duplicates, got %v", got)
	}
	if _, ok := s.Document("local"); ok {
		t.Fatalf("expected entries absent from the snapshot to be dropped")
	}
	if s.Loading() {
		t.Fatalf("expected loading to be cleared")
	}
}

func TestApplyLoadReplaysChangesAfterSnapshotStarted(t *testing.T) {
	s := NewStore(time.Second)
	first := s.BeginLoad()
	s.ApplyLoad(first, []domain.Document{doc("a"), doc("b")})

	since := s.BeginLoad()
	if !s.Loading() {
		t.Fatalf("expected loading while a snapshot is outstanding")
	}
	s.ApplyDeleteSuccess("a")
	s.ApplyUploadSuccess(doc("c"))

	s.ApplyLoad(since, []domain.Document{doc("a"), doc("b")})

	if got := ids(s.Documents()); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("expected stale snapshot to keep newer changes, got %v", got)
	}
	if s.Generation() <= since {
		t.Fatalf("expected generation to advance past %d, got %d", since, s.Generation())
	}
}

func TestOverlappingLoadsKeepJournalUntilLastFinishes(t *testing.T) {
	s := NewStore(time.Second)
	older := s.BeginLoad()
	newer := s.BeginLoad()
	s.ApplyDeleteSuccess("a")

	s.ApplyLoad(newer, []domain.Document{doc("b")})
	s.ApplyLoad(older, []domain.Document{doc("a"), doc("b")})

	if got := ids(s.Documents()); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("expected delete to survive the older snapshot, got %v", got)
	}
	if s.Loading() {
		t.Fatalf("expected loading to be cleared")
	}
}

func TestEndLoadReleasesFailedLoad(t *testing.T) {
	s := NewStore(time.Second)
	s.BeginLoad()
	s.ApplyUploadSuccess(doc("a"))
	s.EndLoad()

	if s.Loading() {
		t.Fatalf("expected loading to be cleared")
	}
	since := s.BeginLoad()
	s.ApplyLoad(since, nil)
	if len(s.Documents()) != 0 {
		t.Fatalf("expected changes before the snapshot started to be superseded, got %v", ids(s.Documents()))
	}
}

func TestApplyUploadSuccessNeverDuplicates(t *testing.T) {
	s := NewStore(time.Second)
	s.ApplyUploadSuccess(doc("d1"))
	s.ApplyUploadSuccess(doc("d2"))

	updated := doc("d1")
	updated.ChunksCount = 12
	s.ApplyUploadSuccess(updated)

	docs := s.Documents()
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "d1" || docs[0].ChunksCount != 12 {
		t.Fatalf("expected d1 replaced in place, got %+v", docs[0])
	}
}

func TestApplyDeleteSuccessReindexes(t *testing.T) {
	s := NewStore(time.Second)
	s.ApplyLoad(s.BeginLoad(), []domain.Document{doc("a"), doc("b"), doc("c")})
	if !s.BeginDelete("a") {
		t.Fatalf("expected BeginDelete to succeed")
	}

	s.ApplyDeleteSuccess("a")

	if len(s.PendingDeletes()) != 0 {
		t.Fatalf("expected pending set to be empty, got %v", s.PendingDeletes())
	}
	if _, ok := s.Document("a"); ok {
		t.Fatalf("expected a to be removed")
	}
	got, ok := s.Document("c")
	if !ok || got.ID != "c" {
		t.Fatalf("expected c to be found after reindex, got %+v ok=%v", got, ok)
	}
	if s.DocumentCount() != 2 {
		t.Fatalf("expected 2 documents, got %d", s.DocumentCount())
	}
}

func TestBeginDeleteRejectsSameIDWhilePending(t *testing.T) {
	s := NewStore(time.Second)
	if !s.BeginDelete("a") {
		t.Fatalf("expected first BeginDelete to succeed")
	}
	if s.BeginDelete("a") {
		t.Fatalf("expected repeated BeginDelete to fail")
	}
	if !s.BeginDelete("b") {
		t.Fatalf("expected BeginDelete for another id to succeed")
	}
	if got := s.PendingDeletes(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected pending set: %v", got)
	}

	s.EndDelete("a")
	if s.IsDeleting("a") || !s.IsDeleting("b") {
		t.Fatalf("expected only b pending, got %v", s.PendingDeletes())
	}
}

func TestTranscriptIsOrderedAndImmutable(t *testing.T) {
	s := NewStore(time.Second)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	conf := 0.5

	s.AppendTranscript(domain.TranscriptEntry{ID: "1", Role: domain.RoleUser, Content: "q", CreatedAt: base})
	s.AppendTranscript(domain.TranscriptEntry{
		ID:         "2",
		Role:       domain.RoleAssistant,
		Content:    "a",
		Sources:    []string{"x.pdf"},
		Confidence: &conf,
		CreatedAt:  base.Add(-time.Minute),
	})

	entries := s.Transcript()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].CreatedAt.Before(entries[0].CreatedAt) {
		t.Fatalf("expected non-decreasing CreatedAt")
	}

	entries[1].Sources[0] = "tampered"
	*entries[1].Confidence = 0.1
	again := s.Transcript()
	if again[1].Sources[0] != "x.pdf" || *again[1].Confidence != 0.5 {
		t.Fatalf("expected stored entry to be unaffected, got %+v", again[1])
	}
}

func TestNotificationIsLastWriteWinsAndExpires(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	s.Notify(domain.NotificationSuccess, "first")
	s.Notify(domain.NotificationError, "second")

	n := s.Notification()
	if n == nil || n.Kind != domain.NotificationError || n.Message != "second" {
		t.Fatalf("expected last notification to win, got %+v", n)
	}

	deadline := time.Now().Add(time.Second)
	for s.Notification() != nil {
		if time.Now().After(deadline) {
			t.Fatalf("expected notification to expire")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDismissNotification(t *testing.T) {
	s := NewStore(time.Minute)
	s.Notify(domain.NotificationInfo, "hello")
	s.DismissNotification()
	if n := s.Notification(); n != nil {
		t.Fatalf("expected notification to be dismissed, got %+v", n)
	}
}

func TestBusyFlags(t *testing.T) {
	s := NewStore(time.Second)
	if !s.TryBeginSend() {
		t.Fatalf("expected first TryBeginSend to succeed")
	}
	if s.TryBeginSend() {
		t.Fatalf("expected second TryBeginSend to fail")
	}
	s.EndSend()
	if s.Sending() {
		t.Fatalf("expected sending to be cleared")
	}
	if !s.TryBeginSend() || !s.Sending() {
		t.Fatalf("expected send slot to be reusable")
	}
}

func TestUploadStatusReturnsCopy(t *testing.T) {
	s := NewStore(time.Second)
	d := doc("d1")
	s.SetUploadStatus(&domain.UploadStatus{Outcome: domain.UploadOutcomeSuccess, Message: "ok", Document: &d})

	got := s.UploadStatus()
	if got == nil {
		t.Fatalf("expected upload status")
	}
	got.Document.ID = "changed"
	if s.UploadStatus().Document.ID != "d1" {
		t.Fatalf("expected stored status to be unaffected")
	}
}
