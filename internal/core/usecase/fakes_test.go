package usecase

import (
	"context"
	"sync"

	"github.com/kirillkom/docchat/internal/core/domain"
)

type backendFake struct {
	mu sync.Mutex

	healthErr error

	uploadDoc     domain.Document
	uploadErr     error
	uploadStarted chan struct{}
	uploadRelease chan struct{}
	uploads       []string

	listDocs    []domain.Document
	listErr     error
	listStarted chan struct{}
	listRelease chan struct{}
	lists       int

	deleteErr     map[string]error
	deleteStarted chan string
	deleteRelease chan struct{}
	deleted       []string

	reply       domain.ChatReply
	chatErr     error
	chatStarted chan struct{}
	chatRelease chan struct{}
	chats       []string
	scopes      [][]string
}

func (f *backendFake) CheckHealth(context.Context) error {
	return f.healthErr
}

func (f *backendFake) UploadDocument(_ context.Context, file domain.UploadFile) (domain.Document, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, file.Name)
	started, release := f.uploadStarted, f.uploadRelease
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if f.uploadErr != nil {
		return domain.Document{}, f.uploadErr
	}
	return f.uploadDoc, nil
}

// ListDocuments captures the snapshot before blocking on listRelease, so a
// gated call returns what the server held when the request started.
func (f *backendFake) ListDocuments(context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	f.lists++
	snapshot := append([]domain.Document(nil), f.listDocs...)
	err := f.listErr
	started, release := f.listStarted, f.listRelease
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (f *backendFake) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *backendFake) gateList() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listStarted = make(chan struct{}, 1)
	f.listRelease = make(chan struct{})
}

func (f *backendFake) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	started, release := f.deleteStarted, f.deleteRelease
	err := f.deleteErr[id]
	f.mu.Unlock()

	if started != nil {
		started <- id
	}
	if release != nil {
		<-release
	}
	return err
}

func (f *backendFake) SendMessage(_ context.Context, message string, documentIDs []string) (domain.ChatReply, error) {
	f.mu.Lock()
	f.chats = append(f.chats, message)
	f.scopes = append(f.scopes, documentIDs)
	started, release := f.chatStarted, f.chatRelease
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if f.chatErr != nil {
		return domain.ChatReply{}, f.chatErr
	}
	return f.reply, nil
}

func (f *backendFake) calls() (uploads, deletes, chats int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads), len(f.deleted), len(f.chats)
}

type confirmFake struct {
	answer  bool
	prompts []string
}

func (f *confirmFake) Confirm(_ context.Context, prompt string) bool {
	f.prompts = append(f.prompts, prompt)
	return f.answer
}

type sinkFake struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *sinkFake) Publish(_ context.Context, event domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event.EventName())
	return f.err
}

type recorderFake struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *recorderFake) RecordEvent(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[name]++
}

func pdf(name string, size int64) domain.UploadFile {
	return domain.UploadFile{Name: name, Size: size}
}
