package domain

// Event is an outcome produced by an orchestrator and applied by the session
// dispatcher. Orchestrators never mutate shared state themselves.
type Event interface {
	EventName() string
}

type UploadIgnored struct{}

// UploadStarted is emitted once an attempt has claimed the upload slot.
type UploadStarted struct {
	Filename string `json:"filename"`
}

type UploadRejected struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

type UploadSucceeded struct {
	Document Document `json:"document"`
	Message  string   `json:"message"`
}

type UploadFailed struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

type DocumentsLoaded struct {
	Documents []Document `json:"documents"`
	// Since is the registry generation observed when the request started.
	Since uint64 `json:"-"`
}

type DocumentsLoadFailed struct {
	Message string `json:"message"`
}

type DeleteSucceeded struct {
	DocumentID string `json:"document_id"`
}

type DeleteFailed struct {
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
}

type MessageAnswered struct {
	Question TranscriptEntry `json:"question"`
	Answer   TranscriptEntry `json:"answer"`
}

type MessageFailed struct {
	Question TranscriptEntry `json:"question"`
	Failure  TranscriptEntry `json:"failure"`
}

type HealthChanged struct {
	State HealthState `json:"state"`
}

func (UploadIgnored) EventName() string       { return "upload.ignored" }
func (UploadStarted) EventName() string       { return "upload.started" }
func (UploadRejected) EventName() string      { return "upload.rejected" }
func (UploadSucceeded) EventName() string     { return "upload.succeeded" }
func (UploadFailed) EventName() string        { return "upload.failed" }
func (DocumentsLoaded) EventName() string     { return "documents.loaded" }
func (DocumentsLoadFailed) EventName() string { return "documents.load_failed" }
func (DeleteSucceeded) EventName() string     { return "delete.succeeded" }
func (DeleteFailed) EventName() string        { return "delete.failed" }
func (MessageAnswered) EventName() string     { return "chat.answered" }
func (MessageFailed) EventName() string       { return "chat.failed" }
func (HealthChanged) EventName() string       { return "health.changed" }
