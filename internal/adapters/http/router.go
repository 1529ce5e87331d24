package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/core/ports"
)

// Router serves the local status endpoint: liveness, a read-only session
// snapshot and Prometheus metrics. It never issues commands to the session.
type Router struct {
	session ports.SessionReader
	metrics http.Handler
	wrap    func(http.Handler) http.Handler
	logger  *slog.Logger
}

func NewRouter(session ports.SessionReader, metrics http.Handler, wrap func(http.Handler) http.Handler, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		session: session,
		metrics: metrics,
		wrap:    wrap,
		logger:  logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/session", rt.sessionSnapshot)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}

	var handler http.Handler = mux
	if rt.wrap != nil {
		handler = rt.wrap(handler)
	}
	return withRequestID(rt.logStatusRequests(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	backend := rt.session.Health()
	if backend == domain.HealthUnhealthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "backend": string(backend)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": string(backend)})
}

type sessionSnapshot struct {
	Health          domain.HealthState   `json:"health"`
	Documents       []domain.Document    `json:"documents"`
	PendingDeletes  []string             `json:"pending_deletes"`
	TranscriptTurns int                  `json:"transcript_turns"`
	UploadStatus    *domain.UploadStatus `json:"upload_status"`
	Notification    *domain.Notification `json:"notification"`
	LastError       string               `json:"last_error,omitempty"`
	Loading         bool                 `json:"loading"`
	Uploading       bool                 `json:"uploading"`
	Sending         bool                 `json:"sending"`
}

func (rt *Router) sessionSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, sessionSnapshot{
		Health:          rt.session.Health(),
		Documents:       rt.session.Documents(),
		PendingDeletes:  rt.session.PendingDeletes(),
		TranscriptTurns: len(rt.session.Transcript()),
		UploadStatus:    rt.session.UploadStatus(),
		Notification:    rt.session.Notification(),
		LastError:       rt.session.LastError(),
		Loading:         rt.session.Loading(),
		Uploading:       rt.session.Uploading(),
		Sending:         rt.session.Sending(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
