// Package httpapi is a small demo HTTP façade showing how an application
// embeds this module's Queue. It is not part of the core library surface.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SirClappington/enq/client"
	"github.com/SirClappington/enq/queue"
)

// NewRouter builds a chi.Router exposing enqueue and count endpoints
// backed by q.
func NewRouter(q *queue.Queue) http.Handler {
	r := chi.NewRouter()

	r.Post("/v1/queues/{name}/jobs", enqueueHandler(q))
	r.Get("/v1/queues/{name}/jobs/counts", countsHandler(q))

	return r
}

type enqueueRequest struct {
	Payload  json.RawMessage `json:"payload"`
	Priority *int32          `json:"priority,omitempty"`
}

func enqueueHandler(q *queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var job *client.Job
		var err error
		if req.Priority != nil {
			job, err = q.Add(r.Context(), req.Payload, *req.Priority)
		} else {
			job, err = q.Add(r.Context(), req.Payload)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(job)
	}
}

func countsHandler(q *queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := q.GetJobCounts(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(counts)
	}
}
