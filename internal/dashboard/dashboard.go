// Package dashboard serves the loaded dataset as a read-only JSON API for
// the external dashboard renderer.
package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hal9000y/mailthread/internal/config"
	"github.com/hal9000y/mailthread/internal/metrics"
	"github.com/hal9000y/mailthread/internal/search"
)

type dataset interface {
	Stats() search.Stats
	Thread(id string) (search.ThreadView, error)
	Search(q search.Query) []search.Hit
	Ancestors(threadID string, row int) ([]search.Row, error)
	Descendants(threadID string, row int) ([]search.Row, error)
}

// SearchResponse is the body of /api/search.
type SearchResponse struct {
	Hits  []search.Hit `json:"hits"`
	Total int          `json:"total"`
}

// RowsResponse is the body of the ancestors and descendants endpoints.
type RowsResponse struct {
	Rows []search.Row `json:"rows"`
}

// ErrorResponse is returned with every non 2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler routes the /api endpoints.
type Handler struct {
	mux     *http.ServeMux
	ds      dataset
	loadErr error
	p       config.PresentationConfig
	log     *zap.Logger
}

// New returns a Handler over ds. When loadErr is set the dataset is ignored
// and every endpoint answers 503 with the load error.
func New(ds dataset, loadErr error, p config.PresentationConfig, log *zap.Logger) *Handler {
	h := &Handler{
		mux:     http.NewServeMux(),
		ds:      ds,
		loadErr: loadErr,
		p:       p,
		log:     log,
	}

	h.mux.HandleFunc("GET /api/stats", h.stats)
	h.mux.HandleFunc("GET /api/threads/{id}", h.thread)
	h.mux.HandleFunc("GET /api/threads/{id}/rows/{row}/ancestors", h.ancestors)
	h.mux.HandleFunc("GET /api/threads/{id}/rows/{row}/descendants", h.descendants)
	h.mux.HandleFunc("GET /api/search", h.search)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.loadErr != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: h.loadErr.Error()})
		return
	}

	h.mux.ServeHTTP(w, r)
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ds.Stats())
}

func (h *Handler) thread(w http.ResponseWriter, r *http.Request) {
	view, err := h.ds.Thread(r.PathValue("id"))
	metrics.Query(metrics.OpThread, err)
	if err != nil {
		h.writeError(w, err)
		return
	}

	view.Messages = h.present(view.Messages)
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := search.Query{
		Text:     params.Get("q"),
		Token:    params.Get("token"),
		ThreadID: params.Get("thread"),
		Limit:    h.p.MaxResults,
	}

	if v := params.Get("fuzzy"); v != "" {
		fuzzy, err := strconv.ParseBool(v)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "fuzzy must be a boolean"})
			return
		}
		q.Fuzzy = fuzzy
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		if h.p.MaxResults <= 0 || limit < h.p.MaxResults {
			q.Limit = limit
		}
	}

	hits := h.ds.Search(q)
	metrics.Query(metrics.OpSearch, nil)

	for i := range hits {
		if h.p.MaskEmails {
			hits[i].Row = hits[i].Row.Masked()
		}
	}
	if hits == nil {
		hits = []search.Hit{}
	}

	h.writeJSON(w, http.StatusOK, SearchResponse{Hits: hits, Total: len(hits)})
}

func (h *Handler) ancestors(w http.ResponseWriter, r *http.Request) {
	h.walk(w, r, metrics.OpAncestors, h.ds.Ancestors)
}

func (h *Handler) descendants(w http.ResponseWriter, r *http.Request) {
	h.walk(w, r, metrics.OpDescendants, h.ds.Descendants)
}

func (h *Handler) walk(w http.ResponseWriter, r *http.Request, op string, fn func(string, int) ([]search.Row, error)) {
	row, err := strconv.Atoi(r.PathValue("row"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "row must be an integer"})
		return
	}

	rows, err := fn(r.PathValue("id"), row)
	metrics.Query(op, err)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, RowsResponse{Rows: h.present(rows)})
}

func (h *Handler) present(rows []search.Row) []search.Row {
	if rows == nil {
		return []search.Row{}
	}
	if !h.p.MaskEmails {
		return rows
	}

	out := make([]search.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Masked()
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, search.ErrThreadNotFound) || errors.Is(err, search.ErrRowNotFound) {
		status = http.StatusNotFound
	}

	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("json.Encode failed", zap.Error(err))
	}
}
