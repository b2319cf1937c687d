package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/prbuf/pkg/codec"
	"github.com/ssargent/prbuf/pkg/collector"
	"github.com/ssargent/prbuf/pkg/inspect"
)

const defaultMaxBodyBytes = 1 << 20

// Server holds the API server state
type Server struct {
	store   EntryStore
	config  ServerConfig
	metrics *Metrics
	log     *zap.Logger
}

// NewServer creates a new API server
func NewServer(store EntryStore, config ServerConfig, metrics *Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Server{
		store:   store,
		config:  config,
		metrics: metrics,
		log:     log,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleAppend godoc
//
//	@Summary		Append an entry
//	@Description	Store the request body as a new entry, evicting the oldest entries if needed
//	@Tags			entries
//	@Accept			octet-stream
//	@Produce		json
//	@Param			kind	query		string	false	"Entry kind (stack, sample, log, mark); default log"
//	@Param			body	body		[]byte	true	"Entry body"
//	@Success		200		{object}	AppendResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		413		{object}	map[string]string
//	@Router			/entries [post]
//	@Security		ApiKeyAuth
func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	kind := codec.KindLog
	if k := r.URL.Query().Get("kind"); k != "" {
		parsed, err := codec.ParseKind(k)
		if err != nil {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		kind = parsed
	}

	limit := s.config.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(limit)))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("Body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	id, err := s.store.Append(kind, body)
	switch {
	case errors.Is(err, collector.ErrBodyTooLarge), errors.Is(err, collector.ErrNoSpace):
		sendError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		s.log.Error("append failed", zap.Error(err))
		sendError(w, "Failed to append entry", http.StatusInternalServerError)
		return
	}

	sendSuccess(w, AppendResponse{ID: id.String(), Kind: kind.String(), Size: len(body)})
}

// handleListEntries godoc
//
//	@Summary		List entries
//	@Description	Decode a snapshot of the ring buffer and return its entries, oldest first
//	@Tags			entries
//	@Produce		json
//	@Param			kind	query		string	false	"Only entries of this kind"
//	@Param			limit	query		int		false	"Return only the newest N entries"
//	@Success		200		{array}		inspect.EntryView
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/entries [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	var kind codec.Kind
	if k := r.URL.Query().Get("kind"); k != "" {
		parsed, err := codec.ParseKind(k)
		if err != nil {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		kind = parsed
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			sendError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	report, ok := s.readSnapshot(w)
	if !ok {
		return
	}
	entries := report.Filter(kind)
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	sendSuccess(w, inspect.Views(entries))
}

// handleGetEntry godoc
//
//	@Summary		Get an entry
//	@Description	Find one entry by id in a snapshot of the ring buffer
//	@Tags			entries
//	@Produce		json
//	@Param			id	path		string	true	"Entry KSUID"
//	@Success		200	{object}	inspect.EntryView
//	@Failure		400	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/entries/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	report, ok := s.readSnapshot(w)
	if !ok {
		return
	}
	for _, e := range report.Entries {
		if e.ID == id {
			sendSuccess(w, inspect.View(e))
			return
		}
	}
	sendError(w, "Entry not found", http.StatusNotFound)
}

// handleStats godoc
//
//	@Summary		Get ring buffer statistics
//	@Description	Cursor positions, occupancy and evictions since the collector started
//	@Tags			diagnostics
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Router			/stats [get]
//	@Security		ApiKeyAuth
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.store.Stats()
	sendSuccess(w, StatsResponse{
		Size:      st.Size,
		Capacity:  st.Capacity,
		Used:      st.Used,
		Begin:     st.Begin,
		End:       st.End,
		Evictions: st.Evictions,
		Records:   s.store.Count(),
		MaxBody:   s.store.MaxBody(),
	})
}

// handleVerify godoc
//
//	@Summary		Verify the ring buffer
//	@Description	Validate a snapshot of the region the way a recovery tool would
//	@Tags			diagnostics
//	@Produce		json
//	@Success		200	{object}	VerifyResponse
//	@Router			/verify [get]
//	@Security		ApiKeyAuth
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	report, err := inspect.Read(s.store.Snapshot())
	s.metrics.RecordSnapshotRead(err == nil)
	if err != nil {
		sendSuccess(w, VerifyResponse{Valid: false, Error: err.Error()})
		return
	}
	sendSuccess(w, VerifyResponse{
		Valid:   report.Invalid == 0,
		Records: report.Records,
		Invalid: report.Invalid,
	})
}

// readSnapshot decodes a private copy of the region. On failure it has
// already written the error response.
func (s *Server) readSnapshot(w http.ResponseWriter) (*inspect.Report, bool) {
	report, err := inspect.Read(s.store.Snapshot())
	s.metrics.RecordSnapshotRead(err == nil)
	if err != nil {
		s.log.Error("snapshot does not validate", zap.Error(err))
		sendError(w, fmt.Sprintf("Region corrupt: %v", err), http.StatusInternalServerError)
		return nil, false
	}
	return report, true
}
