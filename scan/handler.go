// CLAUDE:SUMMARY HTTP surface of the scanner: GET /scan streams events, GET /snapshots returns the index listing.
// CLAUDE:EXPORTS Handler, NewHandler
package scan

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/waybackscan/cdx"
	"github.com/hazyhaar/waybackscan/shield"
)

// Handler serves scans over HTTP.
type Handler struct {
	scanner *Scanner
}

// NewHandler wraps s.
func NewHandler(s *Scanner) *Handler {
	return &Handler{scanner: s}
}

// Routes returns the scan routes, meant to be mounted under /api:
//
//	r.Mount("/api", scan.NewHandler(s).Routes())
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/scan", h.handleScan)
	r.Get("/snapshots", h.handleSnapshots)
	return r
}

// handleScan validates the query before any stream byte is written, so a bad
// request gets a plain 400 JSON body. Once the stream is open every outcome,
// failures included, travels as events.
func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	log := shield.GetLogger(r.Context())

	req, err := ParseRequest(r.URL.Query(), h.scanner.Limits())
	if err != nil {
		log.Info("scan: rejected", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	stream := OpenStream(w)
	sum := h.scanner.Run(r.Context(), req, stream)
	if err := stream.Err(); err != nil {
		log.Info("scan: stream closed by client", "scan_id", sum.ScanID, "error", err)
	}
}

func (h *Handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	snaps, err := h.scanner.Snapshots(r.Context(), q.Get("domain"), q.Get("year"), limit)
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, cdx.ErrIndexUnavailable):
		shield.GetLogger(r.Context()).Warn("snapshots: index unavailable", "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snaps == nil {
		snaps = []cdx.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(snaps), "snapshots": snaps})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
