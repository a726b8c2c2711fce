package fact

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	httpx "historia-diaria/internal/handler/http"
	"historia-diaria/internal/handler/http/respond"
	factUC "historia-diaria/internal/usecase/fact"
)

// TodayHandler serves GET /api/facts/today.
type TodayHandler struct {
	Svc *factUC.Service
	Cfg Config
}

func (h TodayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f, err := h.Svc.Today(r.Context(), h.Cfg.Mode, h.Cfg.now())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, factUC.ErrFactNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	httpx.RecordFactServed("today")
	w.Header().Set("Cache-Control", "public, max-age=60")
	respond.JSON(w, http.StatusOK, toDTO(f))
}

// ListHandler serves GET /api/facts?limit=N.
type ListHandler struct {
	Svc *factUC.Service
	Cfg Config
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	facts, err := h.Svc.Recent(r.Context(), h.Cfg.Mode, limit)
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}

	out := ListResponse{Facts: make([]DTO, 0, len(facts)), Count: len(facts)}
	for _, f := range facts {
		out.Facts = append(out.Facts, toDTO(f))
	}
	httpx.RecordFactServed("recent")
	respond.JSON(w, http.StatusOK, out)
}

// ArchiveHandler serves GET /api/facts/archive?limit=N.
type ArchiveHandler struct {
	Svc *factUC.Service
	Cfg Config
}

func (h ArchiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := h.Cfg.archiveLimit()
	if r.URL.Query().Has("limit") {
		var err error
		if limit, err = parseLimit(r); err != nil {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
	}
	archive, err := h.Svc.Archive(r.Context(), h.Cfg.Mode, limit)
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	httpx.RecordFactServed("archive")
	respond.JSON(w, http.StatusOK, archive)
}

// parseLimit reads ?limit, defaulting to factUC.DefaultLimit.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return factUC.DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid limit %q: must be a number", raw)
	}
	if n < 1 {
		return 0, factUC.ErrInvalidLimit
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, factUC.ErrInvalidLimit), errors.Is(err, factUC.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, factUC.ErrFactNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
