package fact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/handler/http/auth"
	"historia-diaria/internal/handler/http/respond"
	"historia-diaria/internal/observability/logging"
	factUC "historia-diaria/internal/usecase/fact"
	"historia-diaria/internal/usecase/generate"
)

// Generator runs the generation pipeline for one publish date.
type Generator interface {
	Run(ctx context.Context, mode entity.RunMode, date time.Time) (*generate.Result, error)
}

var errGenerationRunning = errors.New("generation already in progress")

// GenerateHandler serves POST /api/admin/generate?date=YYYY-MM-DD. One run
// at a time; the date defaults to today.
type GenerateHandler struct {
	Svc     *factUC.Service
	Gen     Generator
	Cfg     Config
	Timeout time.Duration

	mu sync.Mutex
}

// NewGenerateHandler returns a handler with a 15 minute run timeout.
func NewGenerateHandler(svc *factUC.Service, gen Generator, cfg Config) *GenerateHandler {
	return &GenerateHandler{Svc: svc, Gen: gen, Cfg: cfg, Timeout: 15 * time.Minute}
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	date, err := h.targetDate(r)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	day := entity.FormatDate(date)

	if !h.mu.TryLock() {
		respond.AppErrorOr(w, http.StatusConflict, respond.NewAppError(http.StatusConflict, errGenerationRunning.Error(), nil))
		return
	}
	defer h.mu.Unlock()

	existing, err := h.Svc.ByDate(r.Context(), h.Cfg.Mode, day)
	switch {
	case err == nil:
		respond.AppErrorOr(w, http.StatusConflict, respond.NewAppError(http.StatusConflict,
			fmt.Sprintf("fact already exists for %s (id %d)", day, existing.ID), nil))
		return
	case !errors.Is(err, factUC.ErrFactNotFound):
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())
	logging.FromContext(r.Context()).InfoContext(r.Context(), "admin generation requested",
		slog.String("user", user),
		slog.String("publish_date", day),
		slog.String("mode", h.Cfg.Mode.String()))

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	res, err := h.Gen.Run(ctx, h.Cfg.Mode, date)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, generate.ErrInsertRejected) {
			code = http.StatusBadGateway
		}
		respond.AppErrorOr(w, code, respond.NewAppError(code, "generation failed", err))
		return
	}
	respond.JSON(w, http.StatusCreated, toGenerateResponse(res))
}

func (h *GenerateHandler) targetDate(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return h.Cfg.now(), nil
	}
	t, err := entity.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", factUC.ErrInvalidDate, raw)
	}
	return t, nil
}
