package fact

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"historia-diaria/internal/domain/entity"
	httpx "historia-diaria/internal/handler/http"
	"historia-diaria/internal/handler/http/respond"
	factUC "historia-diaria/internal/usecase/fact"
)

// TypewriterInterval is the per-character delay of the title animation, in ms.
const TypewriterInterval = 50

// ShareTitle is the title passed to the Web Share API.
const ShareTitle = "Dato Histórico del Día"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"upper":     strings.ToUpper,
	"dateLabel": factUC.HistoricalDateLabel,
	"isLink": func(s string) bool {
		return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
	},
}).ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	CurrentDate  string
	Today        *entity.HistoricalFact
	Archive      *factUC.Archive
	ShareTitle   string
	ShareText    string
	TypeInterval int
}

// PageHandler renders the terminal page with today's fact and the archive.
type PageHandler struct {
	Svc *factUC.Service
	Cfg Config
}

func (h PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := h.Cfg.now()
	view, err := h.Svc.Home(r.Context(), h.Cfg.Mode, now, h.Cfg.archiveLimit())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	data := pageData{
		CurrentDate:  factUC.LongDate(now),
		Today:        view.Today,
		Archive:      view.Archive,
		ShareTitle:   ShareTitle,
		TypeInterval: TypewriterInterval,
	}
	if view.Today != nil {
		data.ShareText = view.Today.Title + " - " + view.Today.Description
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		slog.ErrorContext(r.Context(), "render page failed", slog.Any("error", err))
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RecordFactServed("page")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = buf.WriteTo(w)
}

// StaticHandler serves the embedded stylesheet and script under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}
