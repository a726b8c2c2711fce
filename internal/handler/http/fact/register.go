package fact

import (
	"net/http"
	"time"

	"historia-diaria/internal/domain/entity"
	factUC "historia-diaria/internal/usecase/fact"
)

// Config is shared by every fact handler.
type Config struct {
	// Mode selects the table the display side reads.
	Mode entity.RunMode
	// Location decides which calendar day "today" is.
	Location *time.Location
	// Now is the clock; time.Now when nil.
	Now func() time.Time
	// SiteURL is the absolute base URL used in the RSS feed.
	SiteURL string
	// ArchiveLimit is the number of facts shown in the archive sidebar.
	ArchiveLimit int
}

func (c Config) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if c.Location != nil {
		return now().In(c.Location)
	}
	return now()
}

func (c Config) archiveLimit() int {
	if c.ArchiveLimit < 1 {
		return factUC.MaxLimit
	}
	return c.ArchiveLimit
}

// Register mounts the page, the read API and the feed on mux. The admin
// endpoint is mounted only when gen is non-nil, wrapped in admin.
func Register(mux *http.ServeMux, svc *factUC.Service, cfg Config, gen Generator, admin func(http.Handler) http.Handler) {
	mux.Handle("GET /{$}", PageHandler{Svc: svc, Cfg: cfg})
	mux.Handle("GET /static/", StaticHandler())
	mux.Handle("GET /api/facts/today", TodayHandler{Svc: svc, Cfg: cfg})
	mux.Handle("GET /api/facts", ListHandler{Svc: svc, Cfg: cfg})
	mux.Handle("GET /api/facts/archive", ArchiveHandler{Svc: svc, Cfg: cfg})
	mux.Handle("GET /feed.xml", FeedHandler{Svc: svc, Cfg: cfg})

	if gen != nil && admin != nil {
		mux.Handle("POST /api/admin/generate", admin(NewGenerateHandler(svc, gen, cfg)))
	}
}
