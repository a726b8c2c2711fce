package fact

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"historia-diaria/internal/domain/entity"
	httpx "historia-diaria/internal/handler/http"
	"historia-diaria/internal/handler/http/respond"
	factUC "historia-diaria/internal/usecase/fact"
)

// FeedItems is the number of facts in the RSS feed.
const FeedItems = 30

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	Category    string  `xml:"category,omitempty"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// FeedHandler serves GET /feed.xml as RSS 2.0.
type FeedHandler struct {
	Svc *factUC.Service
	Cfg Config
}

func (h FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	facts, err := h.Svc.Recent(r.Context(), h.Cfg.Mode, FeedItems)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	body, err := xml.MarshalIndent(h.build(facts), "", "  ")
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RecordFactServed("feed")
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

func (h FeedHandler) build(facts []*entity.HistoricalFact) rssFeed {
	base := strings.TrimRight(h.Cfg.SiteURL, "/")
	link := base + "/"

	ch := rssChannel{
		Title:       "Historia Diaria",
		Link:        link,
		Description: "Un hecho histórico cada día",
		Language:    "es-es",
		Items:       make([]rssItem, 0, len(facts)),
	}
	for i, f := range facts {
		pub := h.pubDate(f.PublishDate)
		if i == 0 {
			ch.LastBuildDate = pub
		}
		ch.Items = append(ch.Items, rssItem{
			Title:       f.Title,
			Link:        fmt.Sprintf("%s#fact-%d", link, f.ID),
			Description: fmt.Sprintf("%s: %s", factUC.HistoricalDateLabel(f.HistoricalDate), f.Description),
			Category:    f.Category,
			GUID:        rssGUID{Value: fmt.Sprintf("historia-diaria:%s:%d", h.Cfg.Mode, f.ID)},
			PubDate:     pub,
		})
	}
	return rssFeed{Version: "2.0", Channel: ch}
}

func (h FeedHandler) pubDate(date string) string {
	t, err := entity.ParseDate(date)
	if err != nil {
		return ""
	}
	loc := h.Cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Format(time.RFC1123Z)
}
