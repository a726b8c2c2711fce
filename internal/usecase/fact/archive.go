package fact

import (
	"fmt"
	"time"
	"unicode/utf8"

	"historia-diaria/internal/domain/entity"
)

const previewRunes = 80

var monthCodes = [...]string{"ENE", "FEB", "MAR", "ABR", "MAY", "JUN", "JUL", "AGO", "SEP", "OCT", "NOV", "DIC"}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var weekdayNames = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

// Archive is the list of past facts grouped by publish year and month.
type Archive struct {
	Years []ArchiveYear `json:"years"`
	Total int           `json:"total"`
}

type ArchiveYear struct {
	Year   int            `json:"year"`
	Total  int            `json:"total"`
	Months []ArchiveMonth `json:"months"`
}

type ArchiveMonth struct {
	Month   int            `json:"month"`
	Code    string         `json:"code"`
	Entries []ArchiveEntry `json:"entries"`
}

type ArchiveEntry struct {
	ID             int64  `json:"id"`
	Label          string `json:"label"`
	PublishDate    string `json:"publish_date"`
	HistoricalDate string `json:"historical_date"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	Preview        string `json:"preview"`
}

// MonthCode returns the three letter Spanish code of m (ENE..DIC).
func MonthCode(m time.Month) string {
	return monthCodes[m-1]
}

// LongDate formats t the way the page header shows it,
// e.g. "domingo, 20 de julio de 2025".
func LongDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d", weekdayNames[t.Weekday()], t.Day(), monthNames[t.Month()-1], t.Year())
}

// HistoricalDateLabel renders a YYYY-MM-DD date as "20 de julio de 1969".
// Unparseable input is returned unchanged.
func HistoricalDateLabel(date string) string {
	t, err := entity.ParseDate(date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d de %s de %d", t.Day(), monthNames[t.Month()-1], t.Year())
}

// Preview cuts s to 80 runes, adding an ellipsis when it was cut.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "..."
}

// GroupArchive groups facts by publish_date: years newest first, months
// newest first, entries newest first. Entries are labelled REG_001, REG_002...
// within their month. Facts with an unparseable publish_date are skipped.
func GroupArchive(facts []*entity.HistoricalFact) *Archive {
	type key struct{ year, month int }
	buckets := make(map[key][]*entity.HistoricalFact)
	years := make(map[int][]int)

	archive := &Archive{Years: []ArchiveYear{}}
	for _, f := range facts {
		t, err := entity.ParseDate(f.PublishDate)
		if err != nil {
			continue
		}
		k := key{t.Year(), int(t.Month())}
		if _, ok := buckets[k]; !ok {
			years[k.year] = append(years[k.year], k.month)
		}
		buckets[k] = append(buckets[k], f)
		archive.Total++
	}

	for _, y := range sortedDesc(keys(years)) {
		year := ArchiveYear{Year: y}
		for _, m := range sortedDesc(years[y]) {
			group := buckets[key{y, m}]
			sortByPublishDateDesc(group)

			month := ArchiveMonth{Month: m, Code: MonthCode(time.Month(m)), Entries: make([]ArchiveEntry, 0, len(group))}
			for i, f := range group {
				month.Entries = append(month.Entries, ArchiveEntry{
					ID:             f.ID,
					Label:          fmt.Sprintf("REG_%03d", i+1),
					PublishDate:    f.PublishDate,
					HistoricalDate: f.HistoricalDate,
					Title:          f.Title,
					Category:       f.Category,
					Preview:        Preview(f.Description),
				})
			}
			year.Total += len(group)
			year.Months = append(year.Months, month)
		}
		archive.Years = append(archive.Years, year)
	}
	return archive
}
