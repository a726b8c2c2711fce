package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/infra/adapter/persistence/postgres"
)

/* ──────────────────────────────── helpers ──────────────────────────────── */

var columns = []string{
	"id", "historical_date", "publish_date", "title", "description",
	"category", "sources", "created_at", "updated_at",
}

func date(s string) time.Time {
	t, _ := time.Parse(entity.DateLayout, s)
	return t
}

func addFactRow(rows *sqlmock.Rows, f *entity.HistoricalFact, sources string) *sqlmock.Rows {
	return rows.AddRow(
		f.ID, date(f.HistoricalDate), date(f.PublishDate), f.Title, f.Description,
		f.Category, sources, f.CreatedAt, nil,
	)
}

func sampleFact() *entity.HistoricalFact {
	return &entity.HistoricalFact{
		ID:             7,
		HistoricalDate: "1969-07-20",
		PublishDate:    "2025-07-20",
		Title:          "Llegada a la Luna",
		Description:    "El Apolo 11 aluniza en el Mar de la Tranquilidad.",
		Category:       entity.CategorySpace,
		Sources:        []string{"NASA", "https://www.nasa.gov"},
		CreatedAt:      time.Date(2025, 7, 20, 0, 5, 0, 0, time.UTC),
	}
}

/* ──────────────────────────────── 1. Insert ──────────────────────────────── */

func TestFactRepo_Insert(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	f := sampleFact()
	created := time.Date(2025, 7, 20, 0, 5, 1, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO historical_facts_test`)).
		WithArgs(f.HistoricalDate, f.Title, f.Description, f.Category,
			`{NASA,https://www.nasa.gov}`, f.PublishDate).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	repo := postgres.NewFactRepo(db)
	id, err := repo.Insert(context.Background(), entity.RunModeTest, f)
	if err != nil {
		t.Fatalf("Insert err=%v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}
	if !f.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", f.CreatedAt, created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFactRepo_Insert_ProductionTable(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`INSERT INTO historical_facts \(`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	if _, err := postgres.NewFactRepo(db).Insert(context.Background(), entity.RunModeProduction, sampleFact()); err != nil {
		t.Fatalf("Insert err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFactRepo_Insert_Error(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	constraint := errors.New(`duplicate key value violates unique constraint "uq_historical_facts_publish_date"`)
	mock.ExpectQuery(`INSERT INTO historical_facts`).WillReturnError(constraint)

	_, err := postgres.NewFactRepo(db).Insert(context.Background(), entity.RunModeProduction, sampleFact())
	if !errors.Is(err, constraint) {
		t.Fatalf("err = %v, want wrapped constraint error", err)
	}
}

/* ──────────────────────────────── 2. GetByPublishDate ──────────────────────────────── */

func TestFactRepo_GetByPublishDate(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := sampleFact()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM historical_facts`)).
		WithArgs("2025-07-20").
		WillReturnRows(addFactRow(sqlmock.NewRows(columns), want, `{NASA,https://www.nasa.gov}`))

	got, err := postgres.NewFactRepo(db).GetByPublishDate(context.Background(), entity.RunModeProduction, "2025-07-20")
	if err != nil {
		t.Fatalf("GetByPublishDate err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFactRepo_GetByPublishDate_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM historical_facts_test`).
		WithArgs("2025-01-01").
		WillReturnError(sql.ErrNoRows)

	got, err := postgres.NewFactRepo(db).GetByPublishDate(context.Background(), entity.RunModeTest, "2025-01-01")
	if err != nil || got != nil {
		t.Fatalf("got=%v err=%v, want nil,nil", got, err)
	}
}

func TestFactRepo_GetByPublishDate_NullSources(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	f := sampleFact()
	mock.ExpectQuery(`FROM historical_facts`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			f.ID, date(f.HistoricalDate), date(f.PublishDate), f.Title, f.Description,
			f.Category, nil, f.CreatedAt, f.CreatedAt,
		))

	got, err := postgres.NewFactRepo(db).GetByPublishDate(context.Background(), entity.RunModeProduction, f.PublishDate)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Sources == nil || len(got.Sources) != 0 {
		t.Fatalf("sources = %#v, want empty slice", got.Sources)
	}
	if got.UpdatedAt == nil {
		t.Fatal("updated_at not scanned")
	}
}

/* ──────────────────────────────── 3. ListRecent / ListAll ──────────────────────────────── */

func TestFactRepo_ListRecent(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	first := sampleFact()
	second := sampleFact()
	second.ID, second.PublishDate, second.Sources = 6, "2025-07-19", []string{"Fuente 1"}

	rows := sqlmock.NewRows(columns)
	addFactRow(rows, first, `{NASA,https://www.nasa.gov}`)
	addFactRow(rows, second, `{"Fuente 1"}`)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY publish_date DESC, created_at DESC`)).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := postgres.NewFactRepo(db).ListRecent(context.Background(), entity.RunModeProduction, 10)
	if err != nil {
		t.Fatalf("ListRecent err=%v", err)
	}
	if diff := cmp.Diff([]*entity.HistoricalFact{first, second}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFactRepo_ListAll_QueryError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM historical_facts_test`).WillReturnError(errors.New("connection reset"))

	if _, err := postgres.NewFactRepo(db).ListAll(context.Background(), entity.RunModeTest); err == nil {
		t.Fatal("expected error")
	}
}

/* ──────────────────────────────── 4. Count ──────────────────────────────── */

func TestFactRepo_Count(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM historical_facts`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := postgres.NewFactRepo(db).Count(context.Background(), entity.RunModeProduction)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}
