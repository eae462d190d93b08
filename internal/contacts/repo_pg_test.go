package contacts

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"portfolio-backend/internal/shared/storage/db"
)

var pgColumns = []string{
	"id", "name", "email", "subject", "message", "phone", "company", "project_type", "budget", "currency", "timeline",
	"status", "is_read", "priority", "reply", "replied_at", "notes", "ip_address", "user_agent", "created_at", "updated_at",
}

const testID = "6f1c1e3a-8d4b-4f7e-9a53-0d1c2b3a4f5e"

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return &PGRepo{DB: db.Static{Pool: sqlDB}}, mock
}

func contactRow(created time.Time, status string, isRead bool) *sqlmock.Rows {
	return sqlmock.NewRows(pgColumns).AddRow(
		testID, "Jane Doe", "jane@example.com", "Project inquiry", "A message that is long enough.", "", "", "other", nil, "INR", "flexible",
		status, isRead, "medium", "", nil, "", "203.0.113.7", "test-agent", created, created,
	)
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	budget := 5000.0

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contacts")).
		WithArgs(
			testID, "Jane Doe", "jane@example.com", "Project inquiry", "A message that is long enough.", "", "", "other", 5000.0, "INR", "flexible",
			"new", false, "medium", "", nil, "", "203.0.113.7", "test-agent", created,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := &Contact{
		ID: testID, Name: "Jane Doe", Email: "jane@example.com", Subject: "Project inquiry",
		Message: "A message that is long enough.", ProjectType: "other", Budget: &budget, Currency: "INR",
		Timeline: "flexible", Status: StatusNew, Priority: PriorityMedium, IPAddress: "203.0.113.7",
		UserAgent: "test-agent", CreatedAt: created,
	}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !c.UpdatedAt.Equal(created) {
		t.Fatalf("expected updatedAt to match createdAt, got %s", c.UpdatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id = $1")).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows(pgColumns))

	if _, err := repo.Get(context.Background(), testID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoUpdateWritesMutableFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	replied := created.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id = $1 FOR UPDATE")).
		WithArgs(testID).
		WillReturnRows(contactRow(created, "read", true))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE contacts")).
		WithArgs(testID, "replied", true, "medium", "", "Thanks", replied).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(replied))
	mock.ExpectCommit()

	got, err := repo.Update(context.Background(), testID, func(c *Contact) error {
		c.Status = StatusReplied
		c.Reply = "Thanks"
		c.RepliedAt = &replied
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != StatusReplied || !got.UpdatedAt.Equal(replied) {
		t.Fatalf("unexpected contact %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoUpdateRollsBackOnRejection(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(testID).
		WillReturnRows(contactRow(created, "closed", true))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), testID, func(c *Contact) error {
		return &TransitionError{From: c.Status, To: StatusRead}
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoListFiltersAndOrders(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM contacts WHERE status = $1 AND priority = $2")).
		WithArgs("read", "medium").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND priority = $2 ORDER BY CASE priority")).
		WithArgs("read", "medium", 20, 20).
		WillReturnRows(contactRow(created, "read", true))

	items, total, err := repo.List(context.Background(), Filter{
		Status: StatusRead, Priority: PriorityMedium, SortBy: SortPriority, Offset: 20, Limit: 20,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 21 || len(items) != 1 || items[0].Budget != nil {
		t.Fatalf("unexpected result total=%d items=%+v", total, items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoStatsEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	for _, col := range []string{"status", "priority", "project_type"} {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT " + col + ", COUNT(*) FROM contacts GROUP BY 1")).
			WillReturnRows(sqlmock.NewRows([]string{col, "count"}))
	}
	mock.ExpectQuery(regexp.QuoteMeta("EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC')")).
		WithArgs(StatsMonths).
		WillReturnRows(sqlmock.NewRows([]string{"year", "month", "count"}))

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.StatusCounts == nil || stats.PriorityCounts == nil || stats.ProjectTypeCounts == nil || stats.MonthlyStats == nil {
		t.Fatalf("expected empty non-nil groupings, got %+v", stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoStatsBucketsMonthsInUTC(t *testing.T) {
	repo, mock := newMockRepo(t)
	for _, col := range []string{"status", "priority", "project_type"} {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT " + col + ", COUNT(*) FROM contacts GROUP BY 1")).
			WillReturnRows(sqlmock.NewRows([]string{col, "count"}))
	}
	mock.ExpectQuery(`EXTRACT\(YEAR FROM created_at AT TIME ZONE 'UTC'\)::int AS year,\s+` +
		`EXTRACT\(MONTH FROM created_at AT TIME ZONE 'UTC'\)::int AS month`).
		WithArgs(StatsMonths).
		WillReturnRows(sqlmock.NewRows([]string{"year", "month", "count"}).
			AddRow(2026, 3, 2).
			AddRow(2026, 2, 1))

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := []MonthCount{{Year: 2026, Month: 3, Count: 2}, {Year: 2026, Month: 2, Count: 1}}
	if len(stats.MonthlyStats) != len(want) {
		t.Fatalf("monthly = %+v, want %+v", stats.MonthlyStats, want)
	}
	for i := range want {
		if stats.MonthlyStats[i] != want[i] {
			t.Fatalf("monthly[%d] = %+v, want %+v", i, stats.MonthlyStats[i], want[i])
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
