package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB db.Provider
}

const contactColumns = `
id, name, email, subject, message, phone, company, project_type, budget, currency, timeline,
status, is_read, priority, reply, replied_at, notes, ip_address, user_agent, created_at, updated_at`

const priorityOrder = `CASE priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts c with the timestamps already set on it.
func (r *PGRepo) Create(ctx context.Context, c *Contact) error {
	pool, err := r.DB.DB(ctx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO contacts (` + contactColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $20)`
	_, err = pool.ExecContext(ctx, q,
		c.ID, c.Name, c.Email, c.Subject, c.Message, c.Phone, c.Company, c.ProjectType, nullableFloat(c.Budget), c.Currency, c.Timeline,
		string(c.Status), c.IsRead, string(c.Priority), c.Reply, nullableTime(c.RepliedAt), c.Notes, c.IPAddress, c.UserAgent, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	c.UpdatedAt = c.CreatedAt
	return nil
}

// Get returns the contact with the given id.
func (r *PGRepo) Get(ctx context.Context, id string) (Contact, error) {
	pool, err := r.DB.DB(ctx)
	if err != nil {
		return Contact{}, err
	}
	row := pool.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return c, err
}

// Update locks the row for the duration of fn and writes the mutable fields.
func (r *PGRepo) Update(ctx context.Context, id string, fn func(c *Contact) error) (Contact, error) {
	pool, err := r.DB.DB(ctx)
	if err != nil {
		return Contact{}, err
	}
	tx, err := pool.BeginTx(ctx, nil)
	if err != nil {
		return Contact{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	c, err := scanContact(tx.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, err
	}
	if err := fn(&c); err != nil {
		return Contact{}, err
	}

	const q = `
UPDATE contacts
SET status = $2, is_read = $3, priority = $4, notes = $5, reply = $6, replied_at = $7, updated_at = now()
WHERE id = $1
RETURNING updated_at`
	err = tx.QueryRowContext(ctx, q,
		c.ID, string(c.Status), c.IsRead, string(c.Priority), c.Notes, c.Reply, nullableTime(c.RepliedAt),
	).Scan(&c.UpdatedAt)
	if err != nil {
		return Contact{}, fmt.Errorf("update contact: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Contact{}, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

// List returns one page of contacts and the total matching the filter.
func (r *PGRepo) List(ctx context.Context, f Filter) ([]Contact, int, error) {
	pool, err := r.DB.DB(ctx)
	if err != nil {
		return nil, 0, err
	}

	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, string(f.Priority))
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}

	order := "created_at DESC"
	switch f.SortBy {
	case SortName:
		order = "name ASC, created_at DESC"
	case SortPriority:
		order = priorityOrder + " DESC, created_at DESC"
	}
	pageArgs := append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`SELECT %s FROM contacts%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		contactColumns, clause, order, len(args)+1, len(args)+2)

	rows, err := pool.QueryContext(ctx, q, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	out := make([]Contact, 0, f.Limit)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Stats runs one grouped count per facet.
func (r *PGRepo) Stats(ctx context.Context) (Stats, error) {
	pool, err := r.DB.DB(ctx)
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, facet := range []struct {
		column string
		dst    *[]Count
	}{
		{"status", &stats.StatusCounts},
		{"priority", &stats.PriorityCounts},
		{"project_type", &stats.ProjectTypeCounts},
	} {
		got, err := groupCount(ctx, pool, facet.column)
		if err != nil {
			return Stats{}, err
		}
		*facet.dst = got
	}

	rows, err := pool.QueryContext(ctx, `
SELECT EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC')::int AS year,
       EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month,
       COUNT(*)
FROM contacts
GROUP BY 1, 2
ORDER BY 1 DESC, 2 DESC
LIMIT $1`, StatsMonths)
	if err != nil {
		return Stats{}, fmt.Errorf("monthly stats: %w", err)
	}
	defer rows.Close()
	stats.MonthlyStats = []MonthCount{}
	for rows.Next() {
		var m MonthCount
		if err := rows.Scan(&m.Year, &m.Month, &m.Count); err != nil {
			return Stats{}, err
		}
		stats.MonthlyStats = append(stats.MonthlyStats, m)
	}
	return stats, rows.Err()
}

// groupCount is only called with fixed column names.
func groupCount(ctx context.Context, pool *sql.DB, column string) ([]Count, error) {
	rows, err := pool.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM contacts GROUP BY 1 ORDER BY 2 DESC, 1 ASC`)
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()
	out := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Value, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanContact(row rowScanner) (Contact, error) {
	var (
		c         Contact
		status    string
		priority  string
		budget    sql.NullFloat64
		repliedAt sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Subject, &c.Message, &c.Phone, &c.Company, &c.ProjectType, &budget, &c.Currency, &c.Timeline,
		&status, &c.IsRead, &priority, &c.Reply, &repliedAt, &c.Notes, &c.IPAddress, &c.UserAgent, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Contact{}, err
	}
	c.Status = Status(status)
	c.Priority = Priority(priority)
	if budget.Valid {
		v := budget.Float64
		c.Budget = &v
	}
	if repliedAt.Valid {
		t := repliedAt.Time
		c.RepliedAt = &t
	}
	return c, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
