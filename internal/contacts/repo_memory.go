package contacts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.Mutex
	data map[string]Contact
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Contact),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores c, filling timestamps when unset.
func (r *MemoryRepo) Create(ctx context.Context, c *Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	r.data[c.ID] = c.clone()
	return nil
}

// Get returns a copy of the stored contact.
func (r *MemoryRepo) Get(ctx context.Context, id string) (Contact, error) {
	if err := ctx.Err(); err != nil {
		return Contact{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok {
		return Contact{}, ErrNotFound
	}
	return c.clone(), nil
}

// Update applies fn under the repo lock.
func (r *MemoryRepo) Update(ctx context.Context, id string, fn func(c *Contact) error) (Contact, error) {
	if err := ctx.Err(); err != nil {
		return Contact{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.data[id]
	if !ok {
		return Contact{}, ErrNotFound
	}
	c := stored.clone()
	if err := fn(&c); err != nil {
		return Contact{}, err
	}
	c.UpdatedAt = r.now()
	r.data[id] = c
	return c.clone(), nil
}

// List filters, sorts and slices the stored contacts.
func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Contact, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.Lock()
	matched := make([]Contact, 0, len(r.data))
	for _, c := range r.data {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Priority != "" && c.Priority != f.Priority {
			continue
		}
		matched = append(matched, c.clone())
	}
	r.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch f.SortBy {
		case SortName:
			if a.Name != b.Name {
				return strings.Compare(a.Name, b.Name) < 0
			}
		case SortPriority:
			if ra, rb := priorityRank(a.Priority), priorityRank(b.Priority); ra != rb {
				return ra > rb
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	total := len(matched)
	if f.Offset < 0 || f.Offset >= total {
		return []Contact{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

// Stats counts the stored contacts by facet.
func (r *MemoryRepo) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	status := map[string]int{}
	priority := map[string]int{}
	project := map[string]int{}
	monthly := map[[2]int]int{}
	for _, c := range r.data {
		status[string(c.Status)]++
		priority[string(c.Priority)]++
		project[c.ProjectType]++
		y, m, _ := c.CreatedAt.UTC().Date()
		monthly[[2]int{y, int(m)}]++
	}

	stats := Stats{
		StatusCounts:      counts(status),
		PriorityCounts:    counts(priority),
		ProjectTypeCounts: counts(project),
		MonthlyStats:      make([]MonthCount, 0, len(monthly)),
	}
	for ym, n := range monthly {
		stats.MonthlyStats = append(stats.MonthlyStats, MonthCount{Year: ym[0], Month: ym[1], Count: n})
	}
	sort.Slice(stats.MonthlyStats, func(i, j int) bool {
		a, b := stats.MonthlyStats[i], stats.MonthlyStats[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Month > b.Month
	})
	if len(stats.MonthlyStats) > StatsMonths {
		stats.MonthlyStats = stats.MonthlyStats[:StatsMonths]
	}
	return stats, nil
}

// counts orders buckets by count, then value, for stable output.
func counts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for v, n := range m {
		out = append(out, Count{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// clone copies c so callers never share its pointer fields with the store.
func (c Contact) clone() Contact {
	if c.Budget != nil {
		b := *c.Budget
		c.Budget = &b
	}
	if c.RepliedAt != nil {
		t := *c.RepliedAt
		c.RepliedAt = &t
	}
	return c
}
