package contacts

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRepoDoesNotShareRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	budget := 5000.0
	c := Contact{ID: testID, Name: "Jane Doe", Status: StatusNew, Priority: PriorityMedium, Budget: &budget}
	if err := repo.Create(ctx, &c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	budget = 1

	got, err := repo.Get(ctx, testID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Budget == nil || *got.Budget != 5000 {
		t.Fatalf("caller mutation leaked into store: %+v", got.Budget)
	}
	*got.Budget = 2

	replied := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	updated, err := repo.Update(ctx, testID, func(c *Contact) error {
		c.Status = StatusReplied
		c.RepliedAt = &replied
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	replied = replied.Add(time.Hour)
	*updated.Budget = 3
	*updated.RepliedAt = time.Time{}

	items, _, err := repo.List(ctx, Filter{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one contact, got %d", len(items))
	}
	*items[0].Budget = 4

	got, err = repo.Get(ctx, testID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got.Budget != 5000 {
		t.Fatalf("budget = %v, want 5000", *got.Budget)
	}
	if got.RepliedAt == nil || !got.RepliedAt.Equal(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("repliedAt = %v", got.RepliedAt)
	}
}

func TestMemoryRepoFailedUpdateLeavesRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	budget := 100.0
	if err := repo.Create(ctx, &Contact{ID: testID, Status: StatusNew, Budget: &budget}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := repo.Update(ctx, testID, func(c *Contact) error {
		*c.Budget = 7
		return ErrNotFound
	})
	if err == nil {
		t.Fatalf("expected Update to fail")
	}
	got, _ := repo.Get(ctx, testID)
	if *got.Budget != 100 {
		t.Fatalf("budget = %v, want 100", *got.Budget)
	}
}
