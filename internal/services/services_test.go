package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/model"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	local, err := docstore.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	return NewRegistry(docstore.New(nil, local, zerolog.Nop()))
}

func TestFinanceCreateAndReadBack(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	created, err := reg.Finances.Create(ctx, model.FinanceRecord{
		Type:        "expense",
		Category:    "Land",
		Amount:      2500000,
		Description: "Land purchase",
		Date:        time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}

	all, err := reg.Finances.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}
	got := all[0]
	if got.Amount != 2500000 || got.Type != "expense" || got.Category != "Land" {
		t.Fatalf("record did not round-trip: %+v", got)
	}
	if !got.Date.Equal(created.Date) {
		t.Fatalf("date mismatch: %v vs %v", got.Date, created.Date)
	}
}

func TestFinanceFilters(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	records := []model.FinanceRecord{
		{Type: "income", Category: "Investment", Amount: 10000000, Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{Type: "expense", Category: "Land", Amount: 2500000, Date: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)},
		{Type: "expense", Category: "Materials", Amount: 800000, Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, r := range records {
		if _, err := reg.Finances.Create(ctx, r); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	expenses, err := reg.Finances.ByType(ctx, "expense")
	if err != nil {
		t.Fatalf("ByType failed: %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(expenses))
	}

	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)
	inFeb, err := reg.Finances.InRange(ctx, feb, mar)
	if err != nil {
		t.Fatalf("InRange failed: %v", err)
	}
	if len(inFeb) != 1 || inFeb[0].Category != "Land" {
		t.Fatalf("expected the February record, got %+v", inFeb)
	}
}

func TestTaskQueries(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	tasks := []model.Task{
		{Title: "Survey site", Status: "in_progress", Priority: "high", Assignee: "u1", Tags: []string{"field"}},
		{Title: "Order cement", Status: "todo", Priority: "medium", Assignee: "u2"},
		{Title: "Inspect drainage", Status: "in_progress", Priority: "low", Assignee: "u1"},
	}
	for _, task := range tasks {
		if _, err := reg.Tasks.Create(ctx, task); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	active, err := reg.Tasks.ByStatus(ctx, "in_progress")
	if err != nil {
		t.Fatalf("ByStatus failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 in-progress tasks, got %d", len(active))
	}

	mine, err := reg.Tasks.ByAssignee(ctx, "u1")
	if err != nil {
		t.Fatalf("ByAssignee failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 tasks for u1, got %d", len(mine))
	}

	tagged, err := reg.Tasks.Tagged(ctx, "field")
	if err != nil {
		t.Fatalf("Tagged failed: %v", err)
	}
	if len(tagged) != 1 || tagged[0].Title != "Survey site" {
		t.Fatalf("expected the tagged task, got %+v", tagged)
	}
}

func TestTaskUpdateAndDelete(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	created, err := reg.Tasks.Create(ctx, model.Task{Title: "Pour foundation", Status: "todo"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := reg.Tasks.Update(ctx, created.ID, map[string]any{"status": "done", "progress": 100})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != "done" || updated.Progress != 100 {
		t.Fatalf("unexpected task after update: %+v", updated)
	}
	if updated.Title != "Pour foundation" {
		t.Fatal("update must merge, not replace")
	}

	if err := reg.Tasks.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, err := reg.Tasks.Get(ctx, created.ID); err != nil || ok {
		t.Fatalf("expected absence after delete, ok=%v err=%v", ok, err)
	}
}

func TestLeadValueFloor(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	for _, l := range []model.Lead{
		{FirstName: "Ahmed", LastName: "Hassan", Email: "a@x.com", Status: "qualified", ExpectedValue: 5000000},
		{FirstName: "Fatima", LastName: "Ali", Email: "f@x.com", Status: "new", ExpectedValue: 1200000},
	} {
		if _, err := reg.Leads.Create(ctx, l); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	big, err := reg.Leads.WorthAtLeast(ctx, 2000000)
	if err != nil {
		t.Fatalf("WorthAtLeast failed: %v", err)
	}
	if len(big) != 1 || big[0].FirstName != "Ahmed" {
		t.Fatalf("expected the qualified lead, got %+v", big)
	}
}

func TestMeetingAttendees(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	when := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	if _, err := reg.Meetings.Create(ctx, model.Meeting{
		Title: "Site review", Date: when, Time: "10:00", Duration: 60,
		Status: "scheduled", Attendees: []string{"u1", "u2"},
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := reg.Meetings.Create(ctx, model.Meeting{
		Title: "Budget sync", Date: when, Time: "14:00", Duration: 30,
		Status: "scheduled", Attendees: []string{"u3"},
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mine, err := reg.Meetings.WithAttendee(ctx, "u2")
	if err != nil {
		t.Fatalf("WithAttendee failed: %v", err)
	}
	if len(mine) != 1 || mine[0].Title != "Site review" {
		t.Fatalf("expected one meeting for u2, got %+v", mine)
	}
}

func TestUserCreateDefaults(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	created, err := reg.Users.Create(ctx, model.User{
		Email:       "new@college.edu",
		DisplayName: "New Hire",
		Role:        "bogus-role",
	}, "hunter2")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Role != "team_member" {
		t.Fatalf("expected role normalized to team_member, got %q", created.Role)
	}
	if len(created.Permissions) == 0 {
		t.Fatal("expected defaulted permissions")
	}
	if !created.IsActive {
		t.Fatal("new users must start active")
	}

	got, ok, err := reg.Users.ByEmail(ctx, "new@college.edu")
	if err != nil || !ok {
		t.Fatalf("ByEmail failed: ok=%v err=%v", ok, err)
	}
	if got.ID != created.ID {
		t.Fatalf("lookup mismatch: %q vs %q", got.ID, created.ID)
	}
}
