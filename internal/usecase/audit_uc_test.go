//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/repository"
	"bookshop-access/internal/usecase"
)

func TestAuditUC_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("appends an event with action, resource and details", func(t *testing.T) {
		// --- Arrange ---
		repo := NewMockAuditRepo()
		uc := usecase.NewAuditUseCase(repo, nil, newTestLogger())

		// --- Act ---
		uc.Record(ctx, model.AuditPaymentVerified, "payment:TX1", "user-1", map[string]interface{}{"amount": 70.00})

		// --- Assert ---
		if len(repo.Events) != 1 {
			t.Fatalf("got %d events, want 1", len(repo.Events))
		}
		ev := repo.Events[0]
		if ev.ID == "" {
			t.Error("event id must be assigned")
		}
		if ev.Action != model.AuditPaymentVerified || ev.Resource != "payment:TX1" || ev.UserID != "user-1" {
			t.Errorf("event fields wrong: %+v", ev)
		}
		if ev.Details["amount"] != 70.00 {
			t.Errorf("details not retained: %+v", ev.Details)
		}
	})

	t.Run("a failing store never surfaces to the caller", func(t *testing.T) {
		// --- Arrange ---
		repo := NewMockAuditRepo()
		repo.AppendFunc = func(ctx context.Context, tx repository.Tx, e *model.AuditEvent) error {
			return errors.New("disk full")
		}
		uc := usecase.NewAuditUseCase(repo, nil, newTestLogger())

		// --- Act ---
		// Record has no error return; the call completing is the assertion.
		uc.Record(ctx, model.AuditSessionCreated, "session:s1", "user-1", nil)

		// --- Assert ---
		if len(repo.Events) != 0 {
			t.Errorf("nothing should be stored on failure, got %d", len(repo.Events))
		}
	})

	t.Run("event ids are unique and ordered", func(t *testing.T) {
		// --- Arrange ---
		repo := NewMockAuditRepo()
		uc := usecase.NewAuditUseCase(repo, nil, newTestLogger())

		// --- Act ---
		for i := 0; i < 5; i++ {
			uc.Record(ctx, model.AuditSessionCreated, "session:s", "user-1", nil)
		}

		// --- Assert ---
		seen := make(map[string]bool)
		var prev string
		for _, ev := range repo.Events {
			if seen[ev.ID] {
				t.Fatalf("duplicate event id %s", ev.ID)
			}
			seen[ev.ID] = true
			if prev != "" && ev.ID < prev {
				t.Errorf("ids not monotonically increasing: %s after %s", ev.ID, prev)
			}
			prev = ev.ID
		}
	})
}

func TestAuditUC_ListByUser(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	repo := NewMockAuditRepo()
	uc := usecase.NewAuditUseCase(repo, nil, newTestLogger())
	uc.Record(ctx, model.AuditSessionCreated, "session:a", "user-1", nil)
	uc.Record(ctx, model.AuditSessionCreated, "session:b", "user-2", nil)
	uc.Record(ctx, model.AuditSessionLogout, "session:a", "user-1", nil)

	// --- Act ---
	events, err := uc.ListByUser(ctx, "user-1", 10)

	// --- Assert ---
	if err != nil {
		t.Fatalf("ListByUser() failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events for user-1, want 2", len(events))
	}
	for _, ev := range events {
		if ev.UserID != "user-1" {
			t.Errorf("unexpected event for %s", ev.UserID)
		}
	}
}
