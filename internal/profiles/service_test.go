package profiles

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestEnsureCreatesFreeProfileOnce(t *testing.T) {
	svc := NewService(3)
	ctx := context.Background()

	p, err := svc.Ensure(ctx, "u1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if p.SubscriptionStatus != StatusFree || p.CreditsLimit != 3 || p.CreditsUsed != 0 {
		t.Fatalf("unexpected default profile %+v", p)
	}

	if _, err := svc.Charge(ctx, "u1"); err != nil {
		t.Fatalf("charge: %v", err)
	}
	again, err := svc.Ensure(ctx, "u1")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again.CreditsUsed != 1 {
		t.Fatalf("ensure must not reset an existing profile, got %+v", again)
	}
}

func TestGate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    error
	}{
		{name: "free under limit", profile: Profile{SubscriptionStatus: StatusFree, CreditsUsed: 9, CreditsLimit: 10}},
		{name: "free at limit", profile: Profile{SubscriptionStatus: StatusFree, CreditsUsed: 10, CreditsLimit: 10}, want: ErrFreeLimitReached},
		{name: "inactive", profile: Profile{SubscriptionStatus: StatusInactive, CreditsUsed: 0, CreditsLimit: 10}, want: ErrSubscriptionInactive},
		{name: "pro over limit", profile: Profile{SubscriptionStatus: StatusPro, CreditsUsed: 50, CreditsLimit: 10}},
		{name: "active", profile: Profile{SubscriptionStatus: StatusActive, CreditsUsed: 11, CreditsLimit: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.profile.Gate(); !errors.Is(err, tt.want) {
				t.Fatalf("Gate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckMissingProfile(t *testing.T) {
	svc := NewService(10)
	if _, err := svc.Check(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChargeIsAtomicUnderContention(t *testing.T) {
	store := NewMemoryStore()
	store.Put(Profile{UserID: "u1", CreditsUsed: 0, CreditsLimit: 5, SubscriptionStatus: StatusFree})
	svc := NewStoreService(store, 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Charge(context.Background(), "u1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ErrFreeLimitReached) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected exactly 5 successful charges, got %d", succeeded)
	}
	p, _ := svc.Get(context.Background(), "u1")
	if p.CreditsUsed != 5 {
		t.Fatalf("expected credits_used=5, got %d", p.CreditsUsed)
	}
}

func TestSetStatusAndReset(t *testing.T) {
	svc := NewService(10)
	ctx := context.Background()

	p, err := svc.SetStatus(ctx, "u1", StatusInactive)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if p.SubscriptionStatus != StatusInactive {
		t.Fatalf("expected inactive, got %s", p.SubscriptionStatus)
	}
	if _, err := svc.Charge(ctx, "u1"); !errors.Is(err, ErrSubscriptionInactive) {
		t.Fatalf("expected inactive charge to fail, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, "u1", Status("gold")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	if _, err := svc.SetStatus(ctx, "u1", StatusFree); err != nil {
		t.Fatalf("set free: %v", err)
	}
	if _, err := svc.Charge(ctx, "u1"); err != nil {
		t.Fatalf("charge: %v", err)
	}
	p, err = svc.Reset(ctx, "u1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if p.CreditsUsed != 0 {
		t.Fatalf("expected reset credits, got %d", p.CreditsUsed)
	}
}
