package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "dispo:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestClaimFirstDelivery(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	manager, err := NewManager(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	eventID := uuid.New()
	claim, err := manager.Claim(context.Background(), "transactions-worker", eventID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.Duplicate {
		t.Fatalf("expected first delivery to own the claim")
	}

	expectedKey := "dispo:idempotency:evt:processed:transactions-worker:" + eventID.String()
	if store.lastKey != expectedKey || claim.Key != expectedKey {
		t.Fatalf("unexpected key: store=%q claim=%q", store.lastKey, claim.Key)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}

	if err := manager.Release(context.Background(), claim); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.lastDeleted != expectedKey {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
}

func TestClaimDuplicateIsNotReleased(t *testing.T) {
	store := &fakeStore{setNXResult: false}
	manager, err := NewManager(store, 12*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	claim, err := manager.Claim(context.Background(), "transactions-worker", uuid.New())
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claim.Duplicate {
		t.Fatalf("expected duplicate claim")
	}
	if err := manager.Release(context.Background(), claim); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.lastDeleted != "" {
		t.Fatalf("duplicate claim must not delete %q", store.lastDeleted)
	}
}

func TestClaimErrors(t *testing.T) {
	store := &fakeStore{setNXError: errors.New("boom")}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := manager.Claim(context.Background(), "transactions-worker", uuid.New()); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := manager.Claim(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected consumer name error")
	}
	if _, err := manager.Claim(context.Background(), "transactions-worker", uuid.Nil); err == nil {
		t.Fatal("expected event id error")
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected nil store error")
	}
	if _, err := NewManager(&fakeStore{}, -time.Second); err == nil {
		t.Fatal("expected negative ttl error")
	}
}
