package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/redis/redistest"
)

func TestAttemptTransitionRejectsSkippedSteps(t *testing.T) {
	attempt := newAttempt("sess-1", time.Now())
	err := attempt.transition(enums.CheckoutStateSubmitting, time.Now())
	requireCode(t, err, pkgerrors.CodeStateConflict)
	if attempt.State != enums.CheckoutStateAwaitingShipping {
		t.Fatalf("state changed on rejected transition: %s", attempt.State)
	}

	if err := attempt.transition(enums.CheckoutStateAwaitingPayment, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := attempt.transition(enums.CheckoutStateSubmitting, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := attempt.transition(enums.CheckoutStateHardFailure, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := attempt.transition(enums.CheckoutStateSubmitting, time.Now()); err != nil {
		t.Fatalf("resubmission after hard failure should be allowed: %v", err)
	}
}

func TestRedisAttemptStoreRoundTrip(t *testing.T) {
	mem := redistest.New()
	store, err := NewRedisAttemptStore(mem.Client(), 15*time.Minute)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if got, err := store.Load(ctx, "sess-1"); err != nil || got != nil {
		t.Fatalf("expected no attempt, got %v, %v", got, err)
	}

	details := validShipping()
	attempt := newAttempt("sess-1", time.Now())
	attempt.State = enums.CheckoutStateAwaitingPayment
	attempt.Shipping = &details
	if err := store.Save(ctx, attempt); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mem.TTL(mem.Client().CheckoutAttemptKey("sess-1")); ttl != 15*time.Minute {
		t.Fatalf("expected 15m ttl, got %v", ttl)
	}

	loaded, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.SubmissionKey != attempt.SubmissionKey || loaded.Shipping.City != "Pune" {
		t.Fatalf("unexpected attempt %+v", loaded)
	}

	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := store.Load(ctx, "sess-1"); got != nil {
		t.Fatalf("expected attempt removed, got %+v", got)
	}
}

func TestRedisAttemptStoreRejectsCorruptAttempt(t *testing.T) {
	mem := redistest.New()
	store, _ := NewRedisAttemptStore(mem.Client(), time.Hour)
	mem.Put(mem.Client().CheckoutAttemptKey("sess-1"), `{"state":"shipped"}`)

	if _, err := store.Load(context.Background(), "sess-1"); err == nil {
		t.Fatal("expected corrupt attempt to error")
	}
}
