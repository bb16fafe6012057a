package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/users"
	"github.com/angelmondragon/storefront/pkg/background"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/redis/redistest"
)

type syncRunner struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (r *syncRunner) Go(ctx context.Context, name string, task background.Task) {
	err := task(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.errs = append(r.errs, err)
}

func (r *syncRunner) ran(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.names {
		if n == name {
			count++
		}
	}
	return count
}

type stubProfiles struct {
	mu      sync.Mutex
	profile *users.ShippingProfile
	findErr error
	saveErr error
	saved   []users.ShippingProfile
}

func (s *stubProfiles) FindProfile(context.Context, uuid.UUID) (*users.ShippingProfile, error) {
	return s.profile, s.findErr
}

func (s *stubProfiles) UpsertShippingProfile(_ context.Context, _ uuid.UUID, profile users.ShippingProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, profile)
	return nil
}

type checkoutFixture struct {
	mem      *redistest.Memory
	sessions *cart.Sessions
	attempts *RedisAttemptStore
	runner   *syncRunner
	profiles *stubProfiles
	flow     *Flow
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	mem := redistest.New()
	client := mem.Client()
	snapshots, err := cart.NewRedisSnapshotStore(client)
	if err != nil {
		t.Fatalf("snapshot store: %v", err)
	}
	sessions, err := cart.NewSessions(snapshots, logger.Nop())
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	attempts, err := NewRedisAttemptStore(client, time.Hour)
	if err != nil {
		t.Fatalf("attempt store: %v", err)
	}
	runner := &syncRunner{}
	profiles := &stubProfiles{}
	flow, err := NewFlow(sessions, profiles, attempts, runner, logger.Nop())
	if err != nil {
		t.Fatalf("flow: %v", err)
	}
	return &checkoutFixture{
		mem:      mem,
		sessions: sessions,
		attempts: attempts,
		runner:   runner,
		profiles: profiles,
		flow:     flow,
	}
}

func (f *checkoutFixture) addToCart(t *testing.T, sessionID string, product cart.Product, quantity int) {
	t.Helper()
	err := f.sessions.With(context.Background(), sessionID, cart.Discard, func(store *cart.Store) error {
		return store.AddToCart(context.Background(), product, quantity)
	})
	if err != nil {
		t.Fatalf("add to cart: %v", err)
	}
}

func (f *checkoutFixture) cartItems(t *testing.T, sessionID string) int {
	t.Helper()
	total := 0
	err := f.sessions.With(context.Background(), sessionID, cart.Discard, func(store *cart.Store) error {
		total = store.TotalItems()
		return nil
	})
	if err != nil {
		t.Fatalf("read cart: %v", err)
	}
	return total
}

func cartProduct(name, price string, stock int) cart.Product {
	return cart.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Published: true,
	}
}

func validShipping() ShippingDetails {
	return ShippingDetails{
		Name:       "Asha Rao",
		Email:      "asha@example.com",
		Phone:      "9876543210",
		Address:    "12 MG Road",
		City:       "Pune",
		PostalCode: "411001",
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
	return typed
}

func requireRedirect(t *testing.T, err *pkgerrors.Error, path string) {
	t.Helper()
	details, ok := err.Details().(map[string]any)
	if !ok || details["redirect"] != path {
		t.Fatalf("expected redirect %s, got %v", path, err.Details())
	}
}
