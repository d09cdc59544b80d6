// Package lease implements per-project exclusive deployment leases as an
// arena of named, TTL-bounded claims stored next to the project's artifacts.
// The lease guards against accidental concurrent CLI invocations on the same
// project; it is a best-effort read-check-write claim, not distributed
// consensus, which matches the single-front-end-per-project usage model.
// Operations on different projects never contend.
package lease

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvin/staticdeploy/internal/store"
)

// ErrHeld is returned when a live lease already exists for the project.
var ErrHeld = errors.New("project lease is held")

// DefaultTTL bounds how long a crashed holder can block a project.
const DefaultTTL = 10 * time.Minute

type record struct {
	Holder     string    `json:"holder"`
	Token      string    `json:"token"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Arena hands out per-project leases backed by the artifact store.
type Arena struct {
	logger zerolog.Logger
	store  store.Store
	ttl    time.Duration
	holder string
	now    func() time.Time
}

// Lease is a held claim on one project's deployment operations.
type Lease struct {
	arena   *Arena
	project string
	token   string
}

func NewArena(logger zerolog.Logger, st store.Store, ttl time.Duration) *Arena {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	hostname, _ := os.Hostname()
	return &Arena{
		logger: logger.With().Str("component", "lease-arena").Logger(),
		store:  st,
		ttl:    ttl,
		holder: fmt.Sprintf("%s/%d", hostname, os.Getpid()),
		now:    time.Now,
	}
}

// Acquire claims the project's lease. A live lease held by anyone (including
// a previous run of the same process) yields ErrHeld; expired leases are
// reclaimed so a crashed holder cannot block the project forever.
func (a *Arena) Acquire(ctx context.Context, project string) (*Lease, error) {
	key := store.LeaseKey(project)

	body, err := a.store.Get(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read lease for %s: %w", project, err)
	}
	if err == nil {
		var existing record
		if jsonErr := json.Unmarshal(body, &existing); jsonErr == nil && a.now().Before(existing.ExpiresAt) {
			return nil, fmt.Errorf("project %s held by %s until %s: %w",
				project, existing.Holder, existing.ExpiresAt.Format(time.RFC3339), ErrHeld)
		}
		// Corrupt or expired lease: reclaim.
		a.logger.Warn().Str("project", project).Msg("reclaiming stale lease")
	}

	rec := record{
		Holder:     a.holder,
		Token:      uuid.NewString(),
		AcquiredAt: a.now(),
		ExpiresAt:  a.now().Add(a.ttl),
	}
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal lease for %s: %w", project, err)
	}
	if err := a.store.Put(ctx, key, recJSON, store.Meta{ContentType: "application/json"}); err != nil {
		return nil, fmt.Errorf("write lease for %s: %w", project, err)
	}

	// Read back to catch a racing writer. The store has no compare-and-swap;
	// whoever's write landed last owns the lease.
	body, err = a.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("confirm lease for %s: %w", project, err)
	}
	var confirmed record
	if err := json.Unmarshal(body, &confirmed); err != nil || confirmed.Token != rec.Token {
		return nil, fmt.Errorf("project %s claimed concurrently: %w", project, ErrHeld)
	}

	a.logger.Debug().Str("project", project).Time("expires", rec.ExpiresAt).Msg("lease acquired")
	return &Lease{arena: a, project: project, token: rec.Token}, nil
}

// Release gives up the lease. Only the holder's own claim is removed; a lease
// since reclaimed by someone else is left alone.
func (l *Lease) Release(ctx context.Context) error {
	key := store.LeaseKey(l.project)

	body, err := l.arena.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read lease for %s: %w", l.project, err)
	}
	var current record
	if err := json.Unmarshal(body, &current); err == nil && current.Token != l.token {
		return nil
	}

	if err := l.arena.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("release lease for %s: %w", l.project, err)
	}
	return nil
}
