package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DashboardService serves per-user aggregates. Results are cached per user
// and calendar day until a ledger write invalidates them.
type DashboardService struct {
	store   *storage.SQLiteRepository
	cache   cache.Cache[core.Dashboard]
	metrics *metrics.Metrics
	flight  singleflight.Group
	now     func() time.Time
	load    func(ctx context.Context, userID int64, today core.Date) (core.Dashboard, error)

	mu          sync.Mutex
	generations map[int64]uint64
}

// NewDashboardService wires the service. c and m may be nil.
func NewDashboardService(store *storage.SQLiteRepository, c cache.Cache[core.Dashboard], m *metrics.Metrics) *DashboardService {
	s := &DashboardService{
		store:       store,
		cache:       c,
		metrics:     m,
		now:         time.Now,
		generations: make(map[int64]uint64),
	}
	s.load = s.loadFromStore
	return s
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("user:%d:", userID)
}

func (s *DashboardService) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// Invalidate drops every cached dashboard of the user. Loads already in
// flight will not populate the cache afterwards.
func (s *DashboardService) Invalidate(userID int64) {
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.DeletePrefix(userPrefix(userID))
	}
}

// Stats returns the dashboard for the user as of today.
func (s *DashboardService) Stats(ctx context.Context, userID int64) (core.Dashboard, error) {
	today := core.DateOf(s.now())
	key := userPrefix(userID) + today.String()

	if s.cache != nil {
		if d, ok := s.cache.Get(key); ok {
			s.metrics.CacheLookup(true)
			return d, nil
		}
		s.metrics.CacheLookup(false)
	}

	gen := s.generation(userID)
	flightKey := fmt.Sprintf("%s#%d", key, gen)

	// The shared load outlives any single caller, so one client going away
	// does not fail the others waiting on the same key.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(flightKey, func() (any, error) {
		d, err := s.load(loadCtx, userID, today)
		if err != nil {
			return core.Dashboard{}, err
		}
		if s.cache != nil && s.generation(userID) == gen {
			s.cache.Set(key, d)
		}
		return d, nil
	})

	select {
	case <-ctx.Done():
		return core.Dashboard{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return core.Dashboard{}, res.Err
		}
		return res.Val.(core.Dashboard), nil
	}
}

func (s *DashboardService) loadFromStore(ctx context.Context, userID int64, today core.Date) (core.Dashboard, error) {
	var (
		incomes     []core.Income
		expenses    []core.Expense
		liabilities []core.Liability
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomes, err = s.store.ListIncomesByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListExpensesByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		liabilities, err = s.store.ListLiabilities(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("load dashboard data: %w", err)
	}

	return core.BuildDashboard(today, incomes, expenses, liabilities), nil
}
