package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"example.com/budget-tracker/internal/cache"
	"example.com/budget-tracker/internal/models"
)

// Sink receives invalidations after budget data changed.
type Sink interface {
	Notify(ctx context.Context, inv Invalidation) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, inv Invalidation) error

func (f SinkFunc) Notify(ctx context.Context, inv Invalidation) error {
	return f(ctx, inv)
}

type Options struct {
	DefaultWindow int
	MaxWindow     int
	CacheSize     int
	CacheTTL      time.Duration
}

// Service is the entry point of the budget engine: grouped summaries on the
// read side and the update coordinator on the write side.
type Service struct {
	store       Store
	coordinator *Coordinator
	summaries   *cache.LRUCache[GroupedSummary]
	logger      *slog.Logger
	opts        Options
	local       []Sink
	remote      []Sink

	// generations is bumped on every eviction of a user; a summary computed
	// across a bump is not cached.
	genMu       sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewService(store Store, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultWindow <= 0 {
		opts.DefaultWindow = models.DefaultAverageMonths
	}
	if opts.MaxWindow < opts.DefaultWindow {
		opts.MaxWindow = opts.DefaultWindow
	}

	s := &Service{
		store:       store,
		coordinator: NewCoordinator(store, logger),
		logger:      logger,
		opts:        opts,
		generations: make(map[uuid.UUID]uint64),
	}
	if opts.CacheSize > 0 && opts.CacheTTL > 0 {
		s.summaries = cache.NewLRUCache[GroupedSummary](opts.CacheSize, opts.CacheTTL)
	}
	return s
}

// AddLocalSink registers a sink that only reaches clients of this instance.
func (s *Service) AddLocalSink(sink Sink) {
	s.local = append(s.local, sink)
}

// AddRemoteSink registers a sink that forwards invalidations to other instances.
func (s *Service) AddRemoteSink(sink Sink) {
	s.remote = append(s.remote, sink)
}

// Cache exposes the summary cache for the background janitor; nil when caching is off.
func (s *Service) Cache() *cache.LRUCache[GroupedSummary] {
	return s.summaries
}

func (s *Service) DefaultWindow() int {
	return s.opts.DefaultWindow
}

func (s *Service) MaxWindow() int {
	return s.opts.MaxWindow
}

// ValidateWindow checks a trailing window length against the configured bounds.
func (s *Service) ValidateWindow(windowMonths int) error {
	if windowMonths <= 0 {
		return invalidf("window must be at least one month, got %d", windowMonths)
	}
	if windowMonths > s.opts.MaxWindow {
		return invalidf("window must be at most %d months, got %d", s.opts.MaxWindow, windowMonths)
	}
	return nil
}

// GetMonthlySummary builds the grouped budget summary of month for the user.
// All reads run concurrently; if any fails no summary is returned.
func (s *Service) GetMonthlySummary(ctx context.Context, userID uuid.UUID, month time.Time, windowMonths int) (GroupedSummary, error) {
	if userID == uuid.Nil {
		return GroupedSummary{}, ErrNotAuthenticated
	}
	if err := s.ValidateWindow(windowMonths); err != nil {
		return GroupedSummary{}, err
	}

	monthStart, monthEnd := MonthRange(month)
	key := summaryKey(userID, monthStart, windowMonths)
	if s.summaries != nil {
		if cached, ok := s.summaries.Get(key); ok {
			return cached, nil
		}
	}

	historyStart, err := TrailingWindowStart(monthStart, windowMonths)
	if err != nil {
		return GroupedSummary{}, err
	}
	generation := s.generation(userID)

	in := SummaryInput{Month: monthStart, WindowMonths: windowMonths}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		catalog, err := s.store.ListCategories(gctx, userID)
		if err != nil {
			return &ReadError{Query: "categories", Err: err}
		}
		in.Catalog = catalog
		return nil
	})
	g.Go(func() error {
		overrides, err := s.store.ListOverrides(gctx, userID, monthStart)
		if err != nil {
			return &ReadError{Query: "overrides", Err: err}
		}
		in.Overrides = overrides
		return nil
	})
	g.Go(func() error {
		txns, err := s.store.ListTransactions(gctx, userID, monthStart, monthEnd)
		if err != nil {
			return &ReadError{Query: "current transactions", Err: err}
		}
		in.CurrentMonth = txns
		return nil
	})
	g.Go(func() error {
		txns, err := s.store.ListTransactions(gctx, userID, historyStart, monthEnd)
		if err != nil {
			return &ReadError{Query: "historical transactions", Err: err}
		}
		in.Historical = txns
		return nil
	})
	g.Go(func() error {
		groups, err := s.store.ListSpendingGroups(gctx, userID)
		if err != nil {
			return &ReadError{Query: "spending groups", Err: err}
		}
		if len(groups) == 0 {
			if groups, err = s.store.EnsureDefaultSpendingGroups(gctx, userID); err != nil {
				return &ReadError{Query: "spending groups", Err: err}
			}
		}
		in.SpendingGroups = groups
		return nil
	})
	if err := g.Wait(); err != nil {
		return GroupedSummary{}, err
	}
	if err := ctx.Err(); err != nil {
		return GroupedSummary{}, err
	}

	summary, err := BuildSummary(s.logger, in)
	if err != nil {
		return GroupedSummary{}, err
	}

	s.cacheSummary(userID, generation, key, summary)
	return summary, nil
}

// UpdateBudget commits a budget change and applies the invalidation it
// produced, including after a partial failure.
func (s *Service) UpdateBudget(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	result, err := s.coordinator.Apply(ctx, req)

	if !result.Invalidation.IsZero() {
		s.Invalidate(ctx, result.Invalidation)
	}

	if err != nil {
		var updateErr *UpdateError
		if errors.As(err, &updateErr) {
			s.logger.Warn("budget update failed",
				slog.String("user_id", req.UserID.String()),
				slog.String("category", req.Category),
				slog.String("outcome", string(updateErr.Outcome)),
				slog.String("stage", string(updateErr.Stage)),
			)
		}
		return result, err
	}

	s.logger.Info("budget updated",
		slog.String("user_id", req.UserID.String()),
		slog.String("category_id", result.Category.ID.String()),
		slog.String("scope", string(req.Scope)),
		slog.String("month", MonthKey(req.Month)),
	)
	return result, nil
}

// Invalidate evicts cached summaries and notifies every sink.
func (s *Service) Invalidate(ctx context.Context, inv Invalidation) {
	s.ApplyRemote(ctx, inv)
	s.notify(ctx, s.remote, inv)
}

// ApplyRemote handles an invalidation that originated on another instance:
// the local cache is evicted and local clients are told, nothing is forwarded.
func (s *Service) ApplyRemote(ctx context.Context, inv Invalidation) {
	s.evict(inv)
	s.notify(ctx, s.local, inv)
}

// InvalidateUser drops every cached month of the user.
func (s *Service) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	s.Invalidate(ctx, Invalidation{UserID: userID, AllMonths: true})
}

func (s *Service) evict(inv Invalidation) {
	if s.summaries == nil || inv.UserID == uuid.Nil {
		return
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	s.generations[inv.UserID]++
	if inv.AllMonths {
		s.summaries.DeletePrefix(userPrefix(inv.UserID))
		return
	}
	for _, month := range inv.Months {
		s.summaries.DeletePrefix(monthPrefix(inv.UserID, month))
	}
}

func (s *Service) generation(userID uuid.UUID) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[userID]
}

// cacheSummary stores summary unless the user was invalidated after
// generation was read, in which case the reads may predate the change.
func (s *Service) cacheSummary(userID uuid.UUID, generation uint64, key string, summary GroupedSummary) {
	if s.summaries == nil {
		return
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	if s.generations[userID] != generation {
		return
	}
	s.summaries.Set(key, summary)
}

func (s *Service) notify(ctx context.Context, sinks []Sink, inv Invalidation) {
	for _, sink := range sinks {
		if err := sink.Notify(ctx, inv); err != nil {
			s.logger.Error("invalidation delivery failed",
				slog.String("user_id", inv.UserID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

func userPrefix(userID uuid.UUID) string {
	return userID.String() + "|"
}

func monthPrefix(userID uuid.UUID, month time.Time) string {
	return userPrefix(userID) + MonthKey(month) + "|"
}

func summaryKey(userID uuid.UUID, month time.Time, windowMonths int) string {
	return fmt.Sprintf("%s%d", monthPrefix(userID, month), windowMonths)
}

// HistoryMonth groups one month of a category's transactions, newest first.
type HistoryMonth struct {
	Month        time.Time            `json:"month"`
	Total        decimal.Decimal      `json:"total"`
	Transactions []models.Transaction `json:"transactions"`
}

type CategoryHistory struct {
	Name         string          `json:"name"`
	WindowMonths int             `json:"window_months"`
	AverageSpend decimal.Decimal `json:"average_spend"`
	Totals       []MonthTotal    `json:"totals"`
	Months       []HistoryMonth  `json:"months"`
}

// CategoryHistory returns the trailing-window spend of one category: zero
// filled per-month totals oldest first, and the transactions by month newest first.
func (s *Service) CategoryHistory(ctx context.Context, userID uuid.UUID, name string, month time.Time, windowMonths int) (CategoryHistory, error) {
	if userID == uuid.Nil {
		return CategoryHistory{}, ErrNotAuthenticated
	}
	if strings.TrimSpace(name) == "" {
		return CategoryHistory{}, invalidf("category name is required")
	}
	if err := s.ValidateWindow(windowMonths); err != nil {
		return CategoryHistory{}, err
	}

	start, err := TrailingWindowStart(month, windowMonths)
	if err != nil {
		return CategoryHistory{}, err
	}
	_, end := MonthRange(month)

	txns, err := s.store.ListTransactions(ctx, userID, start, end)
	if err != nil {
		return CategoryHistory{}, &ReadError{Query: "transactions", Err: err}
	}

	totals, err := MonthlyTotals(name, txns, month, windowMonths)
	if err != nil {
		return CategoryHistory{}, err
	}

	byMonth := make(map[string]*HistoryMonth)
	for _, tx := range txns {
		if tx.Category != name {
			continue
		}
		key := MonthKey(tx.Date)
		bucket, ok := byMonth[key]
		if !ok {
			bucket = &HistoryMonth{Month: MonthStart(CivilDate(tx.Date)), Transactions: []models.Transaction{}}
			byMonth[key] = bucket
		}
		bucket.Total = bucket.Total.Add(tx.Amount)
		bucket.Transactions = append(bucket.Transactions, tx)
	}

	months := make([]HistoryMonth, 0, len(byMonth))
	for _, bucket := range byMonth {
		sort.SliceStable(bucket.Transactions, func(i, j int) bool {
			return CivilDate(bucket.Transactions[i].Date).After(CivilDate(bucket.Transactions[j].Date))
		})
		months = append(months, *bucket)
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month.After(months[j].Month)
	})

	return CategoryHistory{
		Name:         name,
		WindowMonths: windowMonths,
		AverageSpend: AverageSpend(name, txns, windowMonths),
		Totals:       totals,
		Months:       months,
	}, nil
}
