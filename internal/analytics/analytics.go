// Package analytics aggregates an owner's transactions into summary,
// per-category and per-month views.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Source is the slice of the transaction store the engine reads.
type Source interface {
	AllTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error)
}

// Report holds every view computed from one snapshot of an owner's data.
type Report struct {
	Summary    core.Summary
	ByCategory []core.CategoryTotal
	Monthly    []core.MonthlyTotal
}

// ExpenseBreakdown returns the expense rows of ByCategory.
func (r Report) ExpenseBreakdown() []core.CategoryTotal {
	out := make([]core.CategoryTotal, 0, len(r.ByCategory))
	for _, c := range r.ByCategory {
		if c.Type == core.Expense {
			out = append(out, c)
		}
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// Compute builds a Report. Sums are exact integer cents; the savings rate is
// rounded half away from zero to one decimal.
func Compute(txs []core.Transaction) Report {
	type catKey struct {
		category string
		typ      core.TransactionType
	}
	var (
		income, expenses core.Money
		byCat            = map[catKey]core.Money{}
		byMonth          = map[string]*core.MonthlyTotal{}
	)

	for _, t := range txs {
		byCat[catKey{t.Category, t.Type}] = byCat[catKey{t.Category, t.Type}].Add(t.Amount)

		month := t.Date.UTC().Format("2006-01")
		m, ok := byMonth[month]
		if !ok {
			m = &core.MonthlyTotal{Month: month}
			byMonth[month] = m
		}

		switch t.Type {
		case core.Income:
			income = income.Add(t.Amount)
			m.Income = m.Income.Add(t.Amount)
		case core.Expense:
			expenses = expenses.Add(t.Amount)
			m.Expenses = m.Expenses.Add(t.Amount)
		}
	}

	net := income.Sub(expenses)
	rate := decimal.Zero
	if income.Cents > 0 {
		rate = net.Decimal().Div(income.Decimal()).Mul(hundred).Round(1)
	}

	r := Report{
		Summary: core.Summary{
			TotalIncome:   income,
			TotalExpenses: expenses,
			NetBalance:    net,
			SavingsRate:   rate,
		},
		ByCategory: make([]core.CategoryTotal, 0, len(byCat)),
		Monthly:    make([]core.MonthlyTotal, 0, len(byMonth)),
	}
	for k, total := range byCat {
		r.ByCategory = append(r.ByCategory, core.CategoryTotal{Category: k.category, Type: k.typ, Total: total})
	}
	sort.Slice(r.ByCategory, func(i, j int) bool {
		a, b := r.ByCategory[i], r.ByCategory[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Type < b.Type
	})
	for _, m := range byMonth {
		r.Monthly = append(r.Monthly, *m)
	}
	sort.Slice(r.Monthly, func(i, j int) bool { return r.Monthly[i].Month < r.Monthly[j].Month })
	return r
}

// Engine serves reports, caching them per owner until the owner writes.
type Engine struct {
	source Source
	cache  cache.Cache[Report]
	logger *applog.Logger

	// gens is bumped by Invalidate. A report is cached only if its owner's
	// generation did not move while the report was computed.
	mu   sync.Mutex
	gens map[int64]uint64
}

// NewEngine builds an engine; a nil cache disables caching.
func NewEngine(source Source, c cache.Cache[Report], logger *applog.Logger) *Engine {
	return &Engine{
		source: source,
		cache:  c,
		logger: logger.WithComponent(applog.ComponentAnalytics),
		gens:   make(map[int64]uint64),
	}
}

func cacheKey(ownerID int64) string {
	return fmt.Sprintf("owner:%d", ownerID)
}

// Report returns the full set of views for ownerID.
func (e *Engine) Report(ctx context.Context, ownerID int64) (Report, error) {
	if e.cache != nil {
		if r, ok := e.cache.Get(cacheKey(ownerID)); ok {
			return r, nil
		}
	}

	gen := e.generation(ownerID)
	txs, err := e.source.AllTransactions(ctx, ownerID)
	if err != nil {
		return Report{}, fmt.Errorf("load transactions: %w", err)
	}
	r := Compute(txs)
	e.logger.DebugContext(ctx, "Computed analytics report",
		applog.FieldUserID, ownerID, "transactions", len(txs))

	e.store(ownerID, gen, r)
	return r, nil
}

func (e *Engine) generation(ownerID int64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gens[ownerID]
}

func (e *Engine) store(ownerID int64, gen uint64, r Report) {
	if e.cache == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gens[ownerID] != gen {
		e.logger.Debug("Discarding report computed before a write", applog.FieldUserID, ownerID)
		return
	}
	e.cache.Set(cacheKey(ownerID), r)
}

func (e *Engine) Summary(ctx context.Context, ownerID int64) (core.Summary, error) {
	r, err := e.Report(ctx, ownerID)
	return r.Summary, err
}

func (e *Engine) ByCategory(ctx context.Context, ownerID int64) ([]core.CategoryTotal, error) {
	r, err := e.Report(ctx, ownerID)
	return r.ByCategory, err
}

func (e *Engine) Monthly(ctx context.Context, ownerID int64) ([]core.MonthlyTotal, error) {
	r, err := e.Report(ctx, ownerID)
	return r.Monthly, err
}

// Invalidate drops the cached report of ownerID.
func (e *Engine) Invalidate(ownerID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gens[ownerID]++
	if e.cache != nil {
		e.cache.Delete(cacheKey(ownerID))
	}
}
