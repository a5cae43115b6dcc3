package stats

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/orderdesk/internal/domain/order"
)

// Aggregator computes snapshots on demand. It holds no state between calls.
type Aggregator struct {
	repo   Repository
	tracer trace.Tracer
}

// NewAggregator creates an Aggregator reading from repo.
func NewAggregator(repo Repository, tp trace.TracerProvider) *Aggregator {
	return &Aggregator{
		repo:   repo,
		tracer: tp.Tracer("orderdesk.stats"),
	}
}

// Build reads orders and links for scope and aggregates them for the month
// and year containing now. Calendar boundaries use now's location.
func (a *Aggregator) Build(ctx context.Context, scope Scope, now time.Time) (*Snapshot, error) {
	ctx, span := a.tracer.Start(ctx, "stats.Build", trace.WithAttributes(
		attribute.String("manager_id", scope.ManagerID),
		attribute.String("agent_id", scope.AgentID),
	))
	defer span.End()

	loc := now.Location()
	year, month := now.Year(), now.Month()
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, loc)

	var (
		byStatus  map[order.Status]int
		completed []CompletedOrder
		links     []LinkRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if byStatus, err = a.repo.CountOrdersByStatus(gctx, scope); err != nil {
			return errors.Wrap(err, "count orders by status")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if completed, err = a.repo.FindCompletedOrders(gctx, scope, yearStart, yearStart.AddDate(1, 0, 0)); err != nil {
			return errors.Wrap(err, "find completed orders")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if links, err = a.repo.FindLinks(gctx, scope, monthStart, monthStart.AddDate(0, 1, 0)); err != nil {
			return errors.Wrap(err, "find links")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s := &Snapshot{
		Year:           year,
		Month:          month,
		Links:          aggregateLinks(links),
		OrdersByStatus: make(map[order.Status]int, len(order.Statuses)),
		MonthlyIncome:  decimal.Zero,
	}
	for _, st := range order.Statuses {
		s.OrdersByStatus[st] = byStatus[st]
	}
	for i := range s.YearlyData {
		s.YearlyData[i] = MonthData{Month: time.Month(i + 1), Revenue: decimal.Zero}
	}
	for _, o := range completed {
		at := o.CompletedAt.In(loc)
		if at.Year() != year {
			continue
		}
		m := &s.YearlyData[at.Month()-1]
		m.Revenue = m.Revenue.Add(o.Total)
		m.CompletedOrders++
	}
	s.MonthlyIncome = s.YearlyData[month-1].Revenue

	span.SetAttributes(
		attribute.Int("completed_orders", len(completed)),
		attribute.Int("links", len(links)),
	)
	return s, nil
}

func aggregateLinks(links []LinkRecord) LinkStats {
	var ls LinkStats
	perAgent := make(map[string]*AgentLinks)
	for _, l := range links {
		if l.AgentID == "" {
			ls.ByManager++
			continue
		}
		ls.ByAgents++
		al, ok := perAgent[l.AgentID]
		if !ok {
			al = &AgentLinks{AgentID: l.AgentID, AgentName: l.AgentName}
			perAgent[l.AgentID] = al
		}
		al.Count++
	}
	ls.PerAgent = make([]AgentLinks, 0, len(perAgent))
	for _, al := range perAgent {
		ls.PerAgent = append(ls.PerAgent, *al)
	}
	slices.SortFunc(ls.PerAgent, func(a, b AgentLinks) int {
		return cmp.Compare(a.AgentID, b.AgentID)
	})
	return ls
}
