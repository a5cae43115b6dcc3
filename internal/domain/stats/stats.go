// Package stats builds the business summary shown on a manager's dashboard.
package stats

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/orderdesk/internal/domain/order"
)

// Scope selects the records a snapshot is built from. An empty AgentID
// covers the whole tenant of ManagerID.
type Scope struct {
	ManagerID string
	AgentID   string
}

// CompletedOrder is the revenue-relevant projection of a DONE order.
type CompletedOrder struct {
	CompletedAt time.Time
	Total       decimal.Decimal
}

// LinkRecord is a link as seen by the aggregator. AgentID is empty for links
// the manager created.
type LinkRecord struct {
	AgentID   string
	AgentName string
	CreatedAt time.Time
}

// Repository reads the records a snapshot is computed from.
type Repository interface {
	CountOrdersByStatus(ctx context.Context, scope Scope) (map[order.Status]int, error)
	// FindCompletedOrders returns DONE orders completed in [from, to).
	FindCompletedOrders(ctx context.Context, scope Scope, from, to time.Time) ([]CompletedOrder, error)
	// FindLinks returns links created in [from, to).
	FindLinks(ctx context.Context, scope Scope, from, to time.Time) ([]LinkRecord, error)
}

// AgentLinks is the number of links one agent created.
type AgentLinks struct {
	AgentID   string
	AgentName string
	Count     int
}

// LinkStats splits the links created this month by creator.
type LinkStats struct {
	ByManager int
	ByAgents  int
	// PerAgent is sorted by agent id.
	PerAgent []AgentLinks
}

// MonthData is one calendar month of completed-order revenue.
type MonthData struct {
	Month           time.Month
	Revenue         decimal.Decimal
	CompletedOrders int
}

// Snapshot is the aggregated view for the month containing the reference
// time. YearlyData is indexed by month, January first.
type Snapshot struct {
	Year           int
	Month          time.Month
	Links          LinkStats
	OrdersByStatus map[order.Status]int
	MonthlyIncome  decimal.Decimal
	YearlyData     [12]MonthData
}
