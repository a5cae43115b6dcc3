package order

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notification announces a status change to the order's customer.
type Notification struct {
	OrderID   string
	Status    Status
	Recipient string
	Total     decimal.Decimal
}

// Notifier hands notifications to a delivery channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier records notifications in the log instead of delivering them.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier returns a Notifier writing to lg.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, msg Notification) error {
	n.lg.Info("Order notification",
		zap.String("order_id", msg.OrderID),
		zap.Stringer("status", msg.Status),
		zap.String("recipient", msg.Recipient),
		zap.String("total", msg.Total.StringFixed(2)),
	)
	return nil
}
