package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ecomcore/catalog/internal/domain"
	apperrors "github.com/ecomcore/catalog/pkg/errors"
	pkgkafka "github.com/ecomcore/catalog/pkg/kafka"
)

// Kafka topics consumed by the catalog service.
const (
	TopicOrderCompleted = "commerce.order.completed"
	TopicOrderCanceled  = "commerce.order.canceled"
)

// StockService defines the operations the order-workflow consumer needs.
type StockService interface {
	Fulfill(ctx context.Context, variantID string, qty int) (*domain.Variant, error)
	Release(ctx context.Context, variantID string, qty int) (*domain.Variant, error)
}

// OrderItem is one line of an order event payload.
type OrderItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// OrderEventData is the expected payload of order.completed and
// order.canceled events.
type OrderEventData struct {
	OrderID string      `json:"order_id"`
	Items   []OrderItem `json:"items"`
}

// Consumer applies order workflow events to variant stock.
type Consumer struct {
	stock  StockService
	logger *slog.Logger
}

// NewConsumer creates a new event consumer for the catalog service.
func NewConsumer(stock StockService, logger *slog.Logger) *Consumer {
	return &Consumer{
		stock:  stock,
		logger: logger,
	}
}

// HandleOrderCompleted converts the order's reservations into permanent
// stock deductions, one variant at a time. Items referencing unknown
// variants are logged and skipped so one bad line cannot wedge the topic.
func (c *Consumer) HandleOrderCompleted(ctx context.Context, event *pkgkafka.Event) error {
	data, err := decodeOrderEvent(event)
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "processing order.completed event",
		slog.String("order_id", data.OrderID),
		slog.Int("items", len(data.Items)),
	)

	for _, item := range data.Items {
		if _, err := c.stock.Fulfill(ctx, item.VariantID, item.Quantity); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.logger.WarnContext(ctx, "skipping order item for unknown variant",
					slog.String("order_id", data.OrderID),
					slog.String("variant_id", item.VariantID),
				)
				continue
			}
			return fmt.Errorf("fulfill variant %s for order %s: %w", item.VariantID, data.OrderID, err)
		}
	}

	return nil
}

// HandleOrderCanceled releases the order's reservations.
func (c *Consumer) HandleOrderCanceled(ctx context.Context, event *pkgkafka.Event) error {
	data, err := decodeOrderEvent(event)
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "processing order.canceled event",
		slog.String("order_id", data.OrderID),
		slog.Int("items", len(data.Items)),
	)

	for _, item := range data.Items {
		if _, err := c.stock.Release(ctx, item.VariantID, item.Quantity); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.logger.WarnContext(ctx, "skipping order item for unknown variant",
					slog.String("order_id", data.OrderID),
					slog.String("variant_id", item.VariantID),
				)
				continue
			}
			return fmt.Errorf("release variant %s for order %s: %w", item.VariantID, data.OrderID, err)
		}
	}

	return nil
}

func decodeOrderEvent(event *pkgkafka.Event) (*OrderEventData, error) {
	var data OrderEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return nil, fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	return &data, nil
}
