package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ecomcore/catalog/internal/domain"
	pkgkafka "github.com/ecomcore/catalog/pkg/kafka"
)

// Kafka topics published by the catalog service.
const (
	TopicProductCreated  = "commerce.product.created"
	TopicProductUpdated  = "commerce.product.updated"
	TopicProductArchived = "commerce.product.archived"

	TopicStockReserved  = "commerce.stock.reserved"
	TopicStockReleased  = "commerce.stock.released"
	TopicStockFulfilled = "commerce.stock.fulfilled"
	TopicStockAdjusted  = "commerce.stock.adjusted"
	TopicStockLow       = "commerce.stock.low"
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeVariant = "variant"
)

// SourceCatalogService identifies events originating from this service.
const SourceCatalogService = "catalog-service"

// ProductEventData is the payload for product lifecycle events.
type ProductEventData struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Status    string `json:"status"`
}

// StockEventData is the payload for stock movement events.
type StockEventData struct {
	VariantID string `json:"variant_id"`
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
}

// LowStockData is the payload for a stock.low event.
type LowStockData struct {
	VariantID string `json:"variant_id"`
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Available int    `json:"available"`
	Threshold int    `json:"threshold"`
}

// Producer publishes catalog domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishProductEvent publishes a product lifecycle event to the given topic.
func (p *Producer) PublishProductEvent(ctx context.Context, topic string, product *domain.Product) error {
	data := ProductEventData{
		ProductID: product.ID,
		Name:      product.Name,
		Slug:      product.Slug,
		Status:    product.Status,
	}

	event, err := pkgkafka.NewEvent(topic, product.ID, AggregateTypeProduct, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	return nil
}

// PublishStockEvent publishes a stock movement event to the given topic.
// Quantity carries the operation's magnitude; the remaining fields are the
// variant's state after the movement.
func (p *Producer) PublishStockEvent(ctx context.Context, topic string, variant *domain.Variant, quantity int) error {
	data := StockEventData{
		VariantID: variant.ID,
		ProductID: variant.ProductID,
		SKU:       variant.SKU,
		Quantity:  quantity,
		Stock:     variant.Stock,
		Reserved:  variant.ReservedStock,
		Available: variant.AvailableStock(),
	}

	event, err := pkgkafka.NewEvent(topic, variant.ID, AggregateTypeVariant, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	return nil
}

// PublishLowStock publishes a stock.low event for a variant whose available
// stock fell to or below its alert threshold.
func (p *Producer) PublishLowStock(ctx context.Context, variant *domain.Variant) error {
	data := LowStockData{
		VariantID: variant.ID,
		ProductID: variant.ProductID,
		SKU:       variant.SKU,
		Available: variant.AvailableStock(),
		Threshold: variant.MinStockAlert,
	}

	event, err := pkgkafka.NewEvent(TopicStockLow, variant.ID, AggregateTypeVariant, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create stock.low event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicStockLow, event); err != nil {
		return fmt.Errorf("publish stock.low event: %w", err)
	}

	p.logger.DebugContext(ctx, "published stock.low event",
		slog.String("variant_id", variant.ID),
		slog.String("sku", variant.SKU),
	)

	return nil
}
