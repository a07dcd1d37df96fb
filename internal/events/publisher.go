package events

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"storefront-service/internal/models"
)

// The storefront is single-tenant; events still carry a tenant for the shared consumers
const TenantID = "storefront"

// Import event types
const (
	ImportCompleted  = "import.completed"
	ImportCancelled  = "import.cancelled"
	CategoriesLinked = "import.categories_linked"

	ImportStream = "IMPORT_EVENTS"
)

// ImportEvent reports the outcome of a spreadsheet import or category retrofit
type ImportEvent struct {
	events.BaseEvent
	SessionID  string `json:"sessionId,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	Success    int    `json:"success"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	Updated    int    `json:"updated,omitempty"`
	ActorID    string `json:"actorId,omitempty"`
	ActorEmail string `json:"actorEmail,omitempty"`
}

func (e *ImportEvent) GetSubject() string {
	return e.EventType
}

func (e *ImportEvent) GetStream() string {
	return ImportStream
}

// Actor identifies the admin behind an event
type Actor struct {
	ID    string
	Email string
}

// Publisher wraps the go-shared events publisher for catalog and import events
type Publisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewPublisher connects to NATS and makes sure the streams exist
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		natsURL = os.Getenv("NATS_URL")
	}

	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "storefront-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publisher.EnsureStream(ctx, events.StreamProducts, []string{"product.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure products stream (may already exist)")
	}
	if err := publisher.EnsureStream(ctx, ImportStream, []string{"import.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure IMPORT_EVENTS stream")
	}

	return &Publisher{
		publisher: publisher,
		logger:    logger.WithField("component", "storefront-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
}

// IsConnected reports whether the NATS connection is up
func (p *Publisher) IsConnected() bool {
	return p.publisher != nil && p.publisher.IsConnected()
}

// PublishImportFinished publishes import.completed or import.cancelled for a commit run
func (p *Publisher) PublishImportFinished(ctx context.Context, sessionID uuid.UUID, fileName string, categoryID *uuid.UUID, result models.ImportResult, actor Actor) error {
	eventType := ImportCompleted
	if result.Cancelled {
		eventType = ImportCancelled
	}
	event := &ImportEvent{
		BaseEvent: events.BaseEvent{
			EventType: eventType,
			TenantID:  TenantID,
			SourceID:  sessionID.String(),
			Timestamp: time.Now().UTC(),
		},
		SessionID:  sessionID.String(),
		FileName:   fileName,
		Success:    result.Success,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
	}
	if categoryID != nil {
		event.CategoryID = categoryID.String()
	}
	return p.publishImport(ctx, event)
}

// PublishCategoriesLinked publishes the outcome of a category retrofit
func (p *Publisher) PublishCategoriesLinked(ctx context.Context, categoryID uuid.UUID, result models.RetrofitResult, actor Actor) error {
	event := &ImportEvent{
		BaseEvent: events.BaseEvent{
			EventType: CategoriesLinked,
			TenantID:  TenantID,
			SourceID:  uuid.New().String(),
			Timestamp: time.Now().UTC(),
		},
		CategoryID: categoryID.String(),
		Updated:    result.Updated,
		Skipped:    result.Skipped,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
	}
	return p.publishImport(ctx, event)
}

// PublishProductCreated publishes a product.created event
func (p *Publisher) PublishProductCreated(ctx context.Context, product *models.Product, actor Actor) error {
	event := p.buildProductEvent(events.ProductCreated, product)
	event.ActorID = actor.ID
	event.ActorEmail = actor.Email
	event.ChangeType = "created"
	return p.publishProduct(ctx, event)
}

// PublishProductUpdated publishes a product.updated event
func (p *Publisher) PublishProductUpdated(ctx context.Context, product *models.Product, changedFields []string, actor Actor) error {
	event := p.buildProductEvent(events.ProductUpdated, product)
	event.ActorID = actor.ID
	event.ActorEmail = actor.Email
	event.ChangeType = "updated"
	event.ChangedFields = changedFields
	return p.publishProduct(ctx, event)
}

// PublishProductDeleted publishes a product.deleted event
func (p *Publisher) PublishProductDeleted(ctx context.Context, product *models.Product, actor Actor) error {
	event := p.buildProductEvent(events.ProductDeleted, product)
	event.ActorID = actor.ID
	event.ActorEmail = actor.Email
	event.ChangeType = "deleted"
	return p.publishProduct(ctx, event)
}

func (p *Publisher) buildProductEvent(eventType string, product *models.Product) *events.ProductEvent {
	event := events.NewProductEvent(eventType, TenantID)
	event.SourceID = uuid.New().String()
	event.ProductID = product.ID.String()
	event.ProductName = product.Title
	event.Status = string(product.Status)
	if product.ExternalID != nil {
		event.SKU = *product.ExternalID
	}
	if product.Price != nil {
		event.Price = product.Price.InexactFloat64()
	}
	if len(product.Categories) > 0 {
		event.CategoryID = product.Categories[0].ID.String()
	}
	return event
}

// publishProduct publishes asynchronously so request handlers never wait on NATS
func (p *Publisher) publishProduct(ctx context.Context, event *events.ProductEvent) error {
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.publisher.PublishProduct(pubCtx, event); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"productID": event.ProductID,
			}).WithError(err).Error("Failed to publish product event")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"eventType":   event.EventType,
			"productID":   event.ProductID,
			"productName": event.ProductName,
		}).Debug("Product event published")
	}()

	return nil
}

func (p *Publisher) publishImport(ctx context.Context, event *ImportEvent) error {
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.WithFields(logrus.Fields{
			"eventType": event.EventType,
			"sessionID": event.SessionID,
		}).WithError(err).Error("Failed to publish import event")
		return err
	}
	return nil
}
