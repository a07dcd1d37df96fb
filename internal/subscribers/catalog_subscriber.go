package subscribers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	gosharedevents "github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"storefront-service/internal/events"
)

// CacheEvicter is the part of the catalog repository that drops cached reads
type CacheEvicter interface {
	EvictProduct(ctx context.Context, productID uuid.UUID)
	EvictCatalog(ctx context.Context)
}

// CatalogSubscriber keeps each replica's in-process cache in step with catalog
// writes made by the other replicas
type CatalogSubscriber struct {
	subscriber *gosharedevents.Subscriber
	cache      CacheEvicter
	logger     *logrus.Entry
	cancel     context.CancelFunc
}

// NewCatalogSubscriber connects a consumer named after the replica so each replica sees every event
func NewCatalogSubscriber(natsURL, replicaID string, cache CacheEvicter, logger *logrus.Logger) (*CatalogSubscriber, error) {
	// consumer names may not contain dots
	replicaID = strings.ReplaceAll(replicaID, ".", "-")
	if replicaID == "" {
		replicaID = uuid.NewString()
	}
	config := gosharedevents.DefaultSubscriberConfig(natsURL, "storefront-cache-"+replicaID)
	config.Name = "storefront-catalog-subscriber-" + replicaID
	config.DeliverPolicy = "new"
	config.MaxDeliver = 3
	config.AckWait = 30 * time.Second

	subscriber, err := gosharedevents.NewSubscriber(config, logger)
	if err != nil {
		return nil, err
	}
	return newCatalogSubscriber(subscriber, cache, logger), nil
}

func newCatalogSubscriber(subscriber *gosharedevents.Subscriber, cache CacheEvicter, logger *logrus.Logger) *CatalogSubscriber {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CatalogSubscriber{
		subscriber: subscriber,
		cache:      cache,
		logger:     logger.WithField("component", "catalog-subscriber"),
	}
}

// Start subscribes to product and import events
func (s *CatalogSubscriber) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	productSubjects := []string{
		gosharedevents.ProductCreated,
		gosharedevents.ProductUpdated,
		gosharedevents.ProductDeleted,
	}
	if err := s.subscriber.Subscribe(ctx, gosharedevents.StreamProducts, productSubjects, s.handleProductMessage); err != nil {
		cancel()
		return err
	}

	importSubjects := []string{events.ImportCompleted, events.ImportCancelled, events.CategoriesLinked}
	if err := s.subscriber.Subscribe(ctx, events.ImportStream, importSubjects, s.handleImportMessage); err != nil {
		cancel()
		return err
	}

	s.logger.Info("Catalog subscriber started")
	return nil
}

func (s *CatalogSubscriber) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *CatalogSubscriber) handleProductMessage(ctx context.Context, msg *gosharedevents.Message) error {
	var event gosharedevents.ProductEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logger.WithError(err).Warn("Dropping malformed product event")
		return nil
	}
	if event.TenantID != events.TenantID {
		return nil
	}

	productID, err := uuid.Parse(event.ProductID)
	if err != nil {
		s.cache.EvictCatalog(ctx)
		return nil
	}
	s.cache.EvictProduct(ctx, productID)

	s.logger.WithFields(logrus.Fields{
		"eventType": event.EventType,
		"productID": event.ProductID,
	}).Debug("Evicted cached product")
	return nil
}

// handleImportMessage clears the whole catalog; an import touches many products at once
func (s *CatalogSubscriber) handleImportMessage(ctx context.Context, msg *gosharedevents.Message) error {
	var event events.ImportEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logger.WithError(err).Warn("Dropping malformed import event")
		return nil
	}
	if event.EventType == events.ImportCancelled && event.Success == 0 {
		return nil
	}
	s.cache.EvictCatalog(ctx)
	return nil
}
