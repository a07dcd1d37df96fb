package subscribers

import (
	"context"
	"encoding/json"
	"testing"

	gosharedevents "github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"storefront-service/internal/events"
)

type mockEvicter struct {
	mock.Mock
}

func (m *mockEvicter) EvictProduct(ctx context.Context, productID uuid.UUID) {
	m.Called(ctx, productID)
}

func (m *mockEvicter) EvictCatalog(ctx context.Context) {
	m.Called(ctx)
}

func message(t *testing.T, v any) *gosharedevents.Message {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return &gosharedevents.Message{Data: data}
}

func TestHandleProductMessage(t *testing.T) {
	productID := uuid.New()

	t.Run("evicts the product", func(t *testing.T) {
		cache := new(mockEvicter)
		cache.On("EvictProduct", mock.Anything, productID).Once()
		s := newCatalogSubscriber(nil, cache, nil)

		event := gosharedevents.NewProductEvent(gosharedevents.ProductUpdated, events.TenantID)
		event.ProductID = productID.String()

		assert.NoError(t, s.handleProductMessage(context.Background(), message(t, event)))
		cache.AssertExpectations(t)
	})

	t.Run("ignores other tenants", func(t *testing.T) {
		cache := new(mockEvicter)
		s := newCatalogSubscriber(nil, cache, nil)

		event := gosharedevents.NewProductEvent(gosharedevents.ProductUpdated, "marketplace")
		event.ProductID = productID.String()

		assert.NoError(t, s.handleProductMessage(context.Background(), message(t, event)))
		cache.AssertNotCalled(t, "EvictProduct", mock.Anything, mock.Anything)
	})

	t.Run("malformed payload is acked", func(t *testing.T) {
		cache := new(mockEvicter)
		s := newCatalogSubscriber(nil, cache, nil)

		err := s.handleProductMessage(context.Background(), &gosharedevents.Message{Data: []byte("{")})
		assert.NoError(t, err)
		cache.AssertNotCalled(t, "EvictCatalog", mock.Anything)
	})
}

func TestHandleImportMessage(t *testing.T) {
	tests := []struct {
		name    string
		event   events.ImportEvent
		evicted bool
	}{
		{"completed import", events.ImportEvent{BaseEvent: gosharedevents.BaseEvent{EventType: events.ImportCompleted}, Success: 4}, true},
		{"categories linked", events.ImportEvent{BaseEvent: gosharedevents.BaseEvent{EventType: events.CategoriesLinked}, Updated: 2}, true},
		{"cancelled before any row", events.ImportEvent{BaseEvent: gosharedevents.BaseEvent{EventType: events.ImportCancelled}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := new(mockEvicter)
			if tt.evicted {
				cache.On("EvictCatalog", mock.Anything).Once()
			}
			s := newCatalogSubscriber(nil, cache, nil)

			assert.NoError(t, s.handleImportMessage(context.Background(), message(t, &tt.event)))
			if tt.evicted {
				cache.AssertExpectations(t)
			} else {
				cache.AssertNotCalled(t, "EvictCatalog", mock.Anything)
			}
		})
	}
}
