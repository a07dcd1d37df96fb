package importer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"storefront-service/internal/models"
)

// memoryStore is an in-memory CatalogStore with call counters and injectable failures
type memoryStore struct {
	mu       sync.Mutex
	products map[string]*models.Product // by external id
	links    map[models.ProductCategory]struct{}

	lookupCalls int
	insertCalls int
	lookupErr   error
	insertErr   map[string]error
	linkErr     error

	// beforeInsert runs at the start of every insert, afterInsert after every
	// successful one; tests use them to cancel mid-run
	beforeInsert func()
	afterInsert  func(n int)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		products:  make(map[string]*models.Product),
		links:     make(map[models.ProductCategory]struct{}),
		insertErr: make(map[string]error),
	}
}

func (m *memoryStore) seed(externalIDs ...string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(externalIDs))
	for _, ext := range externalIDs {
		ext := ext
		p := &models.Product{ID: uuid.New(), ExternalID: &ext, Status: models.ProductStatusActive}
		m.products[ext] = p
		ids = append(ids, p.ID)
	}
	return ids
}

func (m *memoryStore) FindProductsByExternalIDs(ctx context.Context, externalIDs []string) ([]ExistingProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupCalls++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	out := make([]ExistingProduct, 0)
	for _, ext := range externalIDs {
		if p, ok := m.products[ext]; ok {
			out = append(out, ExistingProduct{ID: p.ID, ExternalID: ext})
		}
	}
	return out, nil
}

// InsertProduct fails on a cancelled context the way a database driver does
func (m *memoryStore) InsertProduct(ctx context.Context, product *models.Product) error {
	if m.beforeInsert != nil {
		m.beforeInsert()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.insertCalls++
	ext := *product.ExternalID
	if err, ok := m.insertErr[ext]; ok {
		m.mu.Unlock()
		return err
	}
	if _, ok := m.products[ext]; ok {
		m.mu.Unlock()
		return ErrAlreadyExists
	}
	m.products[ext] = product
	n := len(m.products)
	hook := m.afterInsert
	m.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

func (m *memoryStore) InsertCategoryLink(ctx context.Context, productID, categoryID uuid.UUID) error {
	return m.InsertCategoryLinks(ctx, []models.ProductCategory{{ProductID: productID, CategoryID: categoryID}})
}

func (m *memoryStore) InsertCategoryLinks(ctx context.Context, links []models.ProductCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.linkErr != nil {
		return m.linkErr
	}
	for _, l := range links {
		if _, ok := m.links[l]; ok {
			return errors.New("duplicate key value violates unique constraint")
		}
		m.links[l] = struct{}{}
	}
	return nil
}

func (m *memoryStore) FindCategoryLinks(ctx context.Context, productIDs []uuid.UUID, categoryID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uuid.UUID, 0)
	for _, id := range productIDs {
		if _, ok := m.links[models.ProductCategory{ProductID: id, CategoryID: categoryID}]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memoryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	return nil, nil
}

func (m *memoryStore) linkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

// row builds a complete AliExpress row; overrides replace or, with "", remove cells
func row(n int, externalID string, overrides map[string]string) Row {
	cells := map[string]string{
		models.ColProductID:        externalID,
		models.ColImageURL:         "https://img.example.com/" + externalID + ".jpg",
		models.ColProductDesc:      "Wireless earbuds " + externalID,
		models.ColOriginPrice:      "MXN 91.60",
		models.ColDiscountPrice:    "MXN 83.90",
		models.ColDiscount:         "8%",
		models.ColCurrency:         "MXN",
		models.ColSales180Day:      "2223",
		models.ColPositiveFeedback: "94.30%",
		models.ColPromotionURL:     "https://s.click.aliexpress.com/e/_" + externalID + "?aff=1",
	}
	for k, v := range overrides {
		if v == "" {
			delete(cells, k)
			continue
		}
		cells[k] = v
	}
	return Row{Number: n, Cells: cells}
}
