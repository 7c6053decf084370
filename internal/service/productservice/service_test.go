package productservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lpbborges/auto-pos/internal/domain"
	apperror "github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/cache"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
	"github.com/lpbborges/auto-pos/internal/service/productservice"
)

// MockProductRepository é uma implementação mock da interface ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindByID(ctx context.Context, storeID, id string) (domain.Product, error) {
	args := m.Called(ctx, storeID, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, storeID string) ([]domain.Product, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) SoftDelete(ctx context.Context, storeID, id string, deletedAt time.Time) error {
	args := m.Called(ctx, storeID, id, deletedAt)
	return args.Error(0)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, storeID, id string, quantity int) (domain.Product, error) {
	args := m.Called(ctx, storeID, id, quantity)
	return args.Get(0).(domain.Product), args.Error(1)
}

// fakeCache é um cache.Client em memória, suficiente para observar a
// persistência do snapshot sem um Redis real.
type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.values[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return val, nil
}

func (c *fakeCache) GetInt(ctx context.Context, key string) (int, error) {
	return 0, cache.ErrCacheMiss
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case string:
		c.values[key] = v
	case []byte:
		c.values[key] = string(v)
	}
	return nil
}

func (c *fakeCache) Incr(ctx context.Context, key string) error { return nil }

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok, nil
}

const testStoreID = "store-1"

func newTestService() (*productservice.Service, *MockProductRepository, *fakeCache) {
	mockRepo := new(MockProductRepository)
	fc := newFakeCache()
	svc := productservice.NewService(mockRepo, fc, "pos:catalog:v1", time.Hour, logger.NewLogger("debug"))
	return svc, mockRepo, fc
}

func seedProduct(name string, price float64, stock int) domain.Product {
	now := time.Now().UTC()
	return domain.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     price,
		Stock:     stock,
		StoreID:   testStoreID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestCreateProduct_Sucesso testa a materialização do draft: ID gerado,
// timestamps iguais na criação, persistência e reflexo no espelho.
func TestCreateProduct_Sucesso(t *testing.T) {
	svc, mockRepo, fc := newTestService()

	persisted := seedProduct("Coffee", 4.5, 50)
	mockRepo.On("FindAll", mock.Anything, testStoreID).Return([]domain.Product{}, nil)
	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(p domain.Product) bool {
		// O serviço materializa o draft antes de persistir: ID novo (UUID) e
		// timestamps iguais na criação.
		_, err := uuid.Parse(p.ID)
		return err == nil && p.Name == "Coffee" && p.Price == 4.5 && p.Stock == 50 &&
			p.CreatedAt.Equal(p.UpdatedAt)
	})).Return(persisted, nil)

	created, err := svc.CreateProduct(context.Background(), domain.ProductDraft{
		Name: "Coffee", Price: 4.5, Stock: 50, StoreID: testStoreID,
	})

	assert.NoError(t, err)
	assert.Equal(t, persisted.ID, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	// O produto novo aparece na listagem servida pelo espelho.
	list, err := svc.ListProducts(context.Background(), testStoreID, "")
	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	// E o snapshot de fallback foi persistido sob a chave fixa da loja.
	blob, err := fc.Get(context.Background(), "pos:catalog:v1:"+testStoreID)
	assert.NoError(t, err)
	assert.Contains(t, blob, created.ID)
	mockRepo.AssertExpectations(t)
}

// TestCreateProduct_Validacao testa as regras do draft: nome obrigatório,
// preço e estoque não negativos.
func TestCreateProduct_Validacao(t *testing.T) {
	svc, mockRepo, _ := newTestService()

	cases := []struct {
		name  string
		draft domain.ProductDraft
	}{
		{"sem nome", domain.ProductDraft{Price: 1, Stock: 1, StoreID: testStoreID}},
		{"preço negativo", domain.ProductDraft{Name: "X", Price: -1, Stock: 1, StoreID: testStoreID}},
		{"estoque negativo", domain.ProductDraft{Name: "X", Price: 1, Stock: -1, StoreID: testStoreID}},
		{"sem loja", domain.ProductDraft{Name: "X", Price: 1, Stock: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tc.draft)
			assert.Error(t, err)
			var appErr apperror.AppError
			assert.True(t, errors.As(err, &appErr))
			assert.Equal(t, "VALIDATION_ERROR", appErr.Category())
		})
	}
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestListProducts_ExcluiTombstonesEFiltra testa que as listagens escondem
// produtos deletados e aplicam a busca case-insensitive.
func TestListProducts_ExcluiTombstonesEFiltra(t *testing.T) {
	svc, mockRepo, _ := newTestService()

	deletedAt := time.Now().UTC()
	deleted := seedProduct("Produto Morto", 1, 5)
	deleted.DeletedAt = &deletedAt

	mockRepo.On("FindAll", mock.Anything, testStoreID).Return([]domain.Product{
		seedProduct("Café Expresso", 4.5, 10),
		seedProduct("Suco de Laranja", 7, 0),
		deleted,
	}, nil)

	all, err := svc.ListProducts(context.Background(), testStoreID, "")
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := svc.ListProducts(context.Background(), testStoreID, "CAFÉ")
	assert.NoError(t, err)
	assert.Len(t, filtered, 1)
	assert.Equal(t, "Café Expresso", filtered[0].Name)

	// Available exige estoque positivo: o suco zerado some.
	available, err := svc.ListAvailableProducts(context.Background(), testStoreID, "")
	assert.NoError(t, err)
	assert.Len(t, available, 1)
	assert.Equal(t, "Café Expresso", available[0].Name)

	// O FindAll do banco acontece uma única vez (espelho carregado no primeiro acesso).
	mockRepo.AssertNumberOfCalls(t, "FindAll", 1)
}

// TestListProducts_FallbackDoSnapshot testa que, com o banco indisponível na
// carga inicial, o catálogo é restaurado do snapshot persistido no cache.
func TestListProducts_FallbackDoSnapshot(t *testing.T) {
	svc, mockRepo, fc := newTestService()

	product := seedProduct("Café Expresso", 4.5, 10)
	blob := `[{"id":"` + product.ID + `","name":"Café Expresso","price":4.5,"stock":10,"store_id":"store-1"}]`
	fc.Set(context.Background(), "pos:catalog:v1:"+testStoreID, blob, time.Hour)

	mockRepo.On("FindAll", mock.Anything, testStoreID).
		Return([]domain.Product{}, errors.New("connection refused"))

	list, err := svc.ListProducts(context.Background(), testStoreID, "")

	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, product.ID, list[0].ID)
}

// TestGetProductByID_IDInvalido testa a validação de UUID antes do repositório.
func TestGetProductByID_IDInvalido(t *testing.T) {
	svc, mockRepo, _ := newTestService()

	_, err := svc.GetProductByID(context.Background(), testStoreID, "nao-e-uuid")

	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything, mock.Anything)
}

// TestUpdateProduct_MesclaPatch testa o merge parcial sobre o estado atual.
func TestUpdateProduct_MesclaPatch(t *testing.T) {
	svc, mockRepo, _ := newTestService()

	current := seedProduct("Café", 4.5, 10)
	newPrice := 5.0

	mockRepo.On("FindAll", mock.Anything, testStoreID).Return([]domain.Product{current}, nil)
	mockRepo.On("FindByID", mock.Anything, testStoreID, current.ID).Return(current, nil)
	merged := current
	merged.Price = newPrice
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(p domain.Product) bool {
		// Só o preço muda; nome e estoque são preservados.
		return p.ID == current.ID && p.Price == 5.0 && p.Name == "Café" && p.Stock == 10
	})).Return(merged, nil)

	updated, err := svc.UpdateProduct(context.Background(), testStoreID, current.ID, domain.ProductPatch{Price: &newPrice})

	assert.NoError(t, err)
	assert.Equal(t, 5.0, updated.Price)

	// O espelho reflete o novo preço.
	list, _ := svc.ListProducts(context.Background(), testStoreID, "")
	assert.Equal(t, 5.0, list[0].Price)
	mockRepo.AssertExpectations(t)
}

// TestUpdateProduct_NaoEncontrado testa que atualizar um ID inexistente na
// cópia durável retorna NotFound para a API.
func TestUpdateProduct_NaoEncontrado(t *testing.T) {
	svc, mockRepo, _ := newTestService()

	id := uuid.NewString()
	name := "Novo Nome"
	mockRepo.On("FindByID", mock.Anything, testStoreID, id).
		Return(domain.Product{}, apperror.NewNotFoundError("Produto não encontrado"))

	_, err := svc.UpdateProduct(context.Background(), testStoreID, id, domain.ProductPatch{Name: &name})

	assert.Error(t, err)
	var appErr apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Category())
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// TestDeleteProduct_SoftDelete testa que o delete é lógico: o produto some
// das listagens mas o registro permanece na cópia durável.
func TestDeleteProduct_SoftDelete(t *testing.T) {
	svc, mockRepo, _ := newTestService()

	product := seedProduct("Café", 4.5, 10)
	mockRepo.On("FindAll", mock.Anything, testStoreID).Return([]domain.Product{product}, nil)
	mockRepo.On("SoftDelete", mock.Anything, testStoreID, product.ID, mock.Anything).Return(nil)

	err := svc.DeleteProduct(context.Background(), testStoreID, product.ID)

	assert.NoError(t, err)
	list, _ := svc.ListProducts(context.Background(), testStoreID, "")
	assert.Empty(t, list)
	mockRepo.AssertExpectations(t)
}

// TestApplyStockDecrement testa o reflexo no espelho da baixa já aplicada
// pelo sequenciador, com saturação em zero.
func TestApplyStockDecrement(t *testing.T) {
	svc, mockRepo, _ := newTestService()

	product := seedProduct("Café", 4.5, 10)
	mockRepo.On("FindAll", mock.Anything, testStoreID).Return([]domain.Product{product}, nil)

	svc.ApplyStockDecrement(context.Background(), testStoreID, product.ID, 2)
	list, _ := svc.ListProducts(context.Background(), testStoreID, "")
	assert.Equal(t, 8, list[0].Stock)

	svc.ApplyStockDecrement(context.Background(), testStoreID, product.ID, 1000)
	list, _ = svc.ListProducts(context.Background(), testStoreID, "")
	assert.Equal(t, 0, list[0].Stock)
}
