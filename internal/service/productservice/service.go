package productservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lpbborges/auto-pos/internal/domain"
	apperror "github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/cache"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
	"github.com/lpbborges/auto-pos/internal/state/catalog"
)

// ProductRepository define o contrato que este Serviço espera da camada de
// Persistência (a cópia durável de registro).
type ProductRepository interface {
	Save(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, storeID, id string) (domain.Product, error)
	FindAll(ctx context.Context, storeID string) ([]domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	SoftDelete(ctx context.Context, storeID, id string, deletedAt time.Time) error
	DecrementStock(ctx context.Context, storeID, id string, quantity int) (domain.Product, error)
}

// Service implementa a interface domain.ProductService.
//
// Além do repositório, o serviço mantém um espelho reativo do catálogo por
// loja (internal/state/catalog). As listagens são servidas pelo espelho;
// toda escrita vai primeiro à cópia durável e depois é refletida nele. Após
// cada mutação o snapshot serializado do espelho é persistido no cache sob
// uma chave fixa, servindo de fallback quando o banco está indisponível na
// carga inicial.
type Service struct {
	repo        ProductRepository
	cache       cache.Client
	snapshotKey string
	snapshotTTL time.Duration
	logger      logger.Logger

	mu      sync.Mutex
	mirrors map[string]*catalog.Store // espelho do catálogo por loja
}

// NewService cria e retorna uma nova instância do Serviço de Produto.
func NewService(repo ProductRepository, cacheClient cache.Client, snapshotKey string, snapshotTTL time.Duration, log logger.Logger) *Service {
	return &Service{
		repo:        repo,
		cache:       cacheClient,
		snapshotKey: snapshotKey,
		snapshotTTL: snapshotTTL,
		logger:      log,
		mirrors:     make(map[string]*catalog.Store),
	}
}

// storeSnapshotKey monta a chave fixa do blob de fallback da loja.
func (s *Service) storeSnapshotKey(storeID string) string {
	return fmt.Sprintf("%s:%s", s.snapshotKey, storeID)
}

// mirror retorna o espelho do catálogo da loja, carregando-o no primeiro
// acesso. A carga preferencial vem do banco; se o banco falhar, o snapshot
// persistido no cache é restaurado (blob corrompido ou ausente = vazio).
func (s *Service) mirror(ctx context.Context, storeID string) *catalog.Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.mirrors[storeID]; ok {
		return m
	}

	m := catalog.NewStore(nil)
	products, err := s.repo.FindAll(ctx, storeID)
	if err == nil {
		m.Replace(products)
	} else {
		s.logger.Warn("Falha ao carregar catálogo do DB; tentando snapshot de fallback.", map[string]interface{}{
			"store_id": storeID,
			"err":      err.Error(),
		})
		blob, cacheErr := s.cache.Get(ctx, s.storeSnapshotKey(storeID))
		if cacheErr == nil {
			m.Restore([]byte(blob))
		}
	}

	s.mirrors[storeID] = m
	return m
}

// persistSnapshot serializa o espelho e o grava no cache sob a chave fixa.
// Falhas aqui são apenas logadas: o snapshot é um fallback, não a cópia de
// registro.
func (s *Service) persistSnapshot(ctx context.Context, storeID string, m *catalog.Store) {
	blob, err := m.Snapshot()
	if err != nil {
		s.logger.Error("Falha ao serializar snapshot do catálogo.", err)
		return
	}
	if err := s.cache.Set(ctx, s.storeSnapshotKey(storeID), blob, s.snapshotTTL); err != nil {
		s.logger.Warn("Falha ao persistir snapshot do catálogo.", map[string]interface{}{
			"store_id": storeID,
			"err":      err.Error(),
		})
	}
}

// CreateProduct valida o draft, materializa o produto (ID novo, timestamps
// iguais na criação), persiste e reflete no espelho.
func (s *Service) CreateProduct(ctx context.Context, draft domain.ProductDraft) (domain.Product, error) {
	if draft.Name == "" {
		return domain.Product{}, apperror.NewValidationError("O nome do produto é obrigatório.")
	}
	if draft.Price < 0 {
		return domain.Product{}, apperror.NewValidationError("O preço do produto não pode ser negativo.")
	}
	if draft.Stock < 0 {
		return domain.Product{}, apperror.NewValidationError("O estoque do produto não pode ser negativo.")
	}
	if draft.StoreID == "" {
		return domain.Product{}, apperror.NewValidationError("A loja do produto é obrigatória.")
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:        uuid.NewString(),
		Name:      draft.Name,
		Price:     draft.Price,
		Stock:     draft.Stock,
		StoreID:   draft.StoreID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.Save(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	m := s.mirror(ctx, draft.StoreID)
	m.Insert(created)
	s.persistSnapshot(ctx, draft.StoreID, m)

	return created, nil
}

// GetProductByID busca um produto pela cópia durável (com cache-aside).
func (s *Service) GetProductByID(ctx context.Context, storeID, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}
	return s.repo.FindByID(ctx, storeID, id)
}

// ListProducts retorna os produtos não deletados da loja cujo nome contém a
// consulta (case-insensitive), servidos pelo espelho do catálogo.
func (s *Service) ListProducts(ctx context.Context, storeID, search string) ([]domain.Product, error) {
	m := s.mirror(ctx, storeID)
	return m.ListMatching(search), nil
}

// ListAvailableProducts é ListProducts restrito a estoque positivo.
func (s *Service) ListAvailableProducts(ctx context.Context, storeID, search string) ([]domain.Product, error) {
	m := s.mirror(ctx, storeID)
	return m.AvailableMatching(search), nil
}

// UpdateProduct valida o patch, aplica-o sobre o estado atual e persiste.
// A busca prévia usa a cópia durável; um ID inexistente retorna NotFound
// para a API (o espelho, por contrato, trata update de ID ausente como
// no-op silencioso).
func (s *Service) UpdateProduct(ctx context.Context, storeID, id string, patch domain.ProductPatch) (domain.Product, error) {
	if patch.Name != nil && *patch.Name == "" {
		return domain.Product{}, apperror.NewValidationError("O nome do produto não pode ser vazio.")
	}
	if patch.Price != nil && *patch.Price < 0 {
		return domain.Product{}, apperror.NewValidationError("O preço do produto não pode ser negativo.")
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return domain.Product{}, apperror.NewValidationError("O estoque do produto não pode ser negativo.")
	}

	current, err := s.repo.FindByID(ctx, storeID, id)
	if err != nil {
		return domain.Product{}, err
	}

	if patch.Name != nil {
		current.Name = *patch.Name
	}
	if patch.Price != nil {
		current.Price = *patch.Price
	}
	if patch.Stock != nil {
		current.Stock = *patch.Stock
	}

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return domain.Product{}, err
	}

	m := s.mirror(ctx, storeID)
	m.Update(id, patch)
	s.persistSnapshot(ctx, storeID, m)

	return updated, nil
}

// DeleteProduct aplica o soft delete: o registro permanece na arena com o
// tombstone e some de todas as listagens.
func (s *Service) DeleteProduct(ctx context.Context, storeID, id string) error {
	if id == "" {
		return apperror.NewValidationError("O ID do produto é obrigatório.")
	}

	if err := s.repo.SoftDelete(ctx, storeID, id, time.Now().UTC()); err != nil {
		return err
	}

	m := s.mirror(ctx, storeID)
	m.SoftDelete(id)
	s.persistSnapshot(ctx, storeID, m)

	return nil
}

// ApplyStockDecrement reflete no espelho uma baixa de estoque já aplicada à
// cópia durável pelo sequenciador de venda.
func (s *Service) ApplyStockDecrement(ctx context.Context, storeID, id string, quantity int) {
	m := s.mirror(ctx, storeID)
	m.DecrementStock(id, quantity)
	s.persistSnapshot(ctx, storeID, m)
}
