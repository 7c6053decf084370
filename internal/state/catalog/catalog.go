// Package catalog implementa o estado reativo do catálogo de produtos.
//
// O Store é um espelho em memória da cópia durável (PostgreSQL): uma arena
// de registros indexada por ID, com ordem de inserção preservada e soft
// delete via tombstone (DeletedAt). Toda mutação é síncrona e publica um
// snapshot imutável aos assinantes; não há singleton de pacote, a instância
// é construída e injetada explicitamente no main.go.
package catalog

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lpbborges/auto-pos/internal/domain"
)

// Subscriber recebe o snapshot ordenado completo do catálogo após cada mutação.
type Subscriber func(products []domain.Product)

// Store mantém a coleção ordenada de produtos com busca e soft delete.
type Store struct {
	mu     sync.Mutex
	order  []string                  // IDs na ordem da coleção (mais novo primeiro)
	items  map[string]domain.Product // arena de registros por ID
	search string

	subs    map[int]Subscriber
	nextSub int
}

// NewStore cria um Store vazio ou pré-populado com a lista inicial.
// A ordem da lista inicial é preservada.
func NewStore(initial []domain.Product) *Store {
	s := &Store{
		items: make(map[string]domain.Product),
		subs:  make(map[int]Subscriber),
	}
	for _, p := range initial {
		if _, exists := s.items[p.ID]; exists {
			continue
		}
		s.order = append(s.order, p.ID)
		s.items[p.ID] = p
	}
	return s
}

// Subscribe registra um assinante e retorna a função de cancelamento.
// A publicação é síncrona, na mesma goroutine da mutação.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// publishLocked entrega o snapshot atual a todos os assinantes.
// Deve ser chamado com o lock em posse; o snapshot entregue é uma cópia.
func (s *Store) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snapshot := s.snapshotLocked()
	for _, fn := range s.subs {
		fn(snapshot)
	}
}

// snapshotLocked materializa a lista ordenada completa (incluindo tombstones).
func (s *Store) snapshotLocked() []domain.Product {
	out := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Replace substitui todo o conteúdo do catálogo (carga inicial do banco
// ou restauração do snapshot persistido).
func (s *Store) Replace(products []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.items = make(map[string]domain.Product, len(products))
	for _, p := range products {
		if _, exists := s.items[p.ID]; exists {
			continue
		}
		s.order = append(s.order, p.ID)
		s.items[p.ID] = p
	}
	s.publishLocked()
}

// Add materializa um ProductDraft: atribui um ID novo (UUID, resistente a
// colisões) e timestamps correntes, insere no topo da coleção e retorna o
// Produto criado.
func (s *Store) Add(draft domain.ProductDraft) domain.Product {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	// Mais novo primeiro, como na listagem da loja.
	s.order = append([]string{product.ID}, s.order...)
	s.items[product.ID] = product
	s.publishLocked()

	return product
}

// Insert insere um produto já materializado (vindo do repositório) no topo
// da coleção, sem gerar novo ID.
func (s *Store) Insert(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[product.ID]; exists {
		s.items[product.ID] = product
		s.publishLocked()
		return
	}
	s.order = append([]string{product.ID}, s.order...)
	s.items[product.ID] = product
	s.publishLocked()
}

// Update mescla os campos do patch no produto correspondente e atualiza
// UpdatedAt. Se o ID não existir a operação é um no-op silencioso: essa é
// uma escolha de projeto documentada, não um descuido.
func (s *Store) Update(id string, patch domain.ProductPatch) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.items[id]
	if !ok {
		return domain.Product{}, false
	}

	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	product.UpdatedAt = time.Now().UTC()

	s.items[id] = product
	s.publishLocked()
	return product, true
}

// SoftDelete marca o produto com o timestamp de exclusão. O registro nunca
// é removido da arena. Deletar duas vezes é idempotente além da atualização
// do timestamp.
func (s *Store) SoftDelete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.items[id]
	if !ok {
		return
	}

	now := time.Now().UTC()
	product.DeletedAt = &now
	product.UpdatedAt = now
	s.items[id] = product
	s.publishLocked()
}

// DecrementStock baixa o estoque do produto, saturando em zero: nenhuma
// magnitude de quantity produz estoque negativo.
func (s *Store) DecrementStock(id string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.items[id]
	if !ok {
		return
	}

	product.Stock -= quantity
	if product.Stock < 0 {
		product.Stock = 0
	}
	product.UpdatedAt = time.Now().UTC()
	s.items[id] = product
	s.publishLocked()
}

// SetSearch define a consulta de busca ativa (string vazia = sem filtro).
func (s *Store) SetSearch(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = query
}

// Get retorna o produto pelo ID, mesmo que tombstoned.
func (s *Store) Get(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	return p, ok
}

// List retorna os produtos não deletados cujo nome contém a consulta ativa
// (comparação case-insensitive), na ordem estável da coleção.
func (s *Store) List() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(s.search, false)
}

// ListMatching é como List, mas com uma consulta explícita em vez da ativa.
func (s *Store) ListMatching(query string) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(query, false)
}

// Available filtra List aos produtos com estoque positivo.
func (s *Store) Available() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(s.search, true)
}

// AvailableMatching é como Available, mas com uma consulta explícita.
func (s *Store) AvailableMatching(query string) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(query, true)
}

func (s *Store) filterLocked(query string, inStockOnly bool) []domain.Product {
	needle := strings.ToLower(query)
	out := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		p := s.items[id]
		if p.IsDeleted() {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if inStockOnly && p.Stock <= 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Snapshot serializa a lista ordenada completa como um único blob JSON.
// É este blob que o serviço persiste sob a chave fixa do cache.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.snapshotLocked())
}

// Restore carrega o catálogo a partir de um blob serializado por Snapshot.
// Um blob corrompido é tratado como catálogo vazio, sem erro.
func (s *Store) Restore(blob []byte) {
	var products []domain.Product
	if err := json.Unmarshal(blob, &products); err != nil {
		products = nil
	}
	s.Replace(products)
}
