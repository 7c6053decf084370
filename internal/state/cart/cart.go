// Package cart implementa o estado do carrinho da sessão de checkout.
//
// Cada item pareia um snapshot de produto com uma quantidade; há no máximo
// um item por ID de produto e a quantidade é sempre >= 1 enquanto o item
// existe. Mutação síncrona, snapshot imutável publicado aos assinantes.
package cart

import (
	"sync"

	"github.com/lpbborges/auto-pos/internal/domain"
)

// Subscriber recebe o snapshot do carrinho após cada mutação.
type Subscriber func(snapshot domain.CartSnapshot)

// Store mantém a coleção ordenada de itens do carrinho.
type Store struct {
	mu    sync.Mutex
	order []string                   // IDs de produto na ordem de primeira inserção
	items map[string]domain.CartItem // item por ID de produto

	subs    map[int]Subscriber
	nextSub int
}

// NewStore cria um carrinho vazio.
func NewStore() *Store {
	return &Store{
		items: make(map[string]domain.CartItem),
		subs:  make(map[int]Subscriber),
	}
}

// Subscribe registra um assinante e retorna a função de cancelamento.
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

func (s *Store) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snapshot := s.snapshotLocked()
	for _, fn := range s.subs {
		fn(snapshot)
	}
}

// snapshotLocked materializa a visão do carrinho com os agregados derivados.
// Total e ItemCount são sempre recalculados do zero sobre os itens: não há
// contadores incrementais que possam divergir.
func (s *Store) snapshotLocked() domain.CartSnapshot {
	items := make([]domain.CartItem, 0, len(s.order))
	total := 0.0
	count := 0
	for _, id := range s.order {
		item := s.items[id]
		items = append(items, item)
		total += item.Product.Price * float64(item.Quantity)
		count += item.Quantity
	}
	return domain.CartSnapshot{Items: items, Total: total, ItemCount: count}
}

// Add adiciona uma unidade do produto: se já houver item para o mesmo ID,
// incrementa a quantidade em 1 mantendo a posição original; caso contrário
// anexa um item novo com quantidade 1 ao final.
func (s *Store) Add(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.items[product.ID]; ok {
		item.Quantity++
		s.items[product.ID] = item
	} else {
		s.order = append(s.order, product.ID)
		s.items[product.ID] = domain.CartItem{Product: product, Quantity: 1}
	}
	s.publishLocked()
}

// Remove retira o item do produto, se presente; no-op caso contrário.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
	s.publishLocked()
}

func (s *Store) removeLocked(productID string) {
	if _, ok := s.items[productID]; !ok {
		return
	}
	delete(s.items, productID)
	for i, id := range s.order {
		if id == productID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SetQuantity substitui a quantidade do item. Quantidade <= 0 equivale a
// Remove: uma linha com quantidade zero ou negativa nunca persiste.
func (s *Store) SetQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(productID)
		s.publishLocked()
		return
	}

	if item, ok := s.items[productID]; ok {
		item.Quantity = quantity
		s.items[productID] = item
	}
	s.publishLocked()
}

// Clear esvazia o carrinho (após uma venda concluída ou abandonada).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	s.items = make(map[string]domain.CartItem)
	s.publishLocked()
}

// Snapshot retorna a visão imutável atual do carrinho.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Total retorna o total derivado do carrinho (0 para carrinho vazio).
func (s *Store) Total() float64 {
	return s.Snapshot().Total
}

// ItemCount retorna a soma das quantidades (0 para carrinho vazio).
func (s *Store) ItemCount() int {
	return s.Snapshot().ItemCount
}
