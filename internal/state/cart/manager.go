package cart

import "sync"

// Manager mantém um carrinho por usuário autenticado. É o análogo
// servidor do estado de checkout que no cliente original vivia por aba
// do navegador.
type Manager struct {
	mu    sync.Mutex
	carts map[string]*Store
}

// NewManager cria um Manager vazio.
func NewManager() *Manager {
	return &Manager{carts: make(map[string]*Store)}
}

// ForUser retorna o carrinho do usuário, criando-o no primeiro acesso.
func (m *Manager) ForUser(userID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.carts[userID]; ok {
		return s
	}
	s := NewStore()
	m.carts[userID] = s
	return s
}
