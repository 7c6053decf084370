package domain

import (
	"context"
	"time"
)

// Store representa a loja: a fronteira de isolamento (tenant) de produtos
// e vendas.
type Store struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// StoreMembership vincula um usuário a uma loja. O modelo assume exatamente
// uma loja por usuário autenticado: múltiplos vínculos são um estado
// inválido e a busca deve falhar em vez de escolher um silenciosamente.
type StoreMembership struct {
	UserID    string    `json:"user_id"`
	StoreID   string    `json:"store_id"`
	CreatedAt time.Time `json:"created_at"`
}

// StoreRepository define o contrato de persistência para lojas e vínculos.
type StoreRepository interface {
	FindByID(ctx context.Context, id string) (Store, error)
	// FindMembershipByUser usa semântica "single": zero linhas retorna
	// NoMembershipError, mais de uma linha retorna erro de conflito.
	FindMembershipByUser(ctx context.Context, userID string) (StoreMembership, error)
	SaveMembership(ctx context.Context, membership StoreMembership) error
}
