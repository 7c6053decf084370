package domain

import (
	"context"
	"time"
)

// Product representa um item do catálogo da loja (a Entidade principal do PDV).
// O campo DeletedAt implementa o soft delete: um produto "excluído" nunca é
// removido fisicamente, apenas marcado e filtrado das listagens.
type Product struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Price     float64    `json:"price"`
	Stock     int        `json:"stock"`
	StoreID   string     `json:"store_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted informa se o produto foi marcado com soft delete.
func (p Product) IsDeleted() bool {
	return p.DeletedAt != nil
}

// ProductDraft é o payload de entrada para a criação de um produto.
// ID e timestamps são atribuídos pelo sistema, nunca pelo cliente.
type ProductDraft struct {
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Stock   int     `json:"stock"`
	StoreID string  `json:"store_id"`
}

// ProductPatch carrega os campos parciais de uma atualização.
// Ponteiros nulos significam "não alterar".
type ProductPatch struct {
	Name  *string  `json:"name,omitempty"`
	Price *float64 `json:"price,omitempty"`
	Stock *int     `json:"stock,omitempty"`
}

// --- Interfaces de Contrato ---

// ProductService define o que a camada API pode pedir à camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, draft ProductDraft) (Product, error)
	GetProductByID(ctx context.Context, storeID, id string) (Product, error)
	ListProducts(ctx context.Context, storeID, search string) ([]Product, error)
	ListAvailableProducts(ctx context.Context, storeID, search string) ([]Product, error)
	UpdateProduct(ctx context.Context, storeID, id string, patch ProductPatch) (Product, error)
	DeleteProduct(ctx context.Context, storeID, id string) error
}

// ProductRepository define o contrato de persistência para a entidade Product.
// A cópia durável de registro vive no PostgreSQL; o estado em memória do
// catálogo é apenas um espelho.
type ProductRepository interface {
	Save(ctx context.Context, product Product) (Product, error)
	FindByID(ctx context.Context, storeID, id string) (Product, error)
	FindAll(ctx context.Context, storeID string) ([]Product, error)
	Update(ctx context.Context, product Product) (Product, error)
	SoftDelete(ctx context.Context, storeID, id string, deletedAt time.Time) error
	DecrementStock(ctx context.Context, storeID, id string, quantity int) (Product, error)
}
