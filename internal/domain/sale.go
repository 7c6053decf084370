package domain

import (
	"context"
	"time"
)

// Sale representa uma venda concluída. Vendas são imutáveis após a criação:
// nenhuma operação de atualização existe no contrato.
type Sale struct {
	ID        string     `json:"id"`
	Total     float64    `json:"total"`
	StoreID   string     `json:"store_id"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []SaleItem `json:"items,omitempty"`
}

// SaleItem é a linha de uma venda. O PriceAtSale congela o preço unitário
// no momento da venda: mudanças futuras no catálogo nunca alteram
// retroativamente o histórico.
type SaleItem struct {
	ID          string  `json:"id"`
	SaleID      string  `json:"sale_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
	PriceAtSale float64 `json:"price_at_sale"`
	StoreID     string  `json:"store_id"`
}

// SaleRequest é o payload de processamento de venda submetido pelo caixa.
// O total enviado pelo cliente é validado contra o total recalculado no
// servidor, nunca confiado cegamente.
type SaleRequest struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

// --- Interfaces de Contrato ---

// SaleService define o sequenciador de transação de venda.
type SaleService interface {
	ProcessSale(ctx context.Context, userID string, req SaleRequest) (Sale, error)
	ListSales(ctx context.Context, storeID string) ([]Sale, error)
}

// SaleRepository define o contrato de persistência para vendas.
// CreateSale e InsertItems são passos externos distintos, sem transação
// que os envolva: essa é a janela de inconsistência documentada do fluxo.
type SaleRepository interface {
	CreateSale(ctx context.Context, total float64, storeID string) (Sale, error)
	InsertItems(ctx context.Context, items []SaleItem) error
	FindAllWithItems(ctx context.Context, storeID string) ([]Sale, error)
}
