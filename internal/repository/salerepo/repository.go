package salerepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/lpbborges/auto-pos/internal/domain"
	"github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
)

// SaleRepository implementa a interface domain.SaleRepository.
//
// Deliberadamente NÃO há transação envolvendo CreateSale e InsertItems:
// cada chamada é uma escrita externa independente, espelhando o fluxo
// best-effort do sequenciador de venda. A janela em que o cabeçalho existe
// sem linhas é comportamento documentado.
type SaleRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewSaleRepository cria uma nova instância do SaleRepository, injetando o DB.
func NewSaleRepository(db *sql.DB, dbTimeout time.Duration, log logger.Logger) *SaleRepository {
	return &SaleRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

// CreateSale insere o cabeçalho da venda e retorna a venda materializada.
func (r *SaleRepository) CreateSale(ctx context.Context, total float64, storeID string) (domain.Sale, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	sale := domain.Sale{
		ID:        uuid.NewString(),
		Total:     total,
		StoreID:   storeID,
		CreatedAt: time.Now().UTC(),
	}

	const query = `INSERT INTO sales (id, total, store_id, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.DB.ExecContext(ctxTimeout, query, sale.ID, sale.Total, sale.StoreID, sale.CreatedAt)
	if err != nil {
		return domain.Sale{}, errors.NewDBError("failed to insert sale", err)
	}

	r.logger.Debug("Cabeçalho de venda persistido.", map[string]interface{}{"sale_id": sale.ID, "total": sale.Total})
	return sale, nil
}

// InsertItems insere as linhas da venda, uma a uma, na ordem recebida.
// Os IDs das linhas são atribuídos aqui.
func (r *SaleRepository) InsertItems(ctx context.Context, items []domain.SaleItem) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `INSERT INTO sale_items (id, sale_id, product_id, quantity, price_at_sale, store_id)
                   VALUES ($1, $2, $3, $4, $5, $6)`

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		_, err := r.DB.ExecContext(ctxTimeout, query,
			items[i].ID,
			items[i].SaleID,
			items[i].ProductID,
			items[i].Quantity,
			items[i].PriceAtSale,
			items[i].StoreID,
		)
		if err != nil {
			return errors.NewDBError("failed to insert sale items", err)
		}
	}

	return nil
}

// FindAllWithItems retorna o histórico de vendas da loja, do mais novo para
// o mais antigo, com as linhas aninhadas e o nome atual do produto para
// exibição. O preço exibido é sempre o price_at_sale congelado, nunca o
// preço atual do catálogo.
func (r *SaleRepository) FindAllWithItems(ctx context.Context, storeID string) ([]domain.Sale, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const salesQuery = `SELECT id, total, store_id, created_at FROM sales
                        WHERE store_id = $1 ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctxTimeout, salesQuery, storeID)
	if err != nil {
		return nil, errors.NewDBError("Falha ao listar vendas no DB", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	index := make(map[string]int)
	for rows.Next() {
		var s domain.Sale
		if scanErr := rows.Scan(&s.ID, &s.Total, &s.StoreID, &s.CreatedAt); scanErr != nil {
			return nil, errors.NewDBError("Falha ao mapear venda", scanErr)
		}
		index[s.ID] = len(sales)
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar vendas", err)
	}

	if len(sales) == 0 {
		return []domain.Sale{}, nil
	}

	const itemsQuery = `SELECT si.id, si.sale_id, si.product_id, p.name, si.quantity, si.price_at_sale, si.store_id
                        FROM sale_items si
                        JOIN products p ON p.id = si.product_id
                        WHERE si.store_id = $1`

	itemRows, err := r.DB.QueryContext(ctxTimeout, itemsQuery, storeID)
	if err != nil {
		return nil, errors.NewDBError("Falha ao listar itens de venda no DB", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it domain.SaleItem
		if scanErr := itemRows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtSale, &it.StoreID); scanErr != nil {
			return nil, errors.NewDBError("Falha ao mapear item de venda", scanErr)
		}
		if i, ok := index[it.SaleID]; ok {
			sales[i].Items = append(sales[i].Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar itens de venda", err)
	}

	return sales, nil
}
