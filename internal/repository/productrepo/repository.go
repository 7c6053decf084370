package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lpbborges/auto-pos/internal/domain"
	"github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/cache"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
)

// ProductRepository implementa a interface domain.ProductRepository.
// Ela contém as conexões necessárias para acessar dados.
type ProductRepository struct {
	DB        *sql.DB      // Conexão principal com o banco de dados (PostgreSQL)
	Cache     cache.Client // Cliente para operações de cache (Redis)
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
// Aqui injetamos as dependências de Infraestrutura (DB e Cache).
func NewProductRepository(db *sql.DB, cacheClient cache.Client, dbTimeout time.Duration, log logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

// Chave de cache por produto, escopada pela loja.
const productCacheKey = "product:%s:%s"

const productColumns = `id, name, price, stock, store_id, created_at, updated_at, deleted_at`

// scanProduct mapeia uma linha do DB para a struct domain.Product.
func scanProduct(row interface{ Scan(...interface{}) error }) (domain.Product, error) {
	var p domain.Product
	var deletedAt sql.NullTime
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.Stock,
		&p.StoreID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return p, nil
}

// Save persiste um novo Produto no banco de dados.
func (r *ProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const productSQL = `INSERT INTO products (id, name, price, stock, store_id, created_at, updated_at)
                        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := r.DB.ExecContext(ctxTimeout, productSQL,
		product.ID,
		product.Name,
		product.Price,
		product.Stock,
		product.StoreID,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, errors.NewDBError("failed to insert product", err)
	}

	return product, nil
}

// FindByID busca um produto pelo ID, utilizando a estratégia Cache-Aside.
func (r *ProductRepository) FindByID(ctx context.Context, storeID, id string) (domain.Product, error) {
	ctxGo, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(productCacheKey, storeID, id)
	var product domain.Product

	// --- Estratégia Cache-Aside (READ) ---
	cachedData, err := r.Cache.Get(ctxGo, key)
	if err == nil {
		// Cache HIT
		if json.Unmarshal([]byte(cachedData), &product) == nil {
			return product, nil
		}
		// Se a desserialização falhar, continua para o DB
	} else if err != cache.ErrCacheMiss {
		// Erro real de cache (ex: conexão perdida): logamos e seguimos para o DB.
		r.logger.Warn("Falha ao ler produto do cache.", map[string]interface{}{"key": key, "err": err.Error()})
	}

	// --- Busca no Banco de Dados (PostgreSQL) ---
	productSQL := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND store_id = $2`

	row := r.DB.QueryRowContext(ctxGo, productSQL, id, storeID)
	product, err = scanProduct(row)

	if err == sql.ErrNoRows {
		// Semântica "single": zero linhas vira NotFoundError, que o Handler mapeia para 404.
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto no DB", err)
	}

	// --- Estratégia Cache-Aside (WRITE) ---
	productJSON, marshalErr := json.Marshal(product)
	if marshalErr == nil {
		r.Cache.Set(ctxGo, key, productJSON, 5*time.Minute)
	}

	return product, nil
}

// FindAll retorna todos os produtos da loja, incluindo registros tombstoned.
// O filtro de soft delete é responsabilidade das listagens (estado do
// catálogo); a arena durável carrega tudo, do mais novo para o mais antigo.
func (r *ProductRepository) FindAll(ctx context.Context, storeID string) ([]domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE store_id = $1 ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctxTimeout, query, storeID)
	if err != nil {
		return nil, errors.NewDBError("Falha ao listar produtos no DB", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, errors.NewDBError("Falha ao mapear produto", scanErr)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar produtos", err)
	}

	return products, nil
}

// Update aplica os campos do produto (name, price, stock) e atualiza o
// updated_at. Semântica "single": zero linhas afetadas vira NotFoundError.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `UPDATE products
              SET name = $1, price = $2, stock = $3, updated_at = $4
              WHERE id = $5 AND store_id = $6
              RETURNING ` + productColumns

	row := r.DB.QueryRowContext(ctxTimeout, query,
		product.Name,
		product.Price,
		product.Stock,
		time.Now().UTC(),
		product.ID,
		product.StoreID,
	)

	updated, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", product.ID))
	}
	if err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao atualizar produto no DB", err)
	}

	r.invalidate(ctxTimeout, updated.StoreID, updated.ID)
	return updated, nil
}

// SoftDelete marca o produto com deleted_at sem remover a linha.
// Deletar um produto já deletado apenas atualiza o timestamp.
func (r *ProductRepository) SoftDelete(ctx context.Context, storeID, id string, deletedAt time.Time) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `UPDATE products SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND store_id = $3`

	result, err := r.DB.ExecContext(ctxTimeout, query, deletedAt, id, storeID)
	if err != nil {
		return errors.NewDBError("Falha ao excluir produto no DB", err)
	}

	if affected, raErr := result.RowsAffected(); raErr == nil && affected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}

	r.invalidate(ctxTimeout, storeID, id)
	return nil
}

// DecrementStock baixa o estoque saturando em zero direto no SQL:
// GREATEST garante que nenhuma magnitude de quantity produz estoque negativo.
func (r *ProductRepository) DecrementStock(ctx context.Context, storeID, id string, quantity int) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `UPDATE products
              SET stock = GREATEST(stock - $1, 0), updated_at = $2
              WHERE id = $3 AND store_id = $4
              RETURNING ` + productColumns

	row := r.DB.QueryRowContext(ctxTimeout, query, quantity, time.Now().UTC(), id, storeID)

	updated, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao baixar estoque no DB", err)
	}

	r.invalidate(ctxTimeout, storeID, id)
	return updated, nil
}

// invalidate remove a entrada de cache do produto após uma escrita.
func (r *ProductRepository) invalidate(ctx context.Context, storeID, id string) {
	key := fmt.Sprintf(productCacheKey, storeID, id)
	if err := r.Cache.Delete(ctx, key); err != nil {
		r.logger.Warn("Falha ao invalidar cache de produto.", map[string]interface{}{"key": key, "err": err.Error()})
	}
}
