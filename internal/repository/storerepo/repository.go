package storerepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lpbborges/auto-pos/internal/domain"
	"github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
)

// StoreRepository implementa a interface domain.StoreRepository.
type StoreRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewStoreRepository cria uma nova instância do StoreRepository, injetando o DB.
func NewStoreRepository(db *sql.DB, dbTimeout time.Duration, log logger.Logger) *StoreRepository {
	return &StoreRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

// FindByID busca uma loja pelo ID. Zero linhas vira NotFoundError.
func (r *StoreRepository) FindByID(ctx context.Context, id string) (domain.Store, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `SELECT id, name, created_at FROM stores WHERE id = $1`

	var store domain.Store
	err := r.DB.QueryRowContext(ctxTimeout, query, id).Scan(&store.ID, &store.Name, &store.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Store{}, errors.NewNotFoundError(fmt.Sprintf("Loja com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		return domain.Store{}, errors.NewDBError("Falha ao buscar loja no DB", err)
	}

	return store, nil
}

// FindMembershipByUser resolve o vínculo de loja do usuário com semântica
// "single": zero linhas retorna NoMembershipError; mais de uma linha é um
// estado não suportado pelo modelo (exatamente uma loja por usuário) e
// falha em vez de escolher uma silenciosamente.
func (r *StoreRepository) FindMembershipByUser(ctx context.Context, userID string) (domain.StoreMembership, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `SELECT user_id, store_id, created_at FROM store_memberships WHERE user_id = $1`

	rows, err := r.DB.QueryContext(ctxTimeout, query, userID)
	if err != nil {
		return domain.StoreMembership{}, errors.NewDBError("Falha ao buscar vínculo de loja no DB", err)
	}
	defer rows.Close()

	var memberships []domain.StoreMembership
	for rows.Next() {
		var m domain.StoreMembership
		if scanErr := rows.Scan(&m.UserID, &m.StoreID, &m.CreatedAt); scanErr != nil {
			return domain.StoreMembership{}, errors.NewDBError("Falha ao mapear vínculo de loja", scanErr)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return domain.StoreMembership{}, errors.NewDBError("Falha ao iterar vínculos de loja", err)
	}

	switch len(memberships) {
	case 0:
		return domain.StoreMembership{}, errors.NewNoMembershipError(userID)
	case 1:
		return memberships[0], nil
	default:
		r.logger.Warn("Usuário com múltiplos vínculos de loja.", map[string]interface{}{"user_id": userID, "count": len(memberships)})
		return domain.StoreMembership{}, errors.NewConflictError(
			fmt.Sprintf("Usuário %s possui %d vínculos de loja; o modelo suporta exatamente um.", userID, len(memberships)))
	}
}

// SaveMembership insere o vínculo usuário-loja.
func (r *StoreRepository) SaveMembership(ctx context.Context, membership domain.StoreMembership) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `INSERT INTO store_memberships (user_id, store_id, created_at) VALUES ($1, $2, $3)`

	if membership.CreatedAt.IsZero() {
		membership.CreatedAt = time.Now().UTC()
	}

	_, err := r.DB.ExecContext(ctxTimeout, query, membership.UserID, membership.StoreID, membership.CreatedAt)
	if err != nil {
		return errors.NewDBError("failed to insert store membership", err)
	}

	return nil
}
