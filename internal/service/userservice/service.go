package userservice

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lpbborges/auto-pos/internal/domain"
	apperror "github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/cache"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
	"github.com/lpbborges/auto-pos/internal/pkg/middleware"
	"github.com/lpbborges/auto-pos/internal/pkg/token"
)

// TokenService é o contrato da camada de token (internal/pkg/token).
type TokenService interface {
	GenerateToken(userID string, email string) (string, error)
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// StoreRepository é o subconjunto do repositório de lojas usado pelo registro.
type StoreRepository interface {
	FindByID(ctx context.Context, id string) (domain.Store, error)
	SaveMembership(ctx context.Context, membership domain.StoreMembership) error
}

// UserService implementa a interface domain.UserService.
type UserService struct {
	UserRepo  domain.UserRepository
	StoreRepo StoreRepository
	TokenSvc  TokenService
	Cache     cache.Client
	logger    logger.Logger
}

// NewService cria uma nova instância do UserService, injetando as dependências.
func NewService(userRepo domain.UserRepository, storeRepo StoreRepository, tokenSvc TokenService, cacheClient cache.Client, log logger.Logger) *UserService {
	return &UserService{
		UserRepo:  userRepo,
		StoreRepo: storeRepo,
		TokenSvc:  tokenSvc,
		Cache:     cacheClient,
		logger:    log,
	}
}

// Register provisiona a conta e o vínculo de loja do novo usuário.
//
// Ordem dos passos: validar → verificar que a loja existe (erro de cliente
// antes de qualquer escrita) → criar a conta → criar o vínculo. Se o vínculo
// falhar após a conta criada, a conta recém-criada é removida (ação
// compensatória): uma conta autenticável sem tenant autorizável é
// inaceitável. Se o próprio delete compensatório falhar, a falha é apenas
// logada e o erro retornado continua sendo o do vínculo.
func (s *UserService) Register(ctx context.Context, registration domain.UserRegistration) (domain.RegisteredUser, error) {
	// 1. Validação de entrada (nada chega ao backend antes disso).
	if err := validateRegistration(registration); err != nil {
		return domain.RegisteredUser{}, err
	}

	// 2. A loja alvo deve existir. Loja inexistente é erro de cliente (400),
	// antes de qualquer conta ser criada.
	if _, err := s.StoreRepo.FindByID(ctx, registration.StoreID); err != nil {
		var notFound *apperror.NotFoundError
		if errors.As(err, &notFound) {
			return domain.RegisteredUser{}, apperror.NewValidationError("Loja não encontrada.")
		}
		return domain.RegisteredUser{}, err
	}

	// 3. Hashing da senha e criação da conta.
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.RegisteredUser{}, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	user, err := s.UserRepo.Save(ctx, domain.User{
		Email:        registration.Email,
		PasswordHash: string(hashedPassword),
	})
	if err != nil {
		// Assumimos que o DBError aqui é chave única violada (e-mail em uso).
		var dbErr *apperror.InternalError
		if errors.As(err, &dbErr) {
			return domain.RegisteredUser{}, apperror.NewConflictError(
				fmt.Sprintf("O email '%s' já está em uso.", registration.Email),
			)
		}
		return domain.RegisteredUser{}, err
	}

	// 4. Criar o vínculo de loja. Falha aqui dispara a compensação.
	membershipErr := s.StoreRepo.SaveMembership(ctx, domain.StoreMembership{
		UserID:  user.ID,
		StoreID: registration.StoreID,
	})
	if membershipErr != nil {
		if delErr := s.UserRepo.Delete(ctx, user.ID); delErr != nil {
			// Lacuna documentada: a falha da compensação não é tratada
			// especialmente; o erro exposto continua sendo o do vínculo.
			s.logger.Error("Delete compensatório da conta falhou; conta órfã permanece.", delErr)
		}
		return domain.RegisteredUser{}, apperror.NewInternalError("Falha ao criar vínculo de loja.", membershipErr)
	}

	return domain.RegisteredUser{
		ID:      user.ID,
		Email:   user.Email,
		StoreID: registration.StoreID,
	}, nil
}

// Login autentica um usuário, verifica a senha e gera um JWT.
func (s *UserService) Login(ctx context.Context, email string, password string) (string, error) {
	// 1. Validação Básica
	if email == "" || password == "" {
		return "", apperror.NewUnauthorizedError("Email e senha são obrigatórios.")
	}

	// 2. Buscar Usuário pelo Email
	user, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		// NotFound vira Unauthorized para não dar dicas a invasores.
		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return "", err
	}

	// 3. Comparar a senha informada com o hash salvo.
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	// 4. Gerar JWT
	tokenString, err := s.TokenSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	return tokenString, nil
}

// Logout revoga o token apresentado colocando-o na denylist do cache até a
// sua expiração natural. Um token já inválido é tratado como sucesso.
func (s *UserService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.TokenSvc.ValidateToken(tokenString)
	if err != nil {
		return nil
	}

	ttl := time.Hour
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
		if ttl <= 0 {
			return nil
		}
	}

	if err := s.Cache.Set(ctx, middleware.DenylistKey(tokenString), "1", ttl); err != nil {
		return apperror.NewInternalError("Falha ao revogar o token.", err)
	}
	return nil
}

// validateRegistration aplica o schema do registro: email válido, senha com
// no mínimo 8 caracteres e ID de loja bem formado.
func validateRegistration(registration domain.UserRegistration) error {
	if _, err := mail.ParseAddress(registration.Email); err != nil {
		return apperror.NewValidationError("Endereço de email inválido.")
	}
	if len(registration.Password) < 8 {
		return apperror.NewValidationError("A senha deve ter no mínimo 8 caracteres.")
	}
	if _, err := uuid.Parse(registration.StoreID); err != nil {
		return apperror.NewValidationError("ID de loja inválido.")
	}
	return nil
}
