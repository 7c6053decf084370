package userservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/lpbborges/auto-pos/internal/domain"
	apperror "github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
	"github.com/lpbborges/auto-pos/internal/pkg/token"
	"github.com/lpbborges/auto-pos/internal/service/userservice"
)

// MockUserRepository é uma implementação mock da interface domain.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStoreRepository é uma implementação mock do subconjunto de lojas do registro
type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) FindByID(ctx context.Context, id string) (domain.Store, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Store), args.Error(1)
}

func (m *MockStoreRepository) SaveMembership(ctx context.Context, membership domain.StoreMembership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

// MockTokenService é uma implementação mock da camada de token
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateToken(userID string, email string) (string, error) {
	args := m.Called(userID, email)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) ValidateToken(tokenString string) (*token.CustomClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*token.CustomClaims), args.Error(1)
}

// MockCacheClient é uma implementação mock da interface cache.Client
type MockCacheClient struct {
	mock.Mock
}

func (m *MockCacheClient) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheClient) GetInt(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

func (m *MockCacheClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheClient) Incr(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheClient) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheClient) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func newTestService() (*userservice.UserService, *MockUserRepository, *MockStoreRepository, *MockTokenService, *MockCacheClient) {
	userRepo := new(MockUserRepository)
	storeRepo := new(MockStoreRepository)
	tokenSvc := new(MockTokenService)
	cacheClient := new(MockCacheClient)
	svc := userservice.NewService(userRepo, storeRepo, tokenSvc, cacheClient, logger.NewLogger("debug"))
	return svc, userRepo, storeRepo, tokenSvc, cacheClient
}

func validRegistration() domain.UserRegistration {
	return domain.UserRegistration{
		Email:    "novo@exemplo.com",
		Password: "senha-segura-123",
		StoreID:  uuid.New().String(),
	}
}

// TestRegister_Sucesso testa o provisionamento completo: loja existe, conta
// criada, vínculo criado.
func TestRegister_Sucesso(t *testing.T) {
	svc, userRepo, storeRepo, _, _ := newTestService()

	registration := validRegistration()
	userID := uuid.New().String()

	storeRepo.On("FindByID", mock.Anything, registration.StoreID).
		Return(domain.Store{ID: registration.StoreID, Name: "Loja Demo"}, nil)
	userRepo.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		// A senha nunca é persistida em claro.
		return u.Email == registration.Email && u.PasswordHash != registration.Password && u.PasswordHash != ""
	})).Return(domain.User{ID: userID, Email: registration.Email}, nil)
	storeRepo.On("SaveMembership", mock.Anything, domain.StoreMembership{
		UserID:  userID,
		StoreID: registration.StoreID,
	}).Return(nil)

	registered, err := svc.Register(context.Background(), registration)

	assert.NoError(t, err)
	assert.Equal(t, userID, registered.ID)
	assert.Equal(t, registration.Email, registered.Email)
	assert.Equal(t, registration.StoreID, registered.StoreID)
	userRepo.AssertExpectations(t)
	storeRepo.AssertExpectations(t)
	userRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// TestRegister_EmailInvalido testa a validação de schema antes de qualquer
// chamada externa.
func TestRegister_EmailInvalido(t *testing.T) {
	svc, userRepo, storeRepo, _, _ := newTestService()

	registration := validRegistration()
	registration.Email = "nao-e-um-email"

	_, err := svc.Register(context.Background(), registration)

	assert.Error(t, err)
	var appErr apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Category())
	storeRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	userRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestRegister_SenhaCurta testa a regra de tamanho mínimo da senha.
func TestRegister_SenhaCurta(t *testing.T) {
	svc, userRepo, _, _, _ := newTestService()

	registration := validRegistration()
	registration.Password = "curta"

	_, err := svc.Register(context.Background(), registration)

	assert.Error(t, err)
	userRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestRegister_StoreIDMalFormado testa a validação do ID de loja.
func TestRegister_StoreIDMalFormado(t *testing.T) {
	svc, _, storeRepo, _, _ := newTestService()

	registration := validRegistration()
	registration.StoreID = "nao-e-uuid"

	_, err := svc.Register(context.Background(), registration)

	assert.Error(t, err)
	storeRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

// TestRegister_LojaInexistente testa que loja não encontrada vira erro de
// cliente (validação) antes de qualquer conta ser criada.
func TestRegister_LojaInexistente(t *testing.T) {
	svc, userRepo, storeRepo, _, _ := newTestService()

	registration := validRegistration()
	storeRepo.On("FindByID", mock.Anything, registration.StoreID).
		Return(domain.Store{}, apperror.NewNotFoundError("Loja não encontrada"))

	_, err := svc.Register(context.Background(), registration)

	assert.Error(t, err)
	var appErr apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Category())
	userRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestRegister_EmailEmUso testa a tradução da violação de chave única para
// erro de conflito.
func TestRegister_EmailEmUso(t *testing.T) {
	svc, userRepo, storeRepo, _, _ := newTestService()

	registration := validRegistration()
	storeRepo.On("FindByID", mock.Anything, registration.StoreID).
		Return(domain.Store{ID: registration.StoreID}, nil)
	userRepo.On("Save", mock.Anything, mock.Anything).
		Return(domain.User{}, apperror.NewDBError("Falha ao salvar usuário", errors.New("duplicate key value violates unique constraint")))

	_, err := svc.Register(context.Background(), registration)

	assert.Error(t, err)
	var appErr apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFLICT", appErr.Category())
	storeRepo.AssertNotCalled(t, "SaveMembership", mock.Anything, mock.Anything)
}

// TestRegister_CompensacaoAposFalhaDoVinculo testa a ação compensatória: se o
// vínculo de loja falha após a conta criada, a conta é removida e o erro
// retornado é o do vínculo.
func TestRegister_CompensacaoAposFalhaDoVinculo(t *testing.T) {
	svc, userRepo, storeRepo, _, _ := newTestService()

	registration := validRegistration()
	userID := uuid.New().String()
	membershipErr := errors.New("membership insert failed")

	storeRepo.On("FindByID", mock.Anything, registration.StoreID).
		Return(domain.Store{ID: registration.StoreID}, nil)
	userRepo.On("Save", mock.Anything, mock.Anything).
		Return(domain.User{ID: userID, Email: registration.Email}, nil)
	storeRepo.On("SaveMembership", mock.Anything, mock.Anything).Return(membershipErr)
	userRepo.On("Delete", mock.Anything, userID).Return(nil)

	_, err := svc.Register(context.Background(), registration)

	assert.Error(t, err)
	assert.ErrorIs(t, err, membershipErr)
	userRepo.AssertCalled(t, "Delete", mock.Anything, userID)
}

// TestRegister_FalhaDaCompensacao testa a lacuna documentada: se o próprio
// delete compensatório falha, a falha é apenas logada e o erro exposto
// continua sendo o do vínculo (a conta órfã permanece).
func TestRegister_FalhaDaCompensacao(t *testing.T) {
	svc, userRepo, storeRepo, _, _ := newTestService()

	registration := validRegistration()
	userID := uuid.New().String()
	membershipErr := errors.New("membership insert failed")

	storeRepo.On("FindByID", mock.Anything, registration.StoreID).
		Return(domain.Store{ID: registration.StoreID}, nil)
	userRepo.On("Save", mock.Anything, mock.Anything).
		Return(domain.User{ID: userID, Email: registration.Email}, nil)
	storeRepo.On("SaveMembership", mock.Anything, mock.Anything).Return(membershipErr)
	userRepo.On("Delete", mock.Anything, userID).Return(errors.New("delete failed too"))

	_, err := svc.Register(context.Background(), registration)

	assert.Error(t, err)
	assert.ErrorIs(t, err, membershipErr)
	userRepo.AssertCalled(t, "Delete", mock.Anything, userID)
}

// TestLogin_Sucesso testa a autenticação com senha correta.
func TestLogin_Sucesso(t *testing.T) {
	svc, userRepo, _, tokenSvc, _ := newTestService()

	password := "senha-segura-123"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)

	user := domain.User{ID: uuid.New().String(), Email: "demo@exemplo.com", PasswordHash: string(hash)}
	userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	tokenSvc.On("GenerateToken", user.ID, user.Email).Return("jwt-assinado", nil)

	tokenString, err := svc.Login(context.Background(), user.Email, password)

	assert.NoError(t, err)
	assert.Equal(t, "jwt-assinado", tokenString)
	tokenSvc.AssertExpectations(t)
}

// TestLogin_SenhaIncorreta testa a rejeição de senha errada sem vazar detalhe.
func TestLogin_SenhaIncorreta(t *testing.T) {
	svc, userRepo, _, tokenSvc, _ := newTestService()

	hash, _ := bcrypt.GenerateFromPassword([]byte("senha-certa-123"), bcrypt.MinCost)
	user := domain.User{ID: uuid.New().String(), Email: "demo@exemplo.com", PasswordHash: string(hash)}
	userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)

	_, err := svc.Login(context.Background(), user.Email, "senha-errada-123")

	assert.Error(t, err)
	var appErr apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "UNAUTHORIZED", appErr.Category())
	tokenSvc.AssertNotCalled(t, "GenerateToken", mock.Anything, mock.Anything)
}

// TestLogin_UsuarioInexistente testa que NotFound vira Unauthorized para não
// dar dicas a invasores.
func TestLogin_UsuarioInexistente(t *testing.T) {
	svc, userRepo, _, _, _ := newTestService()

	userRepo.On("FindByEmail", mock.Anything, "fantasma@exemplo.com").
		Return(domain.User{}, apperror.NewNotFoundError("usuário"))

	_, err := svc.Login(context.Background(), "fantasma@exemplo.com", "qualquer-senha")

	assert.Error(t, err)
	var appErr apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "UNAUTHORIZED", appErr.Category())
}

// TestLogout_RevogaTokenValido testa que o token válido entra na denylist com
// TTL até a expiração natural.
func TestLogout_RevogaTokenValido(t *testing.T) {
	svc, _, _, tokenSvc, cacheClient := newTestService()

	claims := &token.CustomClaims{
		UserID: uuid.New().String(),
		Email:  "demo@exemplo.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tokenSvc.On("ValidateToken", "token-ativo").Return(claims, nil)
	cacheClient.On("Set", mock.Anything, "denylist:token-ativo", "1", mock.Anything).Return(nil)

	err := svc.Logout(context.Background(), "token-ativo")

	assert.NoError(t, err)
	cacheClient.AssertExpectations(t)
}

// TestLogout_TokenInvalidoEhSucesso testa que revogar um token já inválido é
// tratado como sucesso, sem tocar o cache.
func TestLogout_TokenInvalidoEhSucesso(t *testing.T) {
	svc, _, _, tokenSvc, cacheClient := newTestService()

	tokenSvc.On("ValidateToken", "token-podre").Return(nil, errors.New("token inválido"))

	err := svc.Logout(context.Background(), "token-podre")

	assert.NoError(t, err)
	cacheClient.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
