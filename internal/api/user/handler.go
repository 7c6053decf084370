package user

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lpbborges/auto-pos/internal/domain"
	apperror "github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
)

// UserService define o contrato para as operações de conta.
type UserService interface {
	Register(ctx context.Context, registration domain.UserRegistration) (domain.RegisteredUser, error)
	Login(ctx context.Context, email string, password string) (string, error)
	Logout(ctx context.Context, tokenString string) error
}

// LoginRequest representa o payload de entrada para o login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Handler agrupa todos os métodos de Handler de conta.
type Handler struct {
	Service UserService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc UserService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// writeStatusError envia {error: mensagem} com o status do erro. O endpoint
// de registro e o login usam falhas codificadas por status HTTP, diferente
// das ações de formulário.
func (h *Handler) writeStatusError(w http.ResponseWriter, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		h.Logger.Error("Erro de Servidor: "+category, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RegisterHandler lida com POST /api/internal/register (JSON).
// Provisiona a conta e o vínculo de loja, com delete compensatório da conta
// se o vínculo falhar.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	var registration domain.UserRegistration
	if err := json.NewDecoder(r.Body).Decode(&registration); err != nil {
		h.writeStatusError(w, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."))
		return
	}

	registered, err := h.Service.Register(r.Context(), registration)
	if err != nil {
		h.writeStatusError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"user":    registered,
	})
}

// LoginHandler lida com POST /v1/auth/login (JSON), emitindo o JWT da sessão.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeStatusError(w, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."))
		return
	}

	tokenString, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeStatusError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"token": tokenString})
}

// LogoutAction lida com a ação de formulário POST /v1/actions/logout.
// O token apresentado é revogado (denylist) até a sua expiração natural.
func (h *Handler) LogoutAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		h.writeStatusError(w, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
		return
	}

	result := domain.ActionResult{Success: true}
	if err := h.Service.Logout(r.Context(), authHeader[7:]); err != nil {
		h.Logger.Error("Falha ao revogar token no logout.", err)
		result = domain.ActionResult{Success: false, Error: "Falha ao encerrar a sessão."}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}
