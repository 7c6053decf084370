package sale

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/lpbborges/auto-pos/internal/domain"
	apperror "github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
	"github.com/lpbborges/auto-pos/internal/pkg/middleware"
	"github.com/lpbborges/auto-pos/internal/state/cart"
)

// SaleService define o contrato que o Handler espera do sequenciador de venda.
type SaleService interface {
	ProcessSale(ctx context.Context, userID string, req domain.SaleRequest) (domain.Sale, error)
	ListSales(ctx context.Context, storeID string) ([]domain.Sale, error)
}

// CatalogMirror reflete no espelho do catálogo as baixas de estoque já
// aplicadas à cópia durável.
type CatalogMirror interface {
	ApplyStockDecrement(ctx context.Context, storeID, id string, quantity int)
}

// Memberships resolve a loja do usuário autenticado.
type Memberships interface {
	FindMembershipByUser(ctx context.Context, userID string) (domain.StoreMembership, error)
}

// Handler agrupa os métodos de Handler de vendas.
type Handler struct {
	Service     SaleService
	Mirror      CatalogMirror
	Memberships Memberships
	Carts       *cart.Manager
	Logger      logger.Logger
}

// NewHandler cria uma nova instância do Handler de vendas.
func NewHandler(svc SaleService, mirror CatalogMirror, memberships Memberships, carts *cart.Manager, log logger.Logger) *Handler {
	return &Handler{
		Service:     svc,
		Mirror:      mirror,
		Memberships: memberships,
		Carts:       carts,
		Logger:      log,
	}
}

func (h *Handler) writeAction(w http.ResponseWriter, result domain.ActionResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.Logger.Error("Falha ao codificar JSON de resposta", err)
	}
}

func (h *Handler) actionError(w http.ResponseWriter, r *http.Request, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		h.Logger.Error("Erro de Servidor: "+category, err)
	} else {
		h.Logger.Debug("Ação rejeitada.", map[string]interface{}{"path": r.URL.Path, "category": category})
	}
	h.writeAction(w, domain.ActionResult{Success: false, Error: message})
}

// ProcessSaleAction lida com a ação de formulário POST /v1/actions/process-sale.
//
// O payload segue o formato da ação original: campo "items" com o JSON dos
// itens do carrinho e campo "total" com o total submetido. Se "items" for
// omitido, o carrinho da sessão do usuário no servidor é usado. Após o
// sucesso o carrinho é limpo aqui, no chamador, não no sequenciador.
func (h *Handler) ProcessSaleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	claims, ok := middleware.GetUserClaimsFromContext(ctx)
	if !ok {
		h.actionError(w, r, apperror.NewUnauthorizedError("Sessão ausente."))
		return
	}

	if err := r.ParseForm(); err != nil {
		h.actionError(w, r, apperror.NewValidationError("Formulário inválido."))
		return
	}

	userCart := h.Carts.ForUser(claims.UserID)

	var req domain.SaleRequest
	itemsJSON := r.PostFormValue("items")
	totalValue := r.PostFormValue("total")

	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &req.Items); err != nil {
			h.actionError(w, r, apperror.NewValidationError("Dados de venda inválidos."))
			return
		}
		total, err := strconv.ParseFloat(totalValue, 64)
		if err != nil {
			h.actionError(w, r, apperror.NewValidationError("Dados de venda inválidos."))
			return
		}
		req.Total = total
	} else {
		snapshot := userCart.Snapshot()
		req.Items = snapshot.Items
		req.Total = snapshot.Total
	}

	sale, err := h.Service.ProcessSale(ctx, claims.UserID, req)
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	// Sucesso: refletir as baixas de estoque no espelho do catálogo e
	// limpar o carrinho da sessão.
	for _, item := range req.Items {
		h.Mirror.ApplyStockDecrement(ctx, sale.StoreID, item.Product.ID, item.Quantity)
	}
	userCart.Clear()

	h.writeAction(w, domain.ActionResult{Success: true, Sale: &sale})
}

// ListSalesHandler lida com GET /v1/sales: o histórico da loja do usuário,
// do mais novo para o mais antigo, com as linhas aninhadas.
func (h *Handler) ListSalesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	claims, ok := middleware.GetUserClaimsFromContext(ctx)
	if !ok {
		h.writeError(w, apperror.NewUnauthorizedError("Sessão ausente."))
		return
	}

	membership, err := h.Memberships.FindMembershipByUser(ctx, claims.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sales, err := h.Service.ListSales(ctx, membership.StoreID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if encErr := json.NewEncoder(w).Encode(sales); encErr != nil {
		h.Logger.Error("Falha ao codificar JSON de resposta", encErr)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		h.Logger.Error("Erro de Servidor: "+category, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: category, Message: message})
}
