package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/lpbborges/auto-pos/internal/domain"
	apperror "github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
	"github.com/lpbborges/auto-pos/internal/pkg/middleware"
	cartstate "github.com/lpbborges/auto-pos/internal/state/cart"
)

// ProductService resolve o snapshot do produto adicionado ao carrinho.
type ProductService interface {
	GetProductByID(ctx context.Context, storeID, id string) (domain.Product, error)
}

// Memberships resolve a loja do usuário autenticado.
type Memberships interface {
	FindMembershipByUser(ctx context.Context, userID string) (domain.StoreMembership, error)
}

// Handler expõe o carrinho da sessão do usuário sobre HTTP.
type Handler struct {
	Carts       *cartstate.Manager
	Products    ProductService
	Memberships Memberships
	Logger      logger.Logger
}

// NewHandler cria uma nova instância do Handler de carrinho.
func NewHandler(carts *cartstate.Manager, products ProductService, memberships Memberships, log logger.Logger) *Handler {
	return &Handler{
		Carts:       carts,
		Products:    products,
		Memberships: memberships,
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

// session resolve as claims e o carrinho do usuário da requisição.
func (h *Handler) session(ctx context.Context) (middleware.UserClaims, *cartstate.Store, error) {
	claims, ok := middleware.GetUserClaimsFromContext(ctx)
	if !ok {
		return middleware.UserClaims{}, nil, apperror.NewUnauthorizedError("Sessão ausente.")
	}
	return claims, h.Carts.ForUser(claims.UserID), nil
}

// GetCartHandler lida com GET /v1/cart: o snapshot atual com os agregados
// derivados (total e contagem de itens).
func (h *Handler) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	_, userCart, err := h.session(r.Context())
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	snapshot := userCart.Snapshot()
	h.writeAction(w, domain.ActionResult{Success: true, Cart: &snapshot})
}

// AddItemAction lida com POST /v1/cart/add (form: product_id).
// Adicionar o mesmo produto duas vezes incrementa a quantidade do item
// existente; nunca cria um segundo item.
func (h *Handler) AddItemAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	claims, userCart, err := h.session(ctx)
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.actionError(w, r, apperror.NewValidationError("Formulário inválido."))
		return
	}

	productID := r.PostFormValue("product_id")
	if productID == "" {
		h.actionError(w, r, apperror.NewValidationError("O ID do produto é obrigatório."))
		return
	}

	membership, err := h.Memberships.FindMembershipByUser(ctx, claims.UserID)
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	// O snapshot do produto é congelado no momento do add: mudanças
	// posteriores de preço no catálogo não afetam o item do carrinho.
	product, err := h.Products.GetProductByID(ctx, membership.StoreID, productID)
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	userCart.Add(product)
	snapshot := userCart.Snapshot()
	h.writeAction(w, domain.ActionResult{Success: true, Cart: &snapshot})
}

// SetQuantityAction lida com POST /v1/cart/quantity (form: product_id, quantity).
// Quantidade <= 0 remove o item.
func (h *Handler) SetQuantityAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	_, userCart, err := h.session(r.Context())
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.actionError(w, r, apperror.NewValidationError("Formulário inválido."))
		return
	}

	productID := r.PostFormValue("product_id")
	quantity, qtyErr := strconv.Atoi(r.PostFormValue("quantity"))
	if productID == "" || qtyErr != nil {
		h.actionError(w, r, apperror.NewValidationError("Dados de carrinho inválidos."))
		return
	}

	userCart.SetQuantity(productID, quantity)
	snapshot := userCart.Snapshot()
	h.writeAction(w, domain.ActionResult{Success: true, Cart: &snapshot})
}

// RemoveItemAction lida com POST /v1/cart/remove (form: product_id).
func (h *Handler) RemoveItemAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	_, userCart, err := h.session(r.Context())
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.actionError(w, r, apperror.NewValidationError("Formulário inválido."))
		return
	}

	userCart.Remove(r.PostFormValue("product_id"))
	snapshot := userCart.Snapshot()
	h.writeAction(w, domain.ActionResult{Success: true, Cart: &snapshot})
}

// ClearAction lida com POST /v1/cart/clear (venda abandonada).
func (h *Handler) ClearAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	_, userCart, err := h.session(r.Context())
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	userCart.Clear()
	snapshot := userCart.Snapshot()
	h.writeAction(w, domain.ActionResult{Success: true, Cart: &snapshot})
}
