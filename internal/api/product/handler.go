package product

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/lpbborges/auto-pos/internal/domain"
	apperror "github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
	"github.com/lpbborges/auto-pos/internal/pkg/middleware"
)

// ProductService define o contrato que o Handler espera da camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, draft domain.ProductDraft) (domain.Product, error)
	ListProducts(ctx context.Context, storeID, search string) ([]domain.Product, error)
	ListAvailableProducts(ctx context.Context, storeID, search string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, storeID, id string, patch domain.ProductPatch) (domain.Product, error)
	DeleteProduct(ctx context.Context, storeID, id string) error
}

// Memberships resolve a loja do usuário autenticado.
type Memberships interface {
	FindMembershipByUser(ctx context.Context, userID string) (domain.StoreMembership, error)
}

// Handler agrupa todos os métodos de Handler do produto.
type Handler struct {
	Service     ProductService
	Memberships Memberships
	Logger      logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, memberships Memberships, log logger.Logger) *Handler {
	return &Handler{
		Service:     svc,
		Memberships: memberships,
		Logger:      log,
	}
}

// writeAction escreve o envelope uniforme das ações de formulário:
// {success:true, ...} ou {success:false, error}. Ações nunca "lançam";
// o status HTTP é sempre 200 e o resultado vive no corpo.
func (h *Handler) writeAction(w http.ResponseWriter, result domain.ActionResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.Logger.Error("Falha ao codificar JSON de resposta", err)
	}
}

// actionError converte um erro em {success:false, error}. Erros de backend
// passam a mensagem adiante verbatim.
func (h *Handler) actionError(w http.ResponseWriter, r *http.Request, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		h.Logger.Error("Erro de Servidor: "+category, err)
	} else {
		h.Logger.Debug("Ação rejeitada.", map[string]interface{}{"path": r.URL.Path, "category": category})
	}
	h.writeAction(w, domain.ActionResult{Success: false, Error: message})
}

// resolveStore extrai as claims do contexto e resolve o vínculo de loja
// do chamador (semântica single).
func (h *Handler) resolveStore(ctx context.Context) (string, error) {
	claims, ok := middleware.GetUserClaimsFromContext(ctx)
	if !ok {
		return "", apperror.NewUnauthorizedError("Sessão ausente.")
	}
	membership, err := h.Memberships.FindMembershipByUser(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	return membership.StoreID, nil
}

// CreateProductAction lida com a ação de formulário POST /v1/actions/create-product.
func (h *Handler) CreateProductAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	storeID, err := h.resolveStore(ctx)
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.actionError(w, r, apperror.NewValidationError("Formulário inválido."))
		return
	}

	name := r.PostFormValue("name")
	price, priceErr := strconv.ParseFloat(r.PostFormValue("price"), 64)
	stock, stockErr := strconv.Atoi(r.PostFormValue("stock"))

	if name == "" || priceErr != nil || stockErr != nil {
		h.actionError(w, r, apperror.NewValidationError("Dados de produto inválidos."))
		return
	}

	created, err := h.Service.CreateProduct(ctx, domain.ProductDraft{
		Name:    name,
		Price:   price,
		Stock:   stock,
		StoreID: storeID,
	})
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	h.writeAction(w, domain.ActionResult{Success: true, Product: &created})
}

// UpdateProductAction lida com a ação de formulário POST /v1/actions/update-product.
func (h *Handler) UpdateProductAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	storeID, err := h.resolveStore(ctx)
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.actionError(w, r, apperror.NewValidationError("Formulário inválido."))
		return
	}

	id := r.PostFormValue("id")
	name := r.PostFormValue("name")
	price, priceErr := strconv.ParseFloat(r.PostFormValue("price"), 64)
	stock, stockErr := strconv.Atoi(r.PostFormValue("stock"))

	if id == "" || name == "" || priceErr != nil || stockErr != nil {
		h.actionError(w, r, apperror.NewValidationError("Dados de produto inválidos."))
		return
	}

	updated, err := h.Service.UpdateProduct(ctx, storeID, id, domain.ProductPatch{
		Name:  &name,
		Price: &price,
		Stock: &stock,
	})
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	h.writeAction(w, domain.ActionResult{Success: true, Product: &updated})
}

// DeleteProductAction lida com a ação de formulário POST /v1/actions/delete-product.
// A exclusão é soft: o registro permanece com o tombstone.
func (h *Handler) DeleteProductAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	storeID, err := h.resolveStore(ctx)
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.actionError(w, r, apperror.NewValidationError("Formulário inválido."))
		return
	}

	id := r.PostFormValue("id")
	if id == "" {
		h.actionError(w, r, apperror.NewValidationError("O ID do produto é obrigatório."))
		return
	}

	if err := h.Service.DeleteProduct(ctx, storeID, id); err != nil {
		h.actionError(w, r, err)
		return
	}

	h.writeAction(w, domain.ActionResult{Success: true})
}

// ListProductsHandler lida com GET /v1/products?search=.
// Produtos tombstoned nunca aparecem, qualquer que seja a busca.
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	h.listHandler(w, r, false)
}

// ListAvailableProductsHandler lida com GET /v1/products/available?search=
// (listagem restrita a estoque positivo, usada pela tela do caixa).
func (h *Handler) ListAvailableProductsHandler(w http.ResponseWriter, r *http.Request) {
	h.listHandler(w, r, true)
}

func (h *Handler) listHandler(w http.ResponseWriter, r *http.Request, availableOnly bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	storeID, err := h.resolveStore(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}

	search := r.URL.Query().Get("search")

	var products []domain.Product
	if availableOnly {
		products, err = h.Service.ListAvailableProducts(ctx, storeID, search)
	} else {
		products, err = h.Service.ListProducts(ctx, storeID, search)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if encErr := json.NewEncoder(w).Encode(products); encErr != nil {
		h.Logger.Error("Falha ao codificar JSON de resposta", encErr)
	}
}

// writeError envia o envelope de erro padronizado (para os GETs, que não
// usam o formato de ação).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		h.Logger.Error("Erro de Servidor: "+category, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: category, Message: message})
}
