package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/lpbborges/auto-pos/internal/api/cart"
	"github.com/lpbborges/auto-pos/internal/api/docs"
	"github.com/lpbborges/auto-pos/internal/api/product"
	"github.com/lpbborges/auto-pos/internal/api/sale"
	"github.com/lpbborges/auto-pos/internal/api/user"
	"github.com/lpbborges/auto-pos/internal/pkg/cache"
	"github.com/lpbborges/auto-pos/internal/pkg/middleware"
)

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
//
// Rotas públicas: /ping, /swagger/, /v1/auth/login e /api/internal/register.
// Todo o restante passa pelo middleware de autenticação (JWT + denylist).
// O rate limiter por IP envolve o mux inteiro.
func NewRouter(
	productHandler *product.Handler,
	saleHandler *sale.Handler,
	cartHandler *cart.Handler,
	userHandler *user.Handler,
	tokenSvc middleware.TokenService,
	cacheClient cache.Client,
	rateLimitMax int,
	rateLimitPeriod time.Duration,
) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	mux := http.NewServeMux()

	authRequired := middleware.NewAuthMiddleware(tokenSvc, cacheClient)

	// --- 1. Rotas públicas ---
	mux.HandleFunc("/ping", PingHandler)
	mux.HandleFunc("/v1/auth/login", userHandler.LoginHandler)
	mux.HandleFunc("/api/internal/register", userHandler.RegisterHandler)

	// Swagger UI sobre o documento OpenAPI embutido.
	mux.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(docs.OpenAPI)
	})
	mux.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// --- 2. Rotas do Módulo de Produtos ---
	mux.HandleFunc("/v1/products", authRequired(productHandler.ListProductsHandler))
	mux.HandleFunc("/v1/products/available", authRequired(productHandler.ListAvailableProductsHandler))

	// --- 3. Rotas do Carrinho ---
	mux.HandleFunc("/v1/cart", authRequired(cartHandler.GetCartHandler))
	mux.HandleFunc("/v1/cart/add", authRequired(cartHandler.AddItemAction))
	mux.HandleFunc("/v1/cart/quantity", authRequired(cartHandler.SetQuantityAction))
	mux.HandleFunc("/v1/cart/remove", authRequired(cartHandler.RemoveItemAction))
	mux.HandleFunc("/v1/cart/clear", authRequired(cartHandler.ClearAction))

	// --- 4. Rotas de Vendas ---
	mux.HandleFunc("/v1/sales", authRequired(saleHandler.ListSalesHandler))

	// --- 5. Ações de formulário do PDV ---
	mux.HandleFunc("/v1/actions/create-product", authRequired(productHandler.CreateProductAction))
	mux.HandleFunc("/v1/actions/update-product", authRequired(productHandler.UpdateProductAction))
	mux.HandleFunc("/v1/actions/delete-product", authRequired(productHandler.DeleteProductAction))
	mux.HandleFunc("/v1/actions/process-sale", authRequired(saleHandler.ProcessSaleAction))
	mux.HandleFunc("/v1/actions/logout", authRequired(userHandler.LogoutAction))

	// --- 6. Middlewares globais ---
	return middleware.RateLimiter(cacheClient, rateLimitMax, rateLimitPeriod)(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
