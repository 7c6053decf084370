package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Pacotes de infraestrutura e utilitários
	"github.com/lpbborges/auto-pos/config"
	"github.com/lpbborges/auto-pos/internal/pkg/cache"
	"github.com/lpbborges/auto-pos/internal/pkg/database"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
	"github.com/lpbborges/auto-pos/internal/pkg/token"

	// Camadas para Injeção de Dependências
	cartapi "github.com/lpbborges/auto-pos/internal/api/cart"
	"github.com/lpbborges/auto-pos/internal/api/product"
	"github.com/lpbborges/auto-pos/internal/api/router"
	"github.com/lpbborges/auto-pos/internal/api/sale"
	"github.com/lpbborges/auto-pos/internal/api/user"
	"github.com/lpbborges/auto-pos/internal/repository/productrepo"
	"github.com/lpbborges/auto-pos/internal/repository/salerepo"
	"github.com/lpbborges/auto-pos/internal/repository/storerepo"
	"github.com/lpbborges/auto-pos/internal/repository/userrepo"
	"github.com/lpbborges/auto-pos/internal/service/productservice"
	"github.com/lpbborges/auto-pos/internal/service/saleservice"
	"github.com/lpbborges/auto-pos/internal/service/userservice"
	cartstate "github.com/lpbborges/auto-pos/internal/state/cart"
)

func main() {
	// 1. Configuração e Inicialização
	log.Println("⚡ Inicializando serviço auto-pos...")

	// CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Se o arquivo .env não for encontrado, avisamos mas continuamos,
		// pois as variáveis essenciais podem estar no ambiente do sistema (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel)
	appLog.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	appLog.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	appLog.Info("Conexão Redis estabelecida.", nil)

	// C. Serviço de Tokens (JWT)
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	appLog.Debug("Serviço de Tokens JWT inicializado.", nil)

	// 3. INJEÇÃO DE DEPENDÊNCIAS (Repository -> Service -> Handler)

	// A. Repositórios (Camada de Acesso a Dados)
	productRepo := productrepo.NewProductRepository(db, cacheClient, cfg.DBTimeout, appLog)
	saleRepo := salerepo.NewSaleRepository(db, cfg.DBTimeout, appLog)
	storeRepo := storerepo.NewStoreRepository(db, cfg.DBTimeout, appLog)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, appLog)
	appLog.Debug("Repositórios inicializados.", nil)

	// B. Estado de sessão (carrinhos por usuário)
	carts := cartstate.NewManager()

	// C. Serviços (Camada de Lógica de Negócio)
	productSvc := productservice.NewService(productRepo, cacheClient, cfg.CatalogSnapshotKey, cfg.CatalogCacheTTL, appLog)
	saleSvc := saleservice.NewService(saleRepo, productRepo, storeRepo, appLog)
	userSvc := userservice.NewService(userRepo, storeRepo, tokenSvc, cacheClient, appLog)
	appLog.Debug("Serviços inicializados.", nil)

	// D. Handlers (Camada de Apresentação)
	productHandler := product.NewHandler(productSvc, storeRepo, appLog)
	saleHandler := sale.NewHandler(saleSvc, productSvc, storeRepo, carts, appLog)
	cartHandler := cartapi.NewHandler(carts, productSvc, storeRepo, appLog)
	userHandler := user.NewHandler(userSvc, appLog)
	appLog.Debug("Handlers inicializados.", nil)

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(productHandler, saleHandler, cartHandler, userHandler,
		tokenSvc, cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor auto-pos ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
