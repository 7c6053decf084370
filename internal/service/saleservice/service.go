package saleservice

import (
	"context"
	"math"

	"github.com/lpbborges/auto-pos/internal/domain"
	apperror "github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/logger"
)

// totalTolerance absorve ruído de ponto flutuante na comparação entre o
// total submetido e o total recalculado (meio centavo).
const totalTolerance = 0.005

// SaleRepository define o contrato que o sequenciador espera da persistência
// de vendas.
type SaleRepository interface {
	CreateSale(ctx context.Context, total float64, storeID string) (domain.Sale, error)
	InsertItems(ctx context.Context, items []domain.SaleItem) error
	FindAllWithItems(ctx context.Context, storeID string) ([]domain.Sale, error)
}

// ProductRepository é o subconjunto do repositório de produtos que o
// sequenciador usa para a baixa de estoque.
type ProductRepository interface {
	DecrementStock(ctx context.Context, storeID, id string, quantity int) (domain.Product, error)
}

// StoreRepository resolve o vínculo de loja do chamador.
type StoreRepository interface {
	FindMembershipByUser(ctx context.Context, userID string) (domain.StoreMembership, error)
}

// Service implementa o sequenciador de transação de venda (domain.SaleService).
//
// O fluxo é linear e best-effort, sem transação entre os passos e sem
// retries: validar → resolver vínculo → criar cabeçalho → inserir linhas →
// baixar estoque item a item. Cada falha é terminal e tipada; os passos já
// aplicados permanecem aplicados. Essas janelas de inconsistência são
// comportamento especificado do sistema, verificado pelos testes.
type Service struct {
	saleRepo    SaleRepository
	productRepo ProductRepository
	storeRepo   StoreRepository
	logger      logger.Logger
}

// NewService cria e retorna uma nova instância do sequenciador de venda.
func NewService(saleRepo SaleRepository, productRepo ProductRepository, storeRepo StoreRepository, log logger.Logger) *Service {
	return &Service{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		storeRepo:   storeRepo,
		logger:      log,
	}
}

// ProcessSale executa a sequência completa de venda para o usuário.
// O chamador é responsável por limpar o carrinho após o sucesso.
func (s *Service) ProcessSale(ctx context.Context, userID string, req domain.SaleRequest) (domain.Sale, error) {
	// Passo 1: validação de entrada. Nenhuma chamada externa ocorre antes
	// de a entrada ser aceita.
	if err := validateRequest(req); err != nil {
		return domain.Sale{}, err
	}

	if userID == "" {
		return domain.Sale{}, apperror.NewUnauthorizedError("Sessão ausente.")
	}

	// Passo 2: resolver o vínculo de loja do chamador (semântica single).
	// Ausência de vínculo aborta sem nenhuma escrita.
	membership, err := s.storeRepo.FindMembershipByUser(ctx, userID)
	if err != nil {
		return domain.Sale{}, err
	}

	// Passo 3: criar o cabeçalho da venda. Falha aqui aborta tudo; o erro
	// do backend é exposto verbatim.
	sale, err := s.saleRepo.CreateSale(ctx, req.Total, membership.StoreID)
	if err != nil {
		return domain.Sale{}, apperror.NewSaleCreateError(err)
	}

	// Passo 4: inserir as linhas, congelando o preço unitário do momento.
	// Falha aqui deixa o cabeçalho já persistido; não há delete compensatório.
	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.SaleItem{
			SaleID:      sale.ID,
			ProductID:   item.Product.ID,
			Quantity:    item.Quantity,
			PriceAtSale: item.Product.Price,
			StoreID:     membership.StoreID,
		})
	}
	if err := s.saleRepo.InsertItems(ctx, items); err != nil {
		s.logger.Error("Linhas da venda não inseridas; cabeçalho permanece persistido.", err)
		return domain.Sale{}, apperror.NewLineItemInsertError(err)
	}

	// Passo 5: baixar o estoque item a item, sequencialmente. Na primeira
	// falha o fluxo para: itens anteriores mantêm a baixa aplicada, itens
	// posteriores não são tocados. Sem retry, sem rollback.
	for i, item := range req.Items {
		if _, err := s.productRepo.DecrementStock(ctx, membership.StoreID, item.Product.ID, item.Quantity); err != nil {
			s.logger.Error("Baixa de estoque interrompida no meio da venda.", err)
			return domain.Sale{}, apperror.NewStockUpdateError(err, i)
		}
	}

	s.logger.Info("Venda concluída.", map[string]interface{}{
		"sale_id":  sale.ID,
		"store_id": membership.StoreID,
		"total":    sale.Total,
		"items":    len(items),
	})

	// Passo 6: retornar o cabeçalho criado. Limpar o carrinho é
	// responsabilidade do chamador.
	return sale, nil
}

// ListSales retorna o histórico de vendas da loja, do mais novo para o mais
// antigo, com as linhas aninhadas.
func (s *Service) ListSales(ctx context.Context, storeID string) ([]domain.Sale, error) {
	return s.saleRepo.FindAllWithItems(ctx, storeID)
}

// validateRequest aplica as regras de entrada do sequenciador: itens não
// vazios, quantidades positivas, total numérico finito e igual ao total
// recalculado a partir dos snapshots de preço.
func validateRequest(req domain.SaleRequest) error {
	if len(req.Items) == 0 {
		return apperror.NewValidationError("Dados de venda inválidos: carrinho vazio.")
	}
	if math.IsNaN(req.Total) || math.IsInf(req.Total, 0) {
		return apperror.NewValidationError("Dados de venda inválidos: total não numérico.")
	}

	computed := 0.0
	for _, item := range req.Items {
		if item.Product.ID == "" {
			return apperror.NewValidationError("Dados de venda inválidos: item sem produto.")
		}
		if item.Quantity < 1 {
			return apperror.NewValidationError("Dados de venda inválidos: quantidade deve ser positiva.")
		}
		computed += item.Product.Price * float64(item.Quantity)
	}

	// O total submetido pelo cliente é recalculado e validado, nunca
	// confiado cegamente.
	if math.Abs(computed-req.Total) > totalTolerance {
		return apperror.NewValidationError("Dados de venda inválidos: total não confere com os itens.")
	}

	return nil
}
