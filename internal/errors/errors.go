package errors

import (
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do auto-pos.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
// Erros de validação nunca chegam ao backend externo.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado
// (busca single que encontrou zero linhas).
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// UnauthorizedError representa a ausência de sessão válida.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um novo erro de autenticação.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// NoMembershipError indica que o usuário autenticado não possui vínculo com
// nenhuma loja. O usuário passa na autenticação mas não tem tenant
// autorizável, portanto nenhuma escrita deve ocorrer.
type NoMembershipError struct {
	UserID string
}

func (e *NoMembershipError) Error() string {
	return "Usuário não é membro de nenhuma loja."
}
func (e *NoMembershipError) Category() string { return "NO_STORE_MEMBERSHIP" }
func (e *NoMembershipError) HTTPStatus() int  { return http.StatusForbidden } // 403
func (e *NoMembershipError) Unwrap() error    { return nil }

// NewNoMembershipError cria o erro de ausência de vínculo de loja.
func NewNoMembershipError(userID string) AppError {
	return &NoMembershipError{UserID: userID}
}

// ConflictError representa um conflito na regra de negócio (e.g., recurso duplicado,
// vínculo de loja ambíguo).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito.
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// --- Erros do Sequenciador de Venda ---
// Cada passo externo do fluxo de venda tem seu próprio tipo de erro terminal.
// A mensagem do backend é preservada verbatim em Reason; nenhum passo é
// reexecutado automaticamente.

// SaleCreateError indica falha na criação do cabeçalho da venda.
// Nada mais foi tentado: nenhuma linha foi inserida, nenhum estoque alterado.
type SaleCreateError struct {
	Reason error
}

func (e *SaleCreateError) Error() string {
	return fmt.Sprintf("Falha ao criar a venda: %s", e.Reason.Error())
}
func (e *SaleCreateError) Category() string { return "SALE_CREATE_FAILED" }
func (e *SaleCreateError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *SaleCreateError) Unwrap() error    { return e.Reason }

// NewSaleCreateError cria o erro de falha na criação da venda.
func NewSaleCreateError(reason error) AppError {
	return &SaleCreateError{Reason: reason}
}

// LineItemInsertError indica falha na inserção das linhas da venda.
// O cabeçalho da venda já foi persistido e NÃO é removido: essa janela de
// inconsistência é comportamento documentado do fluxo, não um bug.
type LineItemInsertError struct {
	Reason error
}

func (e *LineItemInsertError) Error() string {
	return fmt.Sprintf("Falha ao inserir itens da venda: %s", e.Reason.Error())
}
func (e *LineItemInsertError) Category() string { return "LINE_ITEM_INSERT_FAILED" }
func (e *LineItemInsertError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *LineItemInsertError) Unwrap() error    { return e.Reason }

// NewLineItemInsertError cria o erro de falha na inserção de linhas.
func NewLineItemInsertError(reason error) AppError {
	return &LineItemInsertError{Reason: reason}
}

// StockUpdateError indica falha na baixa de estoque de um item específico.
// ItemIndex aponta o item em que o fluxo parou: itens anteriores mantêm o
// estoque já decrementado, itens posteriores não foram tocados.
type StockUpdateError struct {
	Reason    error
	ItemIndex int
}

func (e *StockUpdateError) Error() string {
	return fmt.Sprintf("Falha ao atualizar estoque do item %d: %s", e.ItemIndex, e.Reason.Error())
}
func (e *StockUpdateError) Category() string { return "STOCK_UPDATE_FAILED" }
func (e *StockUpdateError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *StockUpdateError) Unwrap() error    { return e.Reason }

// NewStockUpdateError cria o erro de falha na baixa de estoque.
func NewStockUpdateError(reason error, itemIndex int) AppError {
	return &StockUpdateError{Reason: reason, ItemIndex: itemIndex}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
// A mensagem do driver é preservada verbatim, sem encapsulamento que a perca.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
func MapToHTTPStatus(err error) (int, string, string) {
	if appErr, ok := err.(AppError); ok {
		// O erro é tipado (ValidationError, NotFoundError, etc.)
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado (e.g., erro simples de pacote Go que não implementa AppError)
	// Tratar como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
