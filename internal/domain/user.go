package domain

import (
	"context"
	"time"
)

// User representa a conta de autenticação no sistema.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Oculta o hash da senha no JSON de resposta
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRegistration representa o payload de entrada para o registro.
// A loja alvo deve existir antes de qualquer conta ser criada.
type UserRegistration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	StoreID  string `json:"storeId"`
}

// RegisteredUser é a resposta do endpoint de registro.
type RegisteredUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	StoreID string `json:"storeId"`
}

// UserRepository define o contrato do provedor de contas.
// Delete existe para a ação compensatória do registro: uma conta órfã sem
// vínculo de loja passaria na autenticação mas não teria tenant autorizável.
type UserRepository interface {
	Save(ctx context.Context, user User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Delete(ctx context.Context, id string) error
}

// UserService define o contrato de lógica de negócio para contas.
type UserService interface {
	Register(ctx context.Context, registration UserRegistration) (RegisteredUser, error)
	Login(ctx context.Context, email string, password string) (string, error)
	Logout(ctx context.Context, tokenString string) error
}
