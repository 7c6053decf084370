package middleware

import (
	"context"
	"net/http"

	apperror "github.com/lpbborges/auto-pos/internal/errors"
	"github.com/lpbborges/auto-pos/internal/pkg/cache"
	"github.com/lpbborges/auto-pos/internal/pkg/token"
)

// ContextKey é o tipo das chaves de contexto deste pacote.
// Usamos um tipo int para garantir que a chave seja única e não haja conflito
// com outras chaves string (Context Keys devem ser não-exportadas e de um tipo único).
type ContextKey int

const (
	UserClaimsKey ContextKey = iota
)

// UserClaims representa os dados do usuário extraídos do token JWT,
// que serão anexados ao contexto.
type UserClaims struct {
	UserID string
	Email  string
}

// TokenService define o contrato de validação necessário para o middleware.
type TokenService interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// DenylistKey monta a chave do cache usada para tokens revogados no logout.
func DenylistKey(tokenString string) string {
	return "denylist:" + tokenString
}

// NewAuthMiddleware cria uma função de middleware que valida um JWT, rejeita
// tokens revogados (denylist do logout) e anexa as claims (UserID e Email)
// ao contexto da requisição.
func NewAuthMiddleware(tokenSvc TokenService, cacheClient cache.Client) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {

			// 1. Extrair o Token do Header Authorization: Bearer <token>
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || len(authHeader) < 7 || authHeader[:7] != "Bearer " {
				http.Error(w, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado.").Error(), http.StatusUnauthorized)
				return
			}

			tokenString := authHeader[7:]

			// 2. Validar o Token
			claims, err := tokenSvc.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, apperror.NewUnauthorizedError("Token inválido ou expirado.").Error(), http.StatusUnauthorized)
				return
			}

			// 3. Rejeitar tokens revogados pelo logout.
			// Uma falha de cache aqui não bloqueia a requisição: a denylist
			// expira junto com o próprio token.
			if revoked, cacheErr := cacheClient.Exists(r.Context(), DenylistKey(tokenString)); cacheErr == nil && revoked {
				http.Error(w, apperror.NewUnauthorizedError("Sessão encerrada. Faça login novamente.").Error(), http.StatusUnauthorized)
				return
			}

			// 4. Anexar Claims ao Contexto
			userClaims := UserClaims{
				UserID: claims.UserID,
				Email:  claims.Email,
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, userClaims)

			// Chama o próximo handler com o novo contexto
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

// GetUserClaimsFromContext é uma função utilitária para extrair as claims no handler.
func GetUserClaimsFromContext(ctx context.Context) (UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(UserClaims)
	return claims, ok
}
