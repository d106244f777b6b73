package principal

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
)

// Claims are the token claims this service consumes. "sub" carries the
// employee number.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware verifies the bearer token and attaches the Principal to the
// request context. Token issuance and refresh belong to the identity
// service.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				httputil.Error(w, errors.New("UNAUTHORIZED", "missing bearer token", http.StatusUnauthorized))
				return
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				httputil.Error(w, errors.New("UNAUTHORIZED", "invalid token", http.StatusUnauthorized))
				return
			}

			if claims.Subject == "" || claims.Role == "" {
				httputil.Error(w, errors.New("UNAUTHORIZED", "invalid token data", http.StatusUnauthorized))
				return
			}

			p := &Principal{
				EmployeeNumber: claims.Subject,
				Role:           Role(claims.Role),
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
