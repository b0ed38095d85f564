package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"asset-ledger/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const actorContextKey = "actor"

// Claims del token: identifican al actor que ejecuta las operaciones
type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	BaseID string      `json:"base_id"`
	jwt.RegisteredClaims
}

// Actor convierte los claims en el actor que reciben los servicios
func (c *Claims) Actor() models.Actor {
	return models.Actor{UserID: c.UserID, Role: c.Role, BaseID: c.BaseID}
}

// TokenIssuer firma y valida tokens HS256
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), expiry: expiry}
}

// GenerateToken emite un token para el actor
func (t *TokenIssuer) GenerateToken(actor models.Actor) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: actor.UserID,
		Role:   actor.Role,
		BaseID: actor.BaseID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifica firma, expiración y que los claims traigan un actor válido
func (t *TokenIssuer) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user_id")
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}

// AuthMiddleware exige un Bearer token y deja el actor en el contexto de gin
func AuthMiddleware(issuer *TokenIssuer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "❌ Se requiere un token Bearer", errors.New("missing bearer token"))
			return
		}

		claims, err := issuer.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("⛔ Token rechazado",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString("request_id")),
				zap.Error(err))
			abortUnauthorized(c, "❌ Token inválido o expirado", err)
			return
		}

		c.Set(actorContextKey, claims.Actor())
		c.Next()
	}
}

// bearerToken lee el header Authorization. Los navegadores no pueden enviar
// headers en el handshake WebSocket, así que ahí se acepta ?token=
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		token := strings.TrimSpace(parts[1])
		return token, token != ""
	}
	if c.IsWebsocket() {
		if token := c.Query("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

func abortUnauthorized(c *gin.Context, message string, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
		"error":   err.Error(),
	})
}

// SetActor guarda el actor en el contexto de gin
func SetActor(c *gin.Context, actor models.Actor) {
	c.Set(actorContextKey, actor)
}

// ActorFromContext obtiene el actor autenticado del contexto de gin
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(actorContextKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}
