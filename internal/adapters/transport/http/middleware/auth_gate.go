package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
)

const identityKey = "auth.identity"

type identityCtxKey struct{}

// AuthGate admits requests carrying a valid access token in the
// "Authorization: Bearer" header. It verifies the token only and never
// consults the credential store.
func AuthGate(codec jwt.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusBadRequest, customErrors.KindTokenEmpty)
			return
		}

		claims, err := codec.Verify(jwt.KindAccess, raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, customErrors.KindTokenInvalid)
			return
		}

		id := model.Identity{Identifier: claims.Subject, Email: claims.Email}
		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), identityCtxKey{}, id))
		c.Next()
	}
}

// IdentityFrom returns the identity AuthGate attached to the request.
func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	id, ok := v.(model.Identity)
	return id, ok
}

// IdentityFromContext is IdentityFrom for code that only sees the request context.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(model.Identity)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abort(c *gin.Context, status int, kind customErrors.Kind) {
	c.AbortWithStatusJSON(status, dto.ErrorDTO{Error: kind.Message(), Code: kind.String()})
}
