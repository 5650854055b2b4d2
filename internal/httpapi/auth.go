package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const contextKeyUserID = "user_id"

// sessionClaims is the payload the hosting auth service signs into session
// tokens. Only the subject is consumed here; token issuance lives elsewhere.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// authMiddleware validates the bearer token and stashes the caller id in the
// gin context under contextKeyUserID.
func authMiddleware(signingKey []byte, issuer string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authorization := ctx.GetHeader("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorKindUnauthorized, "missing authorization header"))
			return
		}
		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorKindUnauthorized, "invalid authorization header"))
			return
		}

		claims := &sessionClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return signingKey, nil
		}, jwt.WithIssuer(issuer))
		if err != nil || !token.Valid || claims.Subject == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorKindUnauthorized, "invalid or expired token"))
			return
		}

		ctx.Set(contextKeyUserID, claims.Subject)
		ctx.Next()
	}
}

func callerID(ctx *gin.Context) string {
	return ctx.GetString(contextKeyUserID)
}
