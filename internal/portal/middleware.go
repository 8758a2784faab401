package portal

import (
	"errors"
	"net/http"

	"github.com/Andiveli/HospitalFront-sub000/internal/token"
	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// JWTAuth rejects requests without a valid bearer token and stores the
// claims for the handlers.
func JWTAuth(issuer *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// OptionalAuth stores claims when a token is present. A present but invalid
// token is still rejected.
func OptionalAuth(issuer *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, issuer)
		switch {
		case errors.Is(err, token.ErrMissing):
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		default:
			c.Set(claimsKey, claims)
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context, issuer *token.Issuer) (*token.Claims, error) {
	raw, err := token.FromHeader(c.GetHeader("Authorization"))
	if err != nil {
		return nil, err
	}
	return issuer.Parse(raw)
}

func claimsFrom(c *gin.Context) (*token.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok
}
