package middlewares

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"vpass/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const claimsKey = "claims"

// AuthMiddleware verifies the bearer token and stores its claims on the
// context. Subject must hold the numeric user id.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		bearerToken := ctx.Request.Header.Get("Authorization")
		reqToken, found := strings.CutPrefix(bearerToken, "Bearer ")
		if !found || reqToken == "" {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims := &types.Claims{}
		tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			if !errors.Is(err, jwt.ErrTokenExpired) {
				log.Printf("token error: %s", err.Error())
			}
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !tkn.Valid {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		uid, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil || uid == 0 {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims.UserID = uint(uid)
		ctx.Set(claimsKey, claims)
		ctx.Set("id", claims.UserID)
		ctx.Set("role", claims.Role)
		ctx.Next()
	}
}

// Claims returns the verified claims, or nil outside AuthMiddleware.
func Claims(ctx *gin.Context) *types.Claims {
	v, ok := ctx.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*types.Claims)
	return claims
}

func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims := Claims(ctx)
		if claims == nil {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !slices.Contains(roles, claims.Role) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		ctx.Next()
	}
}

// SignToken issues an HS256 token for claims valid for ttl.
func SignToken(secret []byte, claims types.Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.Subject = strconv.FormatUint(uint64(claims.UserID), 10)
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func MaintenanceMode(enabled func() bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if enabled() {
			log.Println("server is under maintenance")
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, "server is under maintenance")
			return
		}
		ctx.Next()
	}
}
