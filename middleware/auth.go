package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw token that authenticated the request.
	ContextTokenKey = "token"
)

// AuthRequired ensures an API request carries a valid Bearer JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Fail(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Fail(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Fail(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			utils.Fail(ctx, http.StatusUnauthorized, 40104, "token revoked")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Fail(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Next()
	}
}

// AdminRequired must run after AuthRequired. It reloads the token's account, so tokens of
// deleted or renamed users stop working, and admits only usernames listed in AdminUsernames.
func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var user models.User
		err := db.WithContext(ctx.Request.Context()).First(&user, ctx.GetUint(ContextUserIDKey)).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Sugar.Errorw("admin user lookup failed", "user_id", ctx.GetUint(ContextUserIDKey), "err", err)
				utils.Fail(ctx, http.StatusInternalServerError, 50001, "failed to load account")
				return
			}
			utils.Fail(ctx, http.StatusUnauthorized, 40107, "account no longer exists")
			return
		}
		if user.Username != ctx.GetString(ContextUsernameKey) {
			utils.Fail(ctx, http.StatusUnauthorized, 40108, "token does not match account")
			return
		}
		if !config.Get().IsAdmin(user.Username) {
			utils.Fail(ctx, http.StatusForbidden, 40301, "admin privileges required")
			return
		}
		ctx.Next()
	}
}
