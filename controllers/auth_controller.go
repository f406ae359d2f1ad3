package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/forms"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// AuthController handles local accounts: HTML signup/login/logout and the JSON token API.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Signup shows and handles the registration form. A new account is signed in right away.
func (a *AuthController) Signup(ctx *gin.Context) {
	form := forms.NewSignupForm()
	if ctx.Request.Method != http.MethodPost {
		ctx.HTML(http.StatusOK, "users/signup.html", SignupPage{Layout: layoutFor(ctx), Form: form})
		return
	}
	if !form.Bind(ctx) {
		ctx.HTML(http.StatusOK, "users/signup.html", SignupPage{Layout: layoutFor(ctx), Form: form})
		return
	}

	hash, err := utils.HashPassword(form.Password1)
	if err != nil {
		serverError(ctx, "failed to hash password", err)
		return
	}
	user := models.User{PasswordHash: hash}
	form.Apply(&user)
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			form.Errors.Add("username", "A user with that username already exists.")
			ctx.HTML(http.StatusOK, "users/signup.html", SignupPage{Layout: layoutFor(ctx), Form: form})
			return
		}
		serverError(ctx, "failed to create user", err)
		return
	}
	utils.Sugar.Infow("user signed up", "user_id", user.ID, "username", user.Username)

	if !a.startSession(ctx, &user) {
		return
	}
	ctx.Redirect(http.StatusFound, "/")
}

// Login shows and handles the login form, then returns to next.
func (a *AuthController) Login(ctx *gin.Context) {
	form := forms.NewLoginForm()
	next := ctx.Query("next")
	if ctx.Request.Method != http.MethodPost {
		ctx.HTML(http.StatusOK, "users/login.html", LoginPage{Layout: layoutFor(ctx), Form: form, Next: next})
		return
	}

	next = ctx.DefaultPostForm("next", next)
	if !form.Bind(ctx) {
		ctx.HTML(http.StatusOK, "users/login.html", LoginPage{Layout: layoutFor(ctx), Form: form, Next: next})
		return
	}
	user, ok := a.authenticate(ctx, form.Username, form.Password)
	if !ok {
		if ctx.IsAborted() {
			return
		}
		form.Errors.Add(forms.NonFieldErrors, forms.InvalidLogin)
		ctx.HTML(http.StatusOK, "users/login.html", LoginPage{Layout: layoutFor(ctx), Form: form, Next: next})
		return
	}
	if !a.startSession(ctx, user) {
		return
	}
	ctx.Redirect(http.StatusFound, middleware.SafeRedirect(next, "/"))
}

// Logout revokes the session token and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := ctx.GetString(middleware.ContextTokenKey); token != "" {
		claims, err := utils.ParseToken(token)
		if err == nil {
			utils.BlacklistToken(token, utils.TokenExpiry(claims))
		}
	}
	middleware.ClearSessionCookie(ctx)
	layout := layoutFor(ctx)
	layout.User = nil
	ctx.HTML(http.StatusOK, "users/logged_out.html", ErrorPage{Layout: layout})
}

// APILogin issues a Bearer token for the JSON API.
func (a *AuthController) APILogin(ctx *gin.Context) {
	form := forms.NewLoginForm()
	if !form.BindJSON(ctx) {
		utils.Invalid(ctx, 40003, "invalid request payload", form.Errors)
		return
	}
	user, ok := a.authenticate(ctx, form.Username, form.Password)
	if !ok {
		if !ctx.IsAborted() {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		}
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, utils.SessionTTL)
	if err != nil {
		internalError(ctx, 50004, "failed to generate token", err)
		return
	}
	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_at": time.Now().Add(utils.SessionTTL),
		"user":       userResponse(*user),
	})
}

// APILogout revokes the Bearer token of the request.
func (a *AuthController) APILogout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	utils.BlacklistToken(token, utils.TokenExpiry(claims))
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the account behind the Bearer token.
func (a *AuthController) Me(ctx *gin.Context) {
	var user models.User
	if err := a.db.First(&user, ctx.GetUint(middleware.ContextUserIDKey)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, userResponse(user))
}

// authenticate aborts with a 500 page on database errors; ok=false otherwise means bad credentials.
func (a *AuthController) authenticate(ctx *gin.Context, username, password string) (*models.User, bool) {
	var user models.User
	err := a.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			serverError(ctx, "failed to load user", err)
			return nil, false
		}
		utils.CheckPassword("", password)
		return nil, false
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		utils.Sugar.Infow("failed login", "username", username, "ip", ctx.ClientIP())
		return nil, false
	}
	return &user, true
}

func (a *AuthController) startSession(ctx *gin.Context, user *models.User) bool {
	token, err := utils.GenerateToken(user.ID, user.Username, utils.SessionTTL)
	if err != nil {
		serverError(ctx, "failed to generate session token", err)
		return false
	}
	middleware.SetSessionCookie(ctx, token)
	return true
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"created_at": user.CreatedAt,
		"is_admin":   config.Get().IsAdmin(user.Username),
	}
}
