package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/forms"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// AdminController exposes group and user management plus cache control over the JSON API.
type AdminController struct {
	db    *gorm.DB
	cache utils.PageCache
}

func NewAdminController(db *gorm.DB, cache utils.PageCache) *AdminController {
	return &AdminController{db: db, cache: cache}
}

// internalError logs err and answers 500 with the envelope.
func internalError(ctx *gin.Context, code int, msg string, err error) {
	utils.Sugar.Errorw(msg, "path", ctx.Request.URL.Path, "code", code, "err", err)
	_ = ctx.Error(err)
	utils.Error(ctx, http.StatusInternalServerError, code, msg)
}

// ListGroups returns every group ordered by title.
func (a *AdminController) ListGroups(ctx *gin.Context) {
	var groups []models.Group
	if err := a.db.Order("title").Find(&groups).Error; err != nil {
		internalError(ctx, 50030, "failed to list groups", err)
		return
	}
	utils.Success(ctx, gin.H{"items": groups})
}

// CreateGroup validates and stores a group. Title and slug must be unique.
func (a *AdminController) CreateGroup(ctx *gin.Context) {
	form := forms.NewGroupForm()
	if !form.BindJSON(ctx) {
		utils.Invalid(ctx, 40030, "invalid group", form.Errors)
		return
	}
	var group models.Group
	form.Apply(&group)
	if err := a.db.Create(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40930, "group title or slug already exists")
			return
		}
		internalError(ctx, 50031, "failed to create group", err)
		return
	}
	utils.Sugar.Infow("group created", "slug", group.Slug, "by", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"group": group})
}

// DeleteGroup removes a group; its posts stay with the group cleared.
func (a *AdminController) DeleteGroup(ctx *gin.Context) {
	var group models.Group
	if err := a.db.Where("slug = ?", ctx.Param("slug")).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "group not found")
			return
		}
		internalError(ctx, 50032, "failed to load group", err)
		return
	}
	if err := a.db.Delete(&group).Error; err != nil {
		internalError(ctx, 50033, "failed to delete group", err)
		return
	}
	utils.Sugar.Infow("group deleted", "slug", group.Slug, "by", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"message": "group deleted"})
}

// DeleteUser removes a user with their posts, comments and follow rows.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	var user models.User
	if err := a.db.Where("username = ?", ctx.Param("username")).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40431, "user not found")
			return
		}
		internalError(ctx, 50034, "failed to load user", err)
		return
	}
	if err := a.db.Delete(&user).Error; err != nil {
		internalError(ctx, 50035, "failed to delete user", err)
		return
	}
	utils.Sugar.Infow("user deleted", "username", user.Username, "by", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"message": "user deleted"})
}

// ClearCache drops every cached page fragment.
func (a *AdminController) ClearCache(ctx *gin.Context) {
	if err := a.cache.Clear(ctx.Request.Context()); err != nil {
		internalError(ctx, 50036, "failed to clear cache", err)
		return
	}
	utils.Success(ctx, gin.H{"message": "cache cleared"})
}
