package controllers

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/forms"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// Layout is embedded by every page view model.
type Layout struct {
	User *models.User
	Path string
	Year int
}

// PostPage is a page of posts as shown by the listing views.
type PostPage = utils.Page[models.Post]

type IndexPage struct {
	Layout
	// PageObj is nil when the list came from the page cache.
	PageObj  *PostPage
	PostList template.HTML
}

type GroupPage struct {
	Layout
	Group   *models.Group
	PageObj *PostPage
}

type ProfilePage struct {
	Layout
	Author    *models.User
	PageObj   *PostPage
	PostCount int64
	Following bool
	CanFollow bool
}

type PostDetailPage struct {
	Layout
	Post            *models.Post
	Comments        []models.Comment
	Form            *forms.CommentForm
	AuthorPostCount int64
	CanEdit         bool
}

type PostFormPage struct {
	Layout
	Form     *forms.PostForm
	Username string
	IsEdit   bool
	PostID   uint
	Groups   []models.Group
}

type FollowPage struct {
	Layout
	PageObj *PostPage
}

type LoginPage struct {
	Layout
	Form *forms.LoginForm
	Next string
}

type SignupPage struct {
	Layout
	Form *forms.SignupForm
}

type ErrorPage struct {
	Layout
}

func layoutFor(ctx *gin.Context) Layout {
	return Layout{
		User: middleware.CurrentUser(ctx),
		Path: ctx.Request.URL.Path,
		Year: time.Now().Year(),
	}
}

// NotFound renders the 404 page.
func NotFound(ctx *gin.Context) {
	ctx.HTML(http.StatusNotFound, "core/404.html", ErrorPage{Layout: layoutFor(ctx)})
	ctx.Abort()
}

// serverError logs err and renders the 500 page.
func serverError(ctx *gin.Context, msg string, err error) {
	utils.Sugar.Errorw(msg, "path", ctx.Request.URL.Path, "err", err)
	_ = ctx.Error(err)
	ctx.HTML(http.StatusInternalServerError, "core/500.html", ErrorPage{Layout: layoutFor(ctx)})
	ctx.Abort()
}

// loadOr404 runs a lookup and answers 404 or 500 itself when it fails.
func loadOr404(ctx *gin.Context, what string, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(ctx)
		return false
	}
	serverError(ctx, "failed to load "+what, err)
	return false
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// priorPage returns the local page the visitor came from, or fallback.
func priorPage(ctx *gin.Context, fallback string) string {
	ref := ctx.GetHeader("Referer")
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil {
		return fallback
	}
	if u.Host != "" && !strings.EqualFold(u.Host, ctx.Request.Host) {
		return fallback
	}
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return middleware.SafeRedirect(target, fallback)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}
