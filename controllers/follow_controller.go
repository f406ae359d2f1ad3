package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// FollowController manages subscriptions between users and the followed-authors feed.
type FollowController struct {
	db  *gorm.DB
	cfg config.AppConfig
}

func NewFollowController(db *gorm.DB) *FollowController {
	return &FollowController{db: db, cfg: config.Get()}
}

// FollowIndex lists posts of every author the current user follows.
func (f *FollowController) FollowIndex(ctx *gin.Context) {
	me := middleware.CurrentUser(ctx)
	followed := f.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", me.ID)
	q := f.db.Model(&models.Post{}).Where("author_id IN (?)", followed).Order(models.PostOrder)

	pageObj, err := utils.Paginate[models.Post](q.WithContext(ctx.Request.Context()), ctx.Query("page"), f.cfg.PostsPerPage, "Author", "Group")
	if err != nil {
		serverError(ctx, "failed to list followed posts", err)
		return
	}
	ctx.HTML(http.StatusOK, "posts/follow.html", FollowPage{Layout: layoutFor(ctx), PageObj: pageObj})
}

func (f *FollowController) loadAuthor(ctx *gin.Context) (*models.User, bool) {
	var author models.User
	if !loadOr404(ctx, "author", f.db.Where("username = ?", ctx.Param("username")).First(&author).Error) {
		return nil, false
	}
	return &author, true
}

// ProfileFollow subscribes the current user to an author. Repeats and self-follows change nothing.
func (f *FollowController) ProfileFollow(ctx *gin.Context) {
	author, ok := f.loadAuthor(ctx)
	if !ok {
		return
	}
	me := middleware.CurrentUser(ctx)
	if me.ID != author.ID {
		err := f.db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{UserID: me.ID, AuthorID: author.ID}).Error
		if err != nil {
			serverError(ctx, "failed to follow author", err)
			return
		}
	}
	ctx.Redirect(http.StatusFound, priorPage(ctx, profileURL(author.Username)))
}

// ProfileUnfollow removes the subscription if there is one.
func (f *FollowController) ProfileUnfollow(ctx *gin.Context) {
	author, ok := f.loadAuthor(ctx)
	if !ok {
		return
	}
	me := middleware.CurrentUser(ctx)
	err := f.db.Where("user_id = ? AND author_id = ?", me.ID, author.ID).Delete(&models.Follow{}).Error
	if err != nil {
		serverError(ctx, "failed to unfollow author", err)
		return
	}
	ctx.Redirect(http.StatusFound, priorPage(ctx, profileURL(author.Username)))
}
