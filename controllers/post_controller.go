package controllers

import (
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/forms"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/templates"
	"github.com/cppla/yatube/utils"
)

const indexCacheKeyPrefix = "index_page:"

// PostController serves the post listings, post detail, create/edit and comments.
type PostController struct {
	db    *gorm.DB
	cache utils.PageCache
	media utils.MediaStorage
	views *templates.Renderer
	cfg   config.AppConfig
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, cache utils.PageCache, media utils.MediaStorage, views *templates.Renderer) *PostController {
	return &PostController{db: db, cache: cache, media: media, views: views, cfg: config.Get()}
}

func (p *PostController) postsQuery() *gorm.DB {
	return p.db.Model(&models.Post{}).Order(models.PostOrder)
}

func (p *PostController) paginate(ctx *gin.Context, q *gorm.DB) (*PostPage, error) {
	return utils.Paginate[models.Post](q.WithContext(ctx.Request.Context()), ctx.Query("page"), p.cfg.PostsPerPage, "Author", "Group")
}

// Index lists all posts. The rendered list is cached per page number for IndexCacheSeconds.
func (p *PostController) Index(ctx *gin.Context) {
	page := IndexPage{Layout: layoutFor(ctx)}
	key := indexCacheKey(utils.ParsePage(ctx.Query("page")))

	if cached, ok := p.cache.Get(ctx.Request.Context(), key); ok {
		page.PostList = template.HTML(cached)
		ctx.HTML(http.StatusOK, "posts/index.html", page)
		return
	}

	pageObj, err := p.paginate(ctx, p.postsQuery())
	if err != nil {
		serverError(ctx, "failed to list posts", err)
		return
	}
	fragment, err := p.views.Fragment("posts/index.html", "post_list", pageObj)
	if err != nil {
		serverError(ctx, "failed to render post list", err)
		return
	}
	// out-of-range requests are stored under the page actually shown
	p.cache.Set(ctx.Request.Context(), indexCacheKey(pageObj.Number), fragment, time.Duration(p.cfg.IndexCacheSeconds)*time.Second)

	page.PageObj = pageObj
	page.PostList = template.HTML(fragment)
	ctx.HTML(http.StatusOK, "posts/index.html", page)
}

func indexCacheKey(number int) string {
	return indexCacheKeyPrefix + strconv.Itoa(number)
}

// GroupPosts lists the posts of one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	var group models.Group
	if !loadOr404(ctx, "group", p.db.Where("slug = ?", ctx.Param("slug")).First(&group).Error) {
		return
	}
	pageObj, err := p.paginate(ctx, p.postsQuery().Where("group_id = ?", group.ID))
	if err != nil {
		serverError(ctx, "failed to list group posts", err)
		return
	}
	ctx.HTML(http.StatusOK, "posts/group_list.html", GroupPage{
		Layout:  layoutFor(ctx),
		Group:   &group,
		PageObj: pageObj,
	})
}

// Profile lists the posts of one author.
func (p *PostController) Profile(ctx *gin.Context) {
	var author models.User
	if !loadOr404(ctx, "author", p.db.Where("username = ?", ctx.Param("username")).First(&author).Error) {
		return
	}
	pageObj, err := p.paginate(ctx, p.postsQuery().Where("author_id = ?", author.ID))
	if err != nil {
		serverError(ctx, "failed to list author posts", err)
		return
	}

	view := ProfilePage{
		Layout:    layoutFor(ctx),
		Author:    &author,
		PageObj:   pageObj,
		PostCount: pageObj.Total,
	}
	if me := view.User; me != nil && me.ID != author.ID {
		view.CanFollow = true
		var n int64
		if err := p.db.Model(&models.Follow{}).Where("user_id = ? AND author_id = ?", me.ID, author.ID).Count(&n).Error; err != nil {
			serverError(ctx, "failed to load follow state", err)
			return
		}
		view.Following = n > 0
	}
	ctx.HTML(http.StatusOK, "posts/profile.html", view)
}

func (p *PostController) loadPost(ctx *gin.Context) (*models.Post, bool) {
	id, ok := parseID(ctx.Param("post_id"))
	if !ok {
		NotFound(ctx)
		return nil, false
	}
	var post models.Post
	if !loadOr404(ctx, "post", p.db.Preload("Author").Preload("Group").First(&post, id).Error) {
		return nil, false
	}
	return &post, true
}

func (p *PostController) renderDetail(ctx *gin.Context, post *models.Post, form *forms.CommentForm) {
	var comments []models.Comment
	if err := p.db.Preload("Author").Where("post_id = ?", post.ID).Order(models.CommentOrder).Find(&comments).Error; err != nil {
		serverError(ctx, "failed to load comments", err)
		return
	}
	var count int64
	if err := p.db.Model(&models.Post{}).Where("author_id = ?", post.AuthorID).Count(&count).Error; err != nil {
		serverError(ctx, "failed to count author posts", err)
		return
	}
	layout := layoutFor(ctx)
	ctx.HTML(http.StatusOK, "posts/post_detail.html", PostDetailPage{
		Layout:          layout,
		Post:            post,
		Comments:        comments,
		Form:            form,
		AuthorPostCount: count,
		CanEdit:         layout.User != nil && layout.User.ID == post.AuthorID,
	})
}

// PostDetail shows one post, its comments and the comment form.
func (p *PostController) PostDetail(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	p.renderDetail(ctx, post, forms.NewCommentForm())
}

func (p *PostController) renderPostForm(ctx *gin.Context, form *forms.PostForm, post *models.Post) {
	var groups []models.Group
	if err := p.db.Order("title").Find(&groups).Error; err != nil {
		serverError(ctx, "failed to load groups", err)
		return
	}
	view := PostFormPage{
		Layout: layoutFor(ctx),
		Form:   form,
		Groups: groups,
	}
	if view.User != nil {
		view.Username = view.User.Username
	}
	if post != nil {
		view.IsEdit = true
		view.PostID = post.ID
	}
	ctx.HTML(http.StatusOK, "posts/create_post.html", view)
}

func (p *PostController) maxUploadBytes() int64 {
	return int64(p.cfg.MaxUploadMB) << 20
}

// PostCreate shows and handles the new post form.
func (p *PostController) PostCreate(ctx *gin.Context) {
	me := middleware.CurrentUser(ctx)
	form := forms.NewPostForm()
	if ctx.Request.Method != http.MethodPost {
		p.renderPostForm(ctx, form, nil)
		return
	}
	if !form.Bind(ctx, p.db, p.maxUploadBytes()) {
		p.renderPostForm(ctx, form, nil)
		return
	}

	post := models.Post{AuthorID: me.ID}
	if err := form.Apply(ctx.Request.Context(), &post, p.media); err != nil {
		serverError(ctx, "failed to store post image", err)
		return
	}
	if err := p.db.Create(&post).Error; err != nil {
		serverError(ctx, "failed to create post", err)
		return
	}
	utils.Sugar.Infow("post created", "post_id", post.ID, "author", me.Username)
	ctx.Redirect(http.StatusFound, profileURL(me.Username))
}

// PostEdit lets the author change a post. Anyone else is sent back to the post.
func (p *PostController) PostEdit(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	me := middleware.CurrentUser(ctx)
	if me.ID != post.AuthorID {
		ctx.Redirect(http.StatusFound, postURL(post.ID))
		return
	}

	if ctx.Request.Method != http.MethodPost {
		p.renderPostForm(ctx, forms.PostFormFor(post), post)
		return
	}
	form := forms.NewPostForm()
	if !form.Bind(ctx, p.db, p.maxUploadBytes()) {
		p.renderPostForm(ctx, form, post)
		return
	}
	if err := form.Apply(ctx.Request.Context(), post, p.media); err != nil {
		serverError(ctx, "failed to store post image", err)
		return
	}
	if err := p.db.Model(post).Select("Text", "GroupID", "Image").Updates(post).Error; err != nil {
		serverError(ctx, "failed to update post", err)
		return
	}
	ctx.Redirect(http.StatusFound, postURL(post.ID))
}

// AddComment attaches a comment by the current user to a post.
func (p *PostController) AddComment(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	form := forms.NewCommentForm()
	if !form.Bind(ctx) {
		p.renderDetail(ctx, post, form)
		return
	}
	comment := models.Comment{PostID: post.ID, AuthorID: middleware.CurrentUser(ctx).ID}
	form.Apply(&comment)
	if err := p.db.Create(&comment).Error; err != nil {
		serverError(ctx, "failed to create comment", err)
		return
	}
	ctx.Redirect(http.StatusFound, postURL(post.ID))
}
