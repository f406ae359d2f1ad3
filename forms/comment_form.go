package forms

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/models"
)

// CommentForm is the add-comment form shown under a post.
type CommentForm struct {
	Text string `form:"text" conform:"trim" validate:"required"`

	Errors Errors `form:"-"`
}

func NewCommentForm() *CommentForm {
	return &CommentForm{Errors: Errors{}}
}

// Bind reads and validates the submitted text.
func (f *CommentForm) Bind(c *gin.Context) bool {
	f.Text = c.PostForm("text")
	f.Errors = clean(f)
	return !f.Errors.Any()
}

// Apply copies the cleaned text onto comment.
func (f *CommentForm) Apply(comment *models.Comment) {
	comment.Text = f.Text
}
