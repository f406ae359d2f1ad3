package forms

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/models"
)

// GroupForm is the admin payload for creating a group.
type GroupForm struct {
	Title       string `json:"title" conform:"trim" validate:"required,max=200"`
	Slug        string `json:"slug" conform:"trim" validate:"required,max=100,slug"`
	Description string `json:"description" conform:"trim" validate:"max=2000"`

	Errors Errors `json:"-"`
}

func NewGroupForm() *GroupForm {
	return &GroupForm{Errors: Errors{}}
}

// BindJSON decodes and validates a JSON body.
func (f *GroupForm) BindJSON(c *gin.Context) bool {
	if err := c.ShouldBindJSON(f); err != nil {
		f.Errors = Errors{}
		f.Errors.Add(NonFieldErrors, "invalid JSON body")
		return false
	}
	return f.Validate()
}

// Validate runs the rules on values set directly, as the CLI does.
func (f *GroupForm) Validate() bool {
	f.Errors = clean(f)
	return !f.Errors.Any()
}

func (f *GroupForm) Apply(group *models.Group) {
	group.Title = f.Title
	group.Slug = f.Slug
	group.Description = f.Description
}
