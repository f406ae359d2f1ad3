package forms

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// SignupForm creates a local account.
type SignupForm struct {
	Username  string `form:"username" json:"username" conform:"trim" validate:"required,max=150,username"`
	FirstName string `form:"first_name" json:"first_name" conform:"trim" validate:"max=150"`
	LastName  string `form:"last_name" json:"last_name" conform:"trim" validate:"max=150"`
	Email     string `form:"email" json:"email" conform:"trim,lower" validate:"omitempty,max=254,email"`
	Password1 string `form:"password1" json:"password1" validate:"required,min=8,max=128"`
	Password2 string `form:"password2" json:"password2" validate:"required,eqfield=Password1"`

	Errors Errors `form:"-" json:"-"`
}

func NewSignupForm() *SignupForm {
	return &SignupForm{Errors: Errors{}}
}

func (f *SignupForm) Bind(c *gin.Context) bool {
	f.Username = c.PostForm("username")
	f.FirstName = c.PostForm("first_name")
	f.LastName = c.PostForm("last_name")
	f.Email = c.PostForm("email")
	f.Password1 = c.PostForm("password1")
	f.Password2 = c.PostForm("password2")
	return f.Validate()
}

// Validate runs the rules on values set directly, as the CLI does.
// Markup is stripped from the names.
func (f *SignupForm) Validate() bool {
	f.FirstName = utils.StripTags(f.FirstName)
	f.LastName = utils.StripTags(f.LastName)
	f.Errors = clean(f)
	return !f.Errors.Any()
}

// Apply fills user; the caller sets the password hash.
func (f *SignupForm) Apply(user *models.User) {
	user.Username = f.Username
	user.FirstName = f.FirstName
	user.LastName = f.LastName
	user.Email = f.Email
}

// LoginForm checks only presence; credentials are verified by the caller.
type LoginForm struct {
	Username string `form:"username" json:"username" conform:"trim" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`

	Errors Errors `form:"-" json:"-"`
}

func NewLoginForm() *LoginForm {
	return &LoginForm{Errors: Errors{}}
}

func (f *LoginForm) Bind(c *gin.Context) bool {
	f.Username = c.PostForm("username")
	f.Password = c.PostForm("password")
	f.Errors = clean(f)
	return !f.Errors.Any()
}

// BindJSON decodes a JSON body for the API login.
func (f *LoginForm) BindJSON(c *gin.Context) bool {
	if err := c.ShouldBindJSON(f); err != nil {
		f.Errors = Errors{}
		f.Errors.Add(NonFieldErrors, "invalid JSON body")
		return false
	}
	f.Errors = clean(f)
	return !f.Errors.Any()
}

// InvalidLogin is the message shown when the credentials do not match.
const InvalidLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."
