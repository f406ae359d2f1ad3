package forms

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

const invalidChoice = "Select a valid choice. That choice is not one of the available choices."

// PostForm is the create/edit form for a Post.
type PostForm struct {
	Text  string `form:"text" conform:"trim" validate:"required"`
	Group string `form:"group" conform:"trim"`

	Errors Errors `form:"-"`

	groupID *uint
	image   image.Image
}

// NewPostForm returns an unbound, empty form.
func NewPostForm() *PostForm {
	return &PostForm{Errors: Errors{}}
}

// PostFormFor pre-fills the form with an existing post's values.
func PostFormFor(post *models.Post) *PostForm {
	f := NewPostForm()
	f.Text = post.Text
	if post.GroupID != nil {
		f.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return f
}

// Selected reports whether the group choice with id is the current value.
func (f *PostForm) Selected(id uint) bool {
	return f.Group != "" && f.Group == strconv.FormatUint(uint64(id), 10)
}

// Bind reads the submitted fields and the optional image upload, then validates them.
// It returns true when the form is valid.
func (f *PostForm) Bind(c *gin.Context, db *gorm.DB, maxUploadBytes int64) bool {
	f.Errors = Errors{}
	f.Text = c.PostForm("text")
	f.Group = c.PostForm("group")
	for k, v := range clean(f) {
		f.Errors[k] = v
	}

	if f.Group != "" {
		f.groupID = f.lookupGroup(db)
	}

	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		f.Errors.Add("image", utils.ErrNotAnImage.Error())
	case fh.Size == 0:
	default:
		f.bindImage(fh, maxUploadBytes)
	}
	return !f.Errors.Any()
}

func (f *PostForm) lookupGroup(db *gorm.DB) *uint {
	id, err := strconv.ParseUint(f.Group, 10, 64)
	if err != nil {
		f.Errors.Add("group", invalidChoice)
		return nil
	}
	var group models.Group
	if err := db.Select("id").First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			f.Errors.Add("group", invalidChoice)
		} else {
			f.Errors.Add(NonFieldErrors, "group lookup failed")
			utils.Sugar.Errorf("post form group lookup id=%d err=%v", id, err)
		}
		return nil
	}
	return &group.ID
}

func (f *PostForm) bindImage(fh *multipart.FileHeader, maxUploadBytes int64) {
	rc, err := fh.Open()
	if err != nil {
		f.Errors.Add("image", utils.ErrNotAnImage.Error())
		return
	}
	defer rc.Close()
	limit := maxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		f.Errors.Add("image", utils.ErrNotAnImage.Error())
		return
	}
	img, _, err := utils.ValidateImage(data, limit)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, utils.ErrImageTooLarge) {
			msg = fmt.Sprintf("Ensure the image is at most %d MB.", limit>>20)
		}
		f.Errors.Add("image", msg)
		return
	}
	f.image = img
}

// HasImage reports whether a valid image was uploaded.
func (f *PostForm) HasImage() bool {
	return f.image != nil
}

// Apply copies the cleaned values onto post. A new image is stored through store;
// without an upload the existing image is kept. The caller persists post.
func (f *PostForm) Apply(ctx context.Context, post *models.Post, store utils.MediaStorage) error {
	post.Text = f.Text
	post.GroupID = f.groupID
	post.Group = nil
	if f.image == nil {
		return nil
	}
	if store == nil {
		return errors.New("media storage is not configured")
	}
	url, err := utils.StorePostImage(ctx, store, f.image, time.Now())
	if err != nil {
		return err
	}
	post.Image = url
	return nil
}
