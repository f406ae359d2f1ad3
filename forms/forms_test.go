package forms_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/forms"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/testutil"
	"github.com/cppla/yatube/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func formContext(values url.Values) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	return c
}

func multipartContext(t *testing.T, values map[string]string, fileName string, file []byte) *gin.Context {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("image", fileName)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.Request = req
	return c
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type memStore struct {
	saved map[string][]byte
}

func (m *memStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[key] = data
	return "/media/" + key, nil
}

func TestPostForm_TextRequired(t *testing.T) {
	db := testutil.NewDB(t)

	f := forms.NewPostForm()
	ok := f.Bind(formContext(url.Values{"text": {"   "}}), db, 0)
	assert.False(t, ok)
	assert.Equal(t, []string{"This field is required."}, f.Errors.Get("text"))
}

func TestPostForm_ValidWithoutGroup(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "auth")

	f := forms.NewPostForm()
	require.True(t, f.Bind(formContext(url.Values{"text": {"  Тестовое содержание поста  "}}), db, 0))

	post := &models.Post{AuthorID: author.ID}
	require.NoError(t, f.Apply(context.Background(), post, nil))
	assert.Equal(t, "Тестовое содержание поста", post.Text)
	assert.Nil(t, post.GroupID)
	assert.Empty(t, post.Image)
}

func TestPostForm_GroupMustExist(t *testing.T) {
	db := testutil.NewDB(t)
	group := testutil.CreateGroup(t, db, "Тестовая группа", "test-slug")

	f := forms.NewPostForm()
	require.True(t, f.Bind(formContext(url.Values{"text": {"x"}, "group": {strconv.Itoa(int(group.ID))}}), db, 0))
	post := &models.Post{}
	require.NoError(t, f.Apply(context.Background(), post, nil))
	require.NotNil(t, post.GroupID)
	assert.Equal(t, group.ID, *post.GroupID)
	assert.True(t, f.Selected(group.ID))

	for _, bad := range []string{"9999", "abc", "-1"} {
		f := forms.NewPostForm()
		assert.False(t, f.Bind(formContext(url.Values{"text": {"x"}, "group": {bad}}), db, 0), bad)
		assert.True(t, f.Errors.Has("group"), bad)
	}
}

func TestPostForm_EditKeepsImageAndCanClearGroup(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "auth")
	group := testutil.CreateGroup(t, db, "Тестовая группа", "test-slug")
	post := testutil.CreatePost(t, db, author, "Тестовое содержание поста", group)
	post.Image = "/media/posts/old.jpg"

	initial := forms.PostFormFor(post)
	assert.Equal(t, "Тестовое содержание поста", initial.Text)
	assert.Equal(t, strconv.Itoa(int(group.ID)), initial.Group)

	f := forms.NewPostForm()
	require.True(t, f.Bind(formContext(url.Values{"text": {"test"}, "group": {""}}), db, 0))
	require.NoError(t, f.Apply(context.Background(), post, nil))
	assert.Equal(t, "test", post.Text)
	assert.Nil(t, post.GroupID)
	assert.Equal(t, "/media/posts/old.jpg", post.Image)
}

func TestPostForm_Image(t *testing.T) {
	db := testutil.NewDB(t)

	f := forms.NewPostForm()
	c := multipartContext(t, map[string]string{"text": "with picture"}, "small.png", smallPNG(t))
	require.True(t, f.Bind(c, db, 1<<20), f.Errors)
	assert.True(t, f.HasImage())

	store := &memStore{}
	post := &models.Post{}
	require.NoError(t, f.Apply(context.Background(), post, store))
	assert.True(t, strings.HasPrefix(post.Image, "/media/posts/"), post.Image)
	assert.Len(t, store.saved, 1)

	bad := forms.NewPostForm()
	c = multipartContext(t, map[string]string{"text": "with text file"}, "notes.txt", []byte("hello"))
	assert.False(t, bad.Bind(c, db, 1<<20))
	assert.Equal(t, []string{utils.ErrNotAnImage.Error()}, bad.Errors.Get("image"))
}

func TestPostForm_RejectsImageWithHugeDimensions(t *testing.T) {
	db := testutil.NewDB(t)

	f := forms.NewPostForm()
	c := multipartContext(t, map[string]string{"text": "bomb"}, "bomb.png", testutil.PNGHeader(50000, 50000))
	assert.False(t, f.Bind(c, db, 10<<20))
	assert.False(t, f.HasImage())
	assert.Equal(t, []string{utils.ErrNotAnImage.Error()}, f.Errors.Get("image"))
}

func TestCommentForm(t *testing.T) {
	f := forms.NewCommentForm()
	assert.False(t, f.Bind(formContext(url.Values{"text": {""}})))
	assert.True(t, f.Errors.Has("text"))

	f = forms.NewCommentForm()
	require.True(t, f.Bind(formContext(url.Values{"text": {" Nice post "}})))
	var comment models.Comment
	f.Apply(&comment)
	assert.Equal(t, "Nice post", comment.Text)
}

func TestSignupForm(t *testing.T) {
	tests := []struct {
		name      string
		values    url.Values
		wantField string
	}{
		{"valid", url.Values{"username": {"auth"}, "password1": {"s3cret-pass"}, "password2": {"s3cret-pass"}}, ""},
		{"mismatch", url.Values{"username": {"auth"}, "password1": {"s3cret-pass"}, "password2": {"other-pass"}}, "password2"},
		{"short password", url.Values{"username": {"auth"}, "password1": {"short"}, "password2": {"short"}}, "password1"},
		{"bad username", url.Values{"username": {"no spaces"}, "password1": {"s3cret-pass"}, "password2": {"s3cret-pass"}}, "username"},
		{"bad email", url.Values{"username": {"auth"}, "email": {"nope"}, "password1": {"s3cret-pass"}, "password2": {"s3cret-pass"}}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := forms.NewSignupForm()
			ok := f.Bind(formContext(tt.values))
			if tt.wantField == "" {
				assert.True(t, ok, f.Errors)
				return
			}
			assert.False(t, ok)
			assert.True(t, f.Errors.Has(tt.wantField), f.Errors)
		})
	}
}

func TestSignupForm_StripsMarkupFromNames(t *testing.T) {
	f := forms.NewSignupForm()
	ok := f.Bind(formContext(url.Values{
		"username":   {"auth"},
		"first_name": {"<b>Лев</b>"},
		"last_name":  {` <script>alert(1)</script>Толстой `},
		"password1":  {"s3cret-pass"},
		"password2":  {"s3cret-pass"},
	}))
	require.True(t, ok, f.Errors)

	var user models.User
	f.Apply(&user)
	assert.Equal(t, "Лев", user.FirstName)
	assert.Equal(t, "Толстой", user.LastName)
}

func TestGroupForm(t *testing.T) {
	f := forms.NewGroupForm()
	f.Title, f.Slug = " Тестовая группа ", "test-slug"
	require.True(t, f.Validate())
	var g models.Group
	f.Apply(&g)
	assert.Equal(t, "Тестовая группа", g.Title)

	f = forms.NewGroupForm()
	f.Title, f.Slug = "Title", "not a slug!"
	assert.False(t, f.Validate())
	assert.Equal(t, []string{"Enter a valid slug consisting of letters, numbers, underscores or hyphens."}, f.Errors.Get("slug"))

	f = forms.NewGroupForm()
	f.Slug = "ok"
	assert.False(t, f.Validate())
	assert.True(t, f.Errors.Has("title"))
}
