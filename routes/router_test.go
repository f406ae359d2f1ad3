package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/routes"
	"github.com/cppla/yatube/testutil"
	"github.com/cppla/yatube/utils"
)

const (
	postText  = "Тестовое содержание поста"
	groupSlug = "test-slug"
)

// recorder captures the template name and view model of the last HTML render.
type recorder struct {
	inner render.HTMLRender

	mu   sync.Mutex
	name string
	data any
}

func (r *recorder) Instance(name string, data any) render.Render {
	r.mu.Lock()
	r.name, r.data = name, data
	r.mu.Unlock()
	return r.inner.Instance(name, data)
}

func (r *recorder) last() (string, any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.data
}

type fixture struct {
	t      *testing.T
	db     *gorm.DB
	ginLog string
	router http.Handler
	engine *gin.Engine
	views  *recorder
	cache  *utils.MemoryCache
	now    time.Time

	author *models.User
	group  *models.Group
	post   *models.Post
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ginLog := filepath.Join(t.TempDir(), "gin.log")
	config.Set(config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            ginLog,
		DBDriver:           "sqlite",
		RateLimitPerMinute: 10000,
		AdminUsernames:     []string{"admin"},
		MediaDir:           t.TempDir(),
	})

	f := &fixture{t: t, db: testutil.NewDB(t), ginLog: ginLog, now: time.Now()}
	f.cache = utils.NewMemoryCache(func() time.Time { return f.now })
	f.author = testutil.CreateUser(t, f.db, "auth")
	f.group = testutil.CreateGroup(t, f.db, "Тестовая группа", groupSlug)
	f.post = testutil.CreatePost(t, f.db, f.author, postText, f.group)

	f.engine = routes.SetupRouter(f.db, routes.Deps{
		Cache: f.cache,
		WrapHTML: func(h render.HTMLRender) render.HTMLRender {
			f.views = &recorder{inner: h}
			return f.views
		},
	})
	f.router = f.engine
	return f
}

func (f *fixture) token(user *models.User) string {
	token, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
	require.NoError(f.t, err)
	return token
}

func (f *fixture) do(req *http.Request, user *models.User) *httptest.ResponseRecorder {
	if user != nil {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: f.token(user)})
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) get(path string, user *models.User) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil), user)
}

func (f *fixture) submit(path string, values url.Values, user *models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req, user)
}

func (f *fixture) api(method, path, body string, user *models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+f.token(user))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) countPosts() int64 {
	var n int64
	require.NoError(f.t, f.db.Model(&models.Post{}).Count(&n).Error)
	return n
}

func decode(t *testing.T, w *httptest.ResponseRecorder) utils.JSONResponse {
	t.Helper()
	var resp utils.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestPublicPages_UseTheirTemplates(t *testing.T) {
	f := setup(t)
	cases := map[string]string{
		"/":                                  "posts/index.html",
		"/group/" + groupSlug + "/":          "posts/group_list.html",
		"/profile/auth/":                     "posts/profile.html",
		fmt.Sprintf("/posts/%d/", f.post.ID): "posts/post_detail.html",
		"/auth/login/":                       "users/login.html",
		"/auth/signup/":                      "users/signup.html",
	}
	for path, tmpl := range cases {
		t.Run(path, func(t *testing.T) {
			w := f.get(path, nil)
			require.Equal(t, http.StatusOK, w.Code)
			name, _ := f.views.last()
			assert.Equal(t, tmpl, name)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		})
	}
}

func TestMemberPages_UseTheirTemplates(t *testing.T) {
	f := setup(t)
	cases := map[string]string{
		"/create/":                                 "posts/create_post.html",
		fmt.Sprintf("/posts/%d/edit/", f.post.ID): "posts/create_post.html",
		"/follow/":                                 "posts/follow.html",
	}
	for path, tmpl := range cases {
		t.Run(path, func(t *testing.T) {
			w := f.get(path, f.author)
			require.Equal(t, http.StatusOK, w.Code)
			name, _ := f.views.last()
			assert.Equal(t, tmpl, name)
		})
	}
}

func TestPages_ShowThePost(t *testing.T) {
	f := setup(t)

	w := f.get("/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), postText)

	f.get("/group/"+groupSlug+"/", nil)
	_, data := f.views.last()
	groupPage := data.(controllers.GroupPage)
	assert.Equal(t, groupSlug, groupPage.Group.Slug)
	require.Len(t, groupPage.PageObj.Items, 1)
	assert.Equal(t, postText, groupPage.PageObj.Items[0].Text)
	assert.Equal(t, "auth", groupPage.PageObj.Items[0].Author.Username)

	f.get("/profile/auth/", nil)
	_, data = f.views.last()
	profile := data.(controllers.ProfilePage)
	assert.Equal(t, "auth", profile.Author.Username)
	assert.EqualValues(t, 1, profile.PostCount)
	assert.False(t, profile.CanFollow)

	f.get(fmt.Sprintf("/posts/%d/", f.post.ID), nil)
	_, data = f.views.last()
	detail := data.(controllers.PostDetailPage)
	assert.Equal(t, postText, detail.Post.Text)
	assert.EqualValues(t, 1, detail.AuthorPostCount)
	assert.False(t, detail.CanEdit)
}

func TestPostInAnotherGroup_IsNotListedThere(t *testing.T) {
	f := setup(t)
	testutil.CreateGroup(t, f.db, "Другая группа", "other")

	w := f.get("/group/other/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, data := f.views.last()
	assert.Empty(t, data.(controllers.GroupPage).PageObj.Items)
}

func TestUnknownPages_Return404(t *testing.T) {
	f := setup(t)
	for _, path := range []string{
		"/unexisting_page/",
		"/group/missing/",
		"/profile/nobody/",
		"/posts/9999/",
		"/posts/abc/",
		"/posts/9999/edit/",
	} {
		t.Run(path, func(t *testing.T) {
			w := f.get(path, f.author)
			assert.Equal(t, http.StatusNotFound, w.Code)
			name, _ := f.views.last()
			assert.Equal(t, "core/404.html", name)
		})
	}

	w := f.get("/api/v1/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, decode(t, w).Code)
}

func TestAnonymous_IsRedirectedToLogin(t *testing.T) {
	f := setup(t)
	editURL := fmt.Sprintf("/posts/%d/edit/", f.post.ID)
	for path, want := range map[string]string{
		"/create/":              "/auth/login/?next=/create/",
		editURL:                 "/auth/login/?next=" + editURL,
		"/follow/":              "/auth/login/?next=/follow/",
		"/profile/auth/follow/": "/auth/login/?next=/profile/auth/follow/",
	} {
		t.Run(path, func(t *testing.T) {
			w := f.get(path, nil)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, want, w.Header().Get("Location"))
		})
	}
}

func TestAnonymousCreate_DoesNotAddAPost(t *testing.T) {
	f := setup(t)
	before := f.countPosts()

	w := f.submit("/create/", url.Values{"text": {"Новый пост"}}, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=/create/", w.Header().Get("Location"))
	assert.Equal(t, before, f.countPosts())
}

func TestCreatePost_RedirectsToProfile(t *testing.T) {
	f := setup(t)
	before := f.countPosts()

	w := f.submit("/create/", url.Values{
		"text":  {"Новый пост"},
		"group": {fmt.Sprint(f.group.ID)},
	}, f.author)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/auth/", w.Header().Get("Location"))
	assert.Equal(t, before+1, f.countPosts())

	var created models.Post
	require.NoError(t, f.db.Order("id DESC").First(&created).Error)
	assert.Equal(t, "Новый пост", created.Text)
	assert.Equal(t, f.author.ID, created.AuthorID)
	require.NotNil(t, created.GroupID)
	assert.Equal(t, f.group.ID, *created.GroupID)
}

func TestCreatePost_InvalidFormIsShownAgain(t *testing.T) {
	f := setup(t)
	before := f.countPosts()

	w := f.submit("/create/", url.Values{"text": {"   "}, "group": {"9999"}}, f.author)

	require.Equal(t, http.StatusOK, w.Code)
	name, data := f.views.last()
	assert.Equal(t, "posts/create_post.html", name)
	form := data.(controllers.PostFormPage).Form
	assert.True(t, form.Errors.Has("text"))
	assert.True(t, form.Errors.Has("group"))
	assert.Equal(t, before, f.countPosts())
}

func TestEditPost_ByAuthor(t *testing.T) {
	f := setup(t)
	editURL := fmt.Sprintf("/posts/%d/edit/", f.post.ID)

	f.get(editURL, f.author)
	_, data := f.views.last()
	page := data.(controllers.PostFormPage)
	assert.True(t, page.IsEdit)
	assert.Equal(t, postText, page.Form.Text)

	w := f.submit(editURL, url.Values{"text": {"test"}}, f.author)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", f.post.ID), w.Header().Get("Location"))

	var edited models.Post
	require.NoError(t, f.db.First(&edited, f.post.ID).Error)
	assert.Equal(t, "test", edited.Text)
	assert.Nil(t, edited.GroupID)
	assert.WithinDuration(t, f.post.PubDate, edited.PubDate, time.Second)
}

func TestEditPost_ByAnotherUserRedirectsToPost(t *testing.T) {
	f := setup(t)
	other := testutil.CreateUser(t, f.db, "other")
	editURL := fmt.Sprintf("/posts/%d/edit/", f.post.ID)

	w := f.get(editURL, other)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", f.post.ID), w.Header().Get("Location"))

	w = f.submit(editURL, url.Values{"text": {"hijacked"}}, other)
	assert.Equal(t, http.StatusFound, w.Code)

	var unchanged models.Post
	require.NoError(t, f.db.First(&unchanged, f.post.ID).Error)
	assert.Equal(t, postText, unchanged.Text)
}

func TestPagination(t *testing.T) {
	f := setup(t)
	for i := 0; i < 12; i++ {
		testutil.CreatePost(t, f.db, f.author, fmt.Sprintf("Пост %d", i), f.group)
	}

	for _, path := range []string{"/group/" + groupSlug + "/", "/profile/auth/"} {
		t.Run(path, func(t *testing.T) {
			f.get(path, nil)
			_, data := f.views.last()
			assert.Len(t, pageItems(data), 10)

			f.get(path+"?page=2", nil)
			_, data = f.views.last()
			assert.Len(t, pageItems(data), 3)

			f.get(path+"?page=99", nil)
			_, data = f.views.last()
			assert.Len(t, pageItems(data), 3)
		})
	}

	f.get("/", nil)
	_, data := f.views.last()
	index := data.(controllers.IndexPage)
	require.NotNil(t, index.PageObj)
	assert.Len(t, index.PageObj.Items, 10)
	assert.Equal(t, "Пост 11", index.PageObj.Items[0].Text)
	assert.Equal(t, 2, index.PageObj.NumPages)
}

func pageItems(data any) []models.Post {
	switch v := data.(type) {
	case controllers.GroupPage:
		return v.PageObj.Items
	case controllers.ProfilePage:
		return v.PageObj.Items
	case controllers.FollowPage:
		return v.PageObj.Items
	}
	return nil
}

func TestIndex_IsCached(t *testing.T) {
	f := setup(t)

	first := f.get("/", nil)
	require.Equal(t, http.StatusOK, first.Code)

	testutil.CreatePost(t, f.db, f.author, "Свежий пост", nil)

	second := f.get("/", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.NotContains(t, second.Body.String(), "Свежий пост")
	_, data := f.views.last()
	assert.Nil(t, data.(controllers.IndexPage).PageObj)

	require.NoError(t, f.cache.Clear(context.Background()))
	third := f.get("/", nil)
	assert.Contains(t, third.Body.String(), "Свежий пост")
}

func TestIndex_CachedPageSurvivesPostDeletion(t *testing.T) {
	f := setup(t)

	first := f.get("/", nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Contains(t, first.Body.String(), postText)

	require.NoError(t, f.db.Delete(f.post).Error)

	second := f.get("/", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	require.NoError(t, f.cache.Clear(context.Background()))
	third := f.get("/", nil)
	assert.NotContains(t, third.Body.String(), postText)
}

func TestIndex_PagesAreCachedSeparately(t *testing.T) {
	const newest = "Пост 11"
	for _, query := range []string{"?page=2", "?page=%202", "?page=2%20", "?page=99"} {
		t.Run(query, func(t *testing.T) {
			f := setup(t)
			for i := 0; i < 12; i++ {
				testutil.CreatePost(t, f.db, f.author, fmt.Sprintf("Пост %d", i), nil)
			}

			second := f.get("/"+query, nil)
			require.Equal(t, http.StatusOK, second.Code)
			assert.Contains(t, second.Body.String(), postText)
			assert.NotContains(t, second.Body.String(), newest)

			first := f.get("/", nil)
			require.Equal(t, http.StatusOK, first.Code)
			assert.Contains(t, first.Body.String(), newest)
			assert.NotContains(t, first.Body.String(), postText)

			again := f.get("/?page=2", nil)
			assert.Contains(t, again.Body.String(), postText)
			assert.Equal(t, 2, f.cache.Len())
		})
	}
}

func TestIndex_OutOfRangePagesDoNotGrowTheCache(t *testing.T) {
	f := setup(t)
	for _, n := range []int{5, 999, 123456, -1} {
		f.get(fmt.Sprintf("/?page=%d", n), nil)
	}
	f.get("/?page=junk", nil)
	assert.Equal(t, 1, f.cache.Len())
}

func TestIndex_CacheExpires(t *testing.T) {
	f := setup(t)
	f.get("/", nil)
	testutil.CreatePost(t, f.db, f.author, "Свежий пост", nil)

	f.now = f.now.Add(19 * time.Second)
	assert.NotContains(t, f.get("/", nil).Body.String(), "Свежий пост")

	f.now = f.now.Add(time.Second)
	assert.Contains(t, f.get("/", nil).Body.String(), "Свежий пост")
}

func TestComments(t *testing.T) {
	f := setup(t)
	commentURL := fmt.Sprintf("/posts/%d/comment/", f.post.ID)
	detailURL := fmt.Sprintf("/posts/%d/", f.post.ID)

	w := f.submit(commentURL, url.Values{"text": {"Первый"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next="+commentURL, w.Header().Get("Location"))

	w = f.submit(commentURL, url.Values{"text": {"Первый"}}, f.author)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailURL, w.Header().Get("Location"))

	w = f.submit(commentURL, url.Values{"text": {""}}, f.author)
	require.Equal(t, http.StatusOK, w.Code)
	_, data := f.views.last()
	assert.True(t, data.(controllers.PostDetailPage).Form.Errors.Has("text"))

	f.get(detailURL, nil)
	_, data = f.views.last()
	comments := data.(controllers.PostDetailPage).Comments
	require.Len(t, comments, 1)
	assert.Equal(t, "Первый", comments[0].Text)
	assert.Equal(t, "auth", comments[0].Author.Username)
}

func TestFollow(t *testing.T) {
	f := setup(t)
	reader := testutil.CreateUser(t, f.db, "reader")
	stranger := testutil.CreateUser(t, f.db, "stranger")

	follows := func() int64 {
		var n int64
		require.NoError(t, f.db.Model(&models.Follow{}).Count(&n).Error)
		return n
	}

	w := f.get("/profile/auth/follow/", reader)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/auth/", w.Header().Get("Location"))
	assert.EqualValues(t, 1, follows())

	f.get("/profile/auth/follow/", reader)
	assert.EqualValues(t, 1, follows(), "repeated follow is a no-op")

	f.get("/profile/auth/follow/", f.author)
	assert.EqualValues(t, 1, follows(), "self follow is a no-op")

	f.get("/profile/auth/", reader)
	_, data := f.views.last()
	profile := data.(controllers.ProfilePage)
	assert.True(t, profile.CanFollow)
	assert.True(t, profile.Following)

	f.get("/follow/", reader)
	_, data = f.views.last()
	items := pageItems(data)
	require.Len(t, items, 1)
	assert.Equal(t, postText, items[0].Text)

	f.get("/follow/", stranger)
	_, data = f.views.last()
	assert.Empty(t, pageItems(data))

	w = f.submit("/profile/auth/unfollow/", nil, reader)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.EqualValues(t, 0, follows())

	f.get("/follow/", reader)
	_, data = f.views.last()
	assert.Empty(t, pageItems(data))
}

func TestFollow_ReturnsToLocalReferer(t *testing.T) {
	f := setup(t)
	reader := testutil.CreateUser(t, f.db, "reader")

	req := httptest.NewRequest(http.MethodGet, "/profile/auth/follow/", nil)
	req.Header.Set("Referer", "http://example.com/?page=2")
	w := f.do(req, reader)
	assert.Equal(t, "/?page=2", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/profile/auth/unfollow/", nil)
	req.Header.Set("Referer", "https://evil.example/phish")
	w = f.do(req, reader)
	assert.Equal(t, "/profile/auth/", w.Header().Get("Location"))
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func TestSignupLoginLogout(t *testing.T) {
	f := setup(t)

	w := f.submit("/auth/signup/", url.Values{
		"username":  {"newbie"},
		"email":     {"Newbie@Example.com"},
		"password1": {"s3cret-pass"},
		"password2": {"s3cret-pass"},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	var user models.User
	require.NoError(t, f.db.Where("username = ?", "newbie").First(&user).Error)
	assert.Equal(t, "newbie@example.com", user.Email)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	w = f.submit("/auth/signup/", url.Values{
		"username":  {"newbie"},
		"password1": {"s3cret-pass"},
		"password2": {"s3cret-pass"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, data := f.views.last()
	assert.Equal(t, []string{"A user with that username already exists."}, data.(controllers.SignupPage).Form.Errors.Get("username"))

	w = f.submit("/auth/login/", url.Values{"username": {"newbie"}, "password": {"wrong-pass"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, data = f.views.last()
	assert.True(t, data.(controllers.LoginPage).Form.Errors.Any())

	w = f.submit("/auth/login/?next=/create/", url.Values{"username": {"newbie"}, "password": {"s3cret-pass"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/create/", w.Header().Get("Location"))
	cookie = sessionCookie(w)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.AddCookie(cookie)
	w = f.do(req, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/logout/", nil)
	req.AddCookie(cookie)
	w = f.do(req, nil)
	require.Equal(t, http.StatusOK, w.Code)
	name, _ := f.views.last()
	assert.Equal(t, "users/logged_out.html", name)

	req = httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.AddCookie(cookie)
	w = f.do(req, nil)
	assert.Equal(t, http.StatusFound, w.Code, "revoked session is anonymous")
}

func TestLogin_IgnoresForeignNext(t *testing.T) {
	f := setup(t)
	w := f.submit("/auth/login/", url.Values{
		"username": {"auth"},
		"password": {"password123"},
		"next":     {"https://evil.example/"},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestAPI_LoginAndMe(t *testing.T) {
	f := setup(t)

	w := f.api(http.MethodPost, "/api/v1/auth/login", `{"username":"auth","password":"password123"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]any)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w).Data.(map[string]any)
	assert.Equal(t, "auth", me["username"])
	assert.Equal(t, false, me["is_admin"])

	w = f.api(http.MethodPost, "/api/v1/auth/login", `{"username":"auth","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.api(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAPI(t *testing.T) {
	f := setup(t)
	admin := testutil.CreateUser(t, f.db, "admin")
	require.Contains(t, f.get("/", nil).Body.String(), postText)

	w := f.api(http.MethodGet, "/api/v1/admin/groups", "", f.author)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.api(http.MethodPost, "/api/v1/admin/groups", `{"title":"Котики","slug":"cats","description":"Про котиков"}`, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.api(http.MethodPost, "/api/v1/admin/groups", `{"title":"Котики 2","slug":"cats"}`, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.api(http.MethodPost, "/api/v1/admin/groups", `{"title":"","slug":"bad slug"}`, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.api(http.MethodGet, "/api/v1/admin/groups", "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w).Data.(map[string]any)["items"].([]any)
	assert.Len(t, items, 2)

	w = f.api(http.MethodDelete, "/api/v1/admin/groups/"+groupSlug, "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	var post models.Post
	require.NoError(t, f.db.First(&post, f.post.ID).Error)
	assert.Nil(t, post.GroupID)

	w = f.api(http.MethodDelete, "/api/v1/admin/groups/"+groupSlug, "", admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.api(http.MethodDelete, "/api/v1/admin/users/auth", "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, f.countPosts())
	assert.Contains(t, f.get("/", nil).Body.String(), postText, "index fragment is still cached")

	w = f.api(http.MethodPost, "/api/v1/admin/cache/clear", "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, f.get("/", nil).Body.String(), postText)
}

func TestHealthAndMetrics(t *testing.T) {
	f := setup(t)

	w := f.get("/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	f.get("/", nil)
	w = f.get("/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "yatube_http_requests_total")
}

func TestAccessLogAndPanicRecovery(t *testing.T) {
	f := setup(t)
	f.engine.GET("/boom", func(*gin.Context) { panic("boom") })

	require.Equal(t, http.StatusOK, f.get("/health", nil).Code)
	assert.Equal(t, http.StatusInternalServerError, f.get("/boom", nil).Code)

	logged, err := os.ReadFile(f.ginLog)
	require.NoError(t, err)
	assert.Contains(t, string(logged), `"path":"/health"`)
	assert.Contains(t, string(logged), "[Recovery from panic]")
}

type brokenCache struct{ utils.PageCache }

func (brokenCache) Clear(context.Context) error { return errors.New("redis: connection refused") }

func TestAdminAPI_LogsInternalErrors(t *testing.T) {
	f := setup(t)
	admin := testutil.CreateUser(t, f.db, "admin")

	core, logs := observer.New(zapcore.ErrorLevel)
	prev := utils.Sugar
	utils.Sugar = zap.New(core).Sugar()
	t.Cleanup(func() { utils.Sugar = prev })

	f.router = routes.SetupRouter(f.db, routes.Deps{Cache: brokenCache{f.cache}})
	w := f.api(http.MethodPost, "/api/v1/admin/cache/clear", "", admin)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 50036, decode(t, w).Code)
	entries := logs.FilterMessage("failed to clear cache").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "redis: connection refused", entries[0].ContextMap()["err"])
}
