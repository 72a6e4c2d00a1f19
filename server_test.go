package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryashah/portfolio/content"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []ContactMessage
	err  error
}

func (f *fakeMailer) Send(msg ContactMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func testConfig() Config {
	return Config{
		Port:      "8080",
		GinMode:   gin.TestMode,
		Analytics: AnalyticsConfig{Enabled: true, RetentionDays: 30},
		Admin:     AdminConfig{Username: "admin", Password: "secret"},
		GitHub:    GitHubConfig{Enabled: false, FallbackStars: 42},
	}
}

type testEnv struct {
	srv    *Server
	router *gin.Engine
	store  *VisitorStore
	mailer *fakeMailer
}

func newTestEnv(t *testing.T, site *content.Site) *testEnv {
	t.Helper()
	if site == nil {
		var err error
		site, err = content.Default()
		require.NoError(t, err)
	}
	store, err := OpenVisitorStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mailer := &fakeMailer{}
	srv, err := NewServer(testConfig(), site, store, mailer)
	require.NoError(t, err)
	return &testEnv{srv: srv, router: srv.Router(), store: store, mailer: mailer}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHomePage(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	last := -1
	for _, id := range []string{"presentation", "skills", "projects", "contact", "sport", "resume"} {
		i := strings.Index(body, `<section id="`+id+`"`)
		require.NotEqual(t, -1, i, id)
		assert.Greater(t, i, last, "section %s out of order", id)
		last = i
	}

	assert.Contains(t, body, `<strong class="md-strong">Background:</strong> Computer Science graduate`)
	assert.Contains(t, body, `<span class="md-bullet">•</span> Figma`)
	assert.Contains(t, body, `class="theme-light"`)
	assert.Contains(t, body, `data-stars="42"`)
	assert.Contains(t, body, `action="/theme"`)
}

func TestHomePageAssetsResolve(t *testing.T) {
	env := newTestEnv(t, nil)

	body := env.get("/").Body.String()
	links := regexp.MustCompile(`(?:src|href)="(/(?:static|images)/[^"]+)"`).FindAllStringSubmatch(body, -1)
	require.NotEmpty(t, links)
	for _, m := range links {
		assert.Equal(t, http.StatusOK, env.get(m[1]).Code, m[1])
	}
}

func TestHomePageDarkTheme(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: themeCookie, Value: "dark"})
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="theme-dark"`)
}

func TestHomePageEscapesContent(t *testing.T) {
	site, err := content.ParseSite([]byte(`
owner: {name: Tester}
sections:
  - id: about
    title: About
    content: "<script>alert(1)</script> **<i>hi</i>**"
`))
	require.NoError(t, err)
	env := newTestEnv(t, site)

	w := env.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "<script>alert(1)")
	assert.NotContains(t, body, "<i>hi</i>")
	assert.Contains(t, body, `<strong class="md-strong">&lt;i&gt;hi&lt;/i&gt;</strong>`)
}

func TestSectionFragment(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.get("/sections/skills")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<section id="skills"`)
	assert.Contains(t, w.Body.String(), `<strong class="md-strong">Frontend Development:</strong>`)
	assert.NotContains(t, w.Body.String(), "<html")

	w = env.get("/sections/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Section not found")
}

func TestThemeToggle(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(httptest.NewRequest(http.MethodPost, "/theme", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "theme=dark")

	req := httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.AddCookie(&http.Cookie{Name: themeCookie, Value: "dark"})
	w = env.do(req)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "theme=light")
}

func TestContactForm(t *testing.T) {
	t.Run("form fragment", func(t *testing.T) {
		env := newTestEnv(t, nil)
		w := env.get("/contact-form")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `name="fullName"`)
	})

	t.Run("valid submission is mailed", func(t *testing.T) {
		env := newTestEnv(t, nil)
		w := env.do(postForm("/contact", url.Values{
			"fullName": {"Ada"},
			"email":    {"ada@example.com"},
			"message":  {"Hello there"},
		}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Thank you for your message")
		require.Len(t, env.mailer.sent, 1)
		assert.Equal(t, ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "Hello there"}, env.mailer.sent[0])
	})

	t.Run("invalid email is rejected", func(t *testing.T) {
		env := newTestEnv(t, nil)
		w := env.do(postForm("/contact", url.Values{
			"fullName": {"Ada"},
			"email":    {"not-an-email"},
			"message":  {"Hello"},
		}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "valid email address")
		assert.Empty(t, env.mailer.sent)
	})

	t.Run("mail failure", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.mailer.err = errors.New("smtp down")
		w := env.do(postForm("/contact", url.Values{
			"fullName": {"Ada"},
			"email":    {"ada@example.com"},
			"message":  {"Hello"},
		}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "error sending your message")
	})
}

func TestStarsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.get("/api/github/stars")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Repo  string `json:"repo"`
		Stars int    `json:"stars"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "toukoum/portfolio", got.Repo)
	assert.Equal(t, 42, got.Stars)
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.get("/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(w.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, id)
	assert.Equal(t, id, env.do(req).Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "<script>")
	assert.NotEqual(t, "<script>", env.do(req).Header().Get(requestIDHeader))
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.get("/static/site.css")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".md-strong")
}

func TestVisitorTracking(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.get("/")
	env.get("/sections/skills")
	env.get("/sections/unknown")
	env.get("/healthz")
	env.get("/static/site.css")

	dnt := httptest.NewRequest(http.MethodGet, "/", nil)
	dnt.Header.Set("DNT", "1")
	env.do(dnt)

	stats, err := env.store.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalVisitors)
	assert.EqualValues(t, 1, stats.UniqueVisitors)
	assert.Equal(t, []SectionStat{{Section: "skills", Views: 1}}, stats.TopSections)
	for _, v := range stats.RecentVisitors {
		assert.NotContains(t, v.HashedIP, "192.0.2.1")
		assert.Len(t, v.HashedIP, 16)
	}
}

func TestServerWithoutAnalytics(t *testing.T) {
	site, err := content.Default()
	require.NoError(t, err)
	srv, err := NewServer(testConfig(), site, nil, &fakeMailer{})
	require.NoError(t, err)
	router := srv.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
