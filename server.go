package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aryashah/portfolio/content"
	"github.com/aryashah/portfolio/markup"
)

const (
	themeCookie     = "theme"
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// Server serves the portfolio page, its HTMX fragments, the contact form
// and, when analytics is on, the admin dashboard.
type Server struct {
	cfg      Config
	site     *content.Site
	renderer *markup.Renderer
	tmpl     *template.Template
	store    *VisitorStore
	admin    *adminAuth
	mailer   Mailer
	stars    *StarCounter
}

// NewServer wires a server. store may be nil to disable analytics.
func NewServer(cfg Config, site *content.Site, store *VisitorStore, mailer Mailer) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s := &Server{
		cfg:      cfg,
		site:     site,
		renderer: newRenderer(site, cfg.ExtraEmoji),
		tmpl:     tmpl,
		store:    store,
		mailer:   mailer,
		stars:    NewStarCounter(cfg.GitHub, site.GitHub.Repo),
	}
	if store != nil {
		s.admin = newAdminAuth(cfg.Admin, cfg.GinMode)
	}
	return s, nil
}

func (s *Server) retention() time.Duration {
	return time.Duration(s.cfg.Analytics.RetentionDays) * 24 * time.Hour
}

func (s *Server) starButton(ctx context.Context) StarButton {
	label := s.site.GitHub.Label
	if label == "" {
		label = "Star"
	}
	return StarButton{
		Repo:  s.stars.Repo(),
		URL:   "https://github.com/" + s.stars.Repo(),
		Label: label,
		Stars: s.stars.Stars(ctx),
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Router builds the gin engine with every route installed.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(s.tmpl)
	r.Use(requestIDMiddleware())
	if s.store != nil {
		r.Use(visitorTrackingMiddleware(s.store))
	}

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.StaticFS("/static", http.FS(static))

	// Home page route
	r.GET("/", func(c *gin.Context) {
		theme := parseTheme(cookieValue(c, themeCookie))
		page := buildPage(s.site, s.renderer, theme, s.starButton(c.Request.Context()), "/")
		page.Interactive = true
		c.HTML(http.StatusOK, "index.html", page)
	})

	// HTMX fragment for a single section
	r.GET("/sections/:id", func(c *gin.Context) {
		sec, ok := s.site.Section(c.Param("id"))
		if !ok {
			c.HTML(http.StatusNotFound, "error.html", gin.H{"error": "Section not found"})
			return
		}
		c.HTML(http.StatusOK, "section.html", sectionView(sec, s.renderer))
	})

	r.POST("/theme", func(c *gin.Context) {
		next := parseTheme(cookieValue(c, themeCookie)).Toggle()
		c.SetCookie(themeCookie, string(next), int((365 * 24 * time.Hour).Seconds()), "/", "", false, false)
		c.Redirect(http.StatusSeeOther, "/")
	})

	// HTMX contact form - returns just the form HTML
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{"title": "Contact Me"})
	})

	r.POST("/contact", func(c *gin.Context) {
		var msg ContactMessage
		if err := c.ShouldBind(&msg); err != nil {
			c.HTML(http.StatusOK, "contact-error.html", gin.H{
				"error": "Please provide your name, a valid email address and a message.",
			})
			return
		}
		if err := s.mailer.Send(msg); err != nil {
			log.Printf("Error sending contact email [%s]: %v", requestID(c), err)
			c.HTML(http.StatusOK, "contact-error.html", gin.H{
				"error": "Sorry, there was an error sending your message. Please try again later.",
			})
			return
		}
		c.HTML(http.StatusOK, "contact-success.html", gin.H{
			"success": "Thank you for your message! I'll get back to you soon.",
		})
	})

	r.GET("/api/github/stars", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"repo":  s.stars.Repo(),
			"stars": s.stars.Stars(c.Request.Context()),
		})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.setupAdminRoutes(r)
	return r
}

func cookieValue(c *gin.Context, name string) string {
	v, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return v
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Portfolio listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Println("Shutting down portfolio server")
		return srv.Shutdown(shutdownCtx)
	}
}
