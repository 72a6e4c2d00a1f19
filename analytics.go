package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"
)

// Visit is one recorded page or section view.
type Visit struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"` // salted hash, never the raw address
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Section   string    `json:"section,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type SectionStat struct {
	Section string `json:"section"`
	Views   int64  `json:"views"`
}

type AdminStats struct {
	TotalVisitors    int64         `json:"total_visitors"`
	UniqueVisitors   int64         `json:"unique_visitors"`
	VisitorsToday    int64         `json:"visitors_today"`
	VisitorsThisWeek int64         `json:"visitors_this_week"`
	TopSections      []SectionStat `json:"top_sections"`
	RecentVisitors   []Visit       `json:"recent_visitors"`
}

const visitorSchema = `
CREATE TABLE IF NOT EXISTS visitors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,
	user_agent TEXT NOT NULL DEFAULT '',
	path TEXT NOT NULL,
	section TEXT NOT NULL DEFAULT '',
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS visitors_ts ON visitors(ts);
`

// VisitorStore keeps privacy-conscious visitor metrics in SQLite.
type VisitorStore struct {
	db   *sql.DB
	salt string
	now  func() time.Time
}

// OpenVisitorStore opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway store.
func OpenVisitorStore(ctx context.Context, path string) (*VisitorStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open visitor db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers, which SQLite wants anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, visitorSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create visitors table: %w", err)
	}
	return &VisitorStore{db: db, salt: randomToken(), now: time.Now}, nil
}

func (s *VisitorStore) Close() error {
	return s.db.Close()
}

// hashIP is stable for the lifetime of the store; the salt is regenerated
// on every start so hashes cannot be correlated across restarts.
func (s *VisitorStore) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + s.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// Record stores a visit from ip.
func (s *VisitorStore) Record(ctx context.Context, ip, userAgent, path, section string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, section, ts)
		VALUES (?, ?, ?, ?, ?)
	`, s.hashIP(ip), userAgent, path, section, s.now().Unix())
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// Purge deletes visits older than the retention window.
func (s *VisitorStore) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge visitors: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Recent returns the latest visits, newest first.
func (s *VisitorStore) Recent(ctx context.Context, limit int) ([]Visit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, user_agent, path, section, ts
		FROM visitors
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query visitors: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		var ts int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Section, &ts); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		v.Timestamp = time.Unix(ts, 0).UTC()
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Stats aggregates the dashboard numbers.
func (s *VisitorStore) Stats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{}
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Unix()
	weekAgo := now.Add(-7 * 24 * time.Hour).Unix()

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE ts >= ?`, []any{startOfDay}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE ts >= ?`, []any{weekAgo}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("count visitors: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT section, COUNT(*) AS views
		FROM visitors
		WHERE section != ''
		GROUP BY section
		ORDER BY views DESC, section ASC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st SectionStat
		if err := rows.Scan(&st.Section, &st.Views); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		stats.TopSections = append(stats.TopSections, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.RecentVisitors, err = s.Recent(ctx, 50)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// untrackedPrefixes are never recorded.
var untrackedPrefixes = []string{"/static/", "/admin", "/api/", "/favicon", "/privacy", "/healthz"}

// visitorTrackingMiddleware records successful GETs after they are served.
// Requests with DNT: 1 are not recorded.
func visitorTrackingMiddleware(store *VisitorStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet || c.Writer.Status() != http.StatusOK {
			return
		}
		for _, p := range untrackedPrefixes {
			if strings.HasPrefix(path, p) {
				return
			}
		}
		if c.GetHeader("DNT") == "1" {
			return
		}

		section := ""
		if c.FullPath() == "/sections/:id" {
			section = c.Param("id")
		}
		if err := store.Record(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"), path, section); err != nil {
			log.Printf("Error recording visitor [%s]: %v", requestID(c), err)
		}
	}
}

// runRetention purges old visits now and then once a day until ctx ends.
func runRetention(ctx context.Context, store *VisitorStore, retention time.Duration) {
	purge := func() {
		n, err := store.Purge(ctx, retention)
		if err != nil {
			log.Printf("Error cleaning up old visitor data: %v", err)
			return
		}
		if n > 0 {
			log.Printf("Privacy cleanup: removed %d visitor records older than %s", n, retention)
		}
	}

	purge()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}

func randomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatal("Failed to generate random token:", err)
	}
	return hex.EncodeToString(b)
}
