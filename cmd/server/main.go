package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/uxlens/uxlens/internal/api"
	"github.com/uxlens/uxlens/internal/db"
	"github.com/uxlens/uxlens/internal/middleware"
	"github.com/uxlens/uxlens/internal/utils"
)

func main() {
	addr := utils.SafeEnv("UXLENS_ADDR", ":8080")
	commit := os.Getenv("UXLENS_COMMIT")
	buildTime := os.Getenv("UXLENS_BUILD_TIME")

	mux := http.NewServeMux()
	openRouter().Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "UXLens API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	// Frontend serving strategy (priority):
	// 1) Static files if UXLENS_STATIC_DIR is set (fullstack image)
	// 2) Dev proxy if UXLENS_DEV_FRONTEND_URL is set (proxy / to Vite dev)
	if staticDir := os.Getenv("UXLENS_STATIC_DIR"); staticDir != "" {
		fs := http.FileServer(http.Dir(staticDir))
		mux.Handle("/", fs)
	} else if devURL := os.Getenv("UXLENS_DEV_FRONTEND_URL"); devURL != "" {
		if u, err := url.Parse(devURL); err == nil {
			rp := httputil.NewSingleHostReverseProxy(u)
			// Ensure no-store headers also apply to proxied responses
			rp.ModifyResponse = func(res *http.Response) error {
				res.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
				res.Header.Set("Pragma", "no-cache")
				res.Header.Set("Expires", "0")
				return nil
			}
			mux.Handle("/", rp)
		} else {
			log.Printf("invalid UXLENS_DEV_FRONTEND_URL=%q: %v", devURL, err)
		}
	}

	handler := middleware.NoStore(middleware.SecureHeaders(middleware.CORS(middleware.WithAuth(mux))))

	log.Printf("UXLens server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openRouter prefers a SQLite-backed store when UXLENS_SQLITE_PATH is set and
// falls back to the in-memory store otherwise (useful for local hacking).
func openRouter() *api.Router {
	path := os.Getenv("UXLENS_SQLITE_PATH")
	if path == "" {
		log.Printf("UXLENS_SQLITE_PATH not set, using in-memory store")
		return api.NewRouter()
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Fatalf("open sqlite %s: %v", path, err)
	}
	if err := db.RunMigrations(conn, os.Getenv("UXLENS_MIGRATIONS_DIR")); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	store, err := db.NewStore(conn)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}
	log.Printf("using sqlite store at %s", path)
	return api.NewRouterWithStore(store)
}
