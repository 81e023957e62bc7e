//go:build integration

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "openstays_catalog/internal/adapters/http_server"
	redisad "openstays_catalog/internal/adapters/redis"
	"openstays_catalog/internal/app"
	"openstays_catalog/internal/domain"
	"openstays_catalog/internal/storage/fixture"
	mysqlrepo "openstays_catalog/internal/storage/mysql"
)

// ---------- helpers ----------

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "../../migrations"
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=catalog"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/catalog?parseTime=true&multiStatements=true&charset=utf8mb4&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func getJSON(t *testing.T, url string, hdr map[string]string, dst any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if dst != nil && res.StatusCode == http.StatusOK {
		if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return res
}

// ---------- the test ----------

func TestHTTP_EndToEnd_Catalog(t *testing.T) {
	db := startMySQL(t)
	applyMigrations(t, db)

	f, err := fixture.Read("../../fixtures/catalog.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	repo := mysqlrepo.New(db)
	if err := repo.Seed(context.Background(), f, 4); err != nil {
		t.Fatalf("seed: %v", err)
	}

	mr := miniredis.RunT(t)
	rc := redisad.NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rc.Close() })

	srv := server.New(server.Options{RequestTimeout: 10 * time.Second, CORSOrigins: []string{"*"}})
	srv.MountHandlers(&server.Handlers{
		Catalog: app.NewCatalogService(repo, redisad.NewCache(rc), time.Minute),
		Auth:    app.NewAuthenticator(repo, "osk_"),
		Limiter: app.NewRateLimiter(redisad.NewCounters(rc), time.Minute, 100),
		Ready:   map[string]server.Pinger{"database": repo, "redis": redisad.NewCache(rc)},
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	key := map[string]string{"X-API-Key": "osk_demo_3f9a2c"}

	// nearest first from central Wellington
	var page domain.PropertyPage
	res := getJSON(t, ts.URL+"/v1/properties?sort=distance_asc&near=-41.2865,174.7762,2000000", key, &page)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", res.StatusCode)
	}
	if len(page.Data) != 4 || page.Data[0].ID != "p-wlg-001" || page.Data[3].ID != "p-qtn-001" {
		t.Fatalf("distance order: %+v", page.Data)
	}
	if res.Header.Get("X-RateLimit-Limit") != "100" {
		t.Fatalf("rate limit headers missing")
	}

	var p domain.Property
	res = getJSON(t, ts.URL+"/v1/properties/p-akl-001?address_masking=true&mask_precision=1", key, &p)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", res.StatusCode)
	}
	if p.Address != nil || p.PublicCoordinates == nil || p.PublicCoordinates.Lat != -36.8 {
		t.Fatalf("masked property: %+v", p)
	}
	if len(p.BedConfig) != 3 || p.PetPolicy.Fee == nil || p.PetPolicy.Fee.Currency != "NZD" {
		t.Fatalf("projection: %+v", p)
	}

	res = getJSON(t, ts.URL+"/v1/properties/p-akl-003", key, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("inactive property status %d", res.StatusCode)
	}

	res = getJSON(t, ts.URL+"/readyz", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("readyz %d", res.StatusCode)
	}
}
