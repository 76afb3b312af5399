package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maruel/csvdb/internal/config"
	"github.com/maruel/csvdb/internal/csvdb"
	"github.com/maruel/csvdb/internal/server/handlers"
)

const secret = "test-secret"

func setupServer(t *testing.T, cfg *config.Server) (*httptest.Server, *csvdb.Table) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	if err := os.WriteFile(path, []byte("id;name\r\n1;Ann\r\n2;Bob"), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := csvdb.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg == nil {
		cfg = &config.Server{}
	}
	srv := httptest.NewServer(NewRouter(table, cfg))
	t.Cleanup(srv.Close)
	return srv, table
}

func token(t *testing.T, key string, method jwt.SigningMethod) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(key))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func do(t *testing.T, method, url, body, bearer string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("invalid JSON %q: %v", data, err)
		}
	}
	return resp.StatusCode, out
}

func TestRouter(t *testing.T) {
	srv, table := setupServer(t, nil)

	t.Run("health", func(t *testing.T) {
		code, body := do(t, "GET", srv.URL+"/api/health", "", "")
		if code != http.StatusOK || body["status"] != "ok" {
			t.Errorf("health = %d %v", code, body)
		}
	})

	t.Run("table and schema", func(t *testing.T) {
		code, body := do(t, "GET", srv.URL+"/api/table", "", "")
		if code != http.StatusOK || body["rows"] != float64(2) || body["nextId"] != float64(3) {
			t.Errorf("table = %d %v", code, body)
		}
		code, body = do(t, "GET", srv.URL+"/api/schema", "", "")
		if code != http.StatusOK || body["type"] != "object" {
			t.Errorf("schema = %d %v", code, body)
		}
	})

	t.Run("list", func(t *testing.T) {
		code, body := do(t, "GET", srv.URL+"/api/records?column=name&like=AN&limit=5", "", "")
		if code != http.StatusOK || body["total"] != float64(1) {
			t.Errorf("list = %d %v", code, body)
		}
		if code, _ := do(t, "GET", srv.URL+"/api/records?limit=abc", "", ""); code != http.StatusBadRequest {
			t.Errorf("list with bad limit = %d, want 400", code)
		}
	})

	t.Run("crud", func(t *testing.T) {
		code, body := do(t, "POST", srv.URL+"/api/records", `{"record":{"name":"Cy"}}`, "")
		if code != http.StatusOK {
			t.Fatalf("create = %d %v", code, body)
		}
		if rec, _ := body["record"].(map[string]any); rec["id"] != "3" {
			t.Errorf("created record = %v", body)
		}
		code, body = do(t, "GET", srv.URL+"/api/records/3", "", "")
		if rec, _ := body["record"].(map[string]any); code != http.StatusOK || rec["name"] != "Cy" {
			t.Errorf("get = %d %v", code, body)
		}
		if code, _ := do(t, "PUT", srv.URL+"/api/records/3", `{"record":{"name":"Cyd"}}`, ""); code != http.StatusOK {
			t.Errorf("update = %d", code)
		}
		if row, _ := table.FindByKey("3", ""); row["name"] != "Cyd" {
			t.Errorf("row = %v", row)
		}
		code, body = do(t, "DELETE", srv.URL+"/api/records/3?all=true", "", "")
		if code != http.StatusOK || body["deleted"] != float64(1) {
			t.Errorf("delete = %d %v", code, body)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			method, path, body string
			code               int
			errCode            string
		}{
			{"GET", "/api/records/99", "", http.StatusNotFound, "NOT_FOUND"},
			{"GET", "/api/records/abc", "", http.StatusBadRequest, "INVALID_KEY"},
			{"PUT", "/api/records/99", `{"record":{"name":"x"}}`, http.StatusNotFound, "NOT_FOUND"},
			{"PUT", "/api/records/1", `{"record":{}}`, http.StatusBadRequest, "EMPTY_RECORD"},
			{"POST", "/api/records", `{"unknown":1}`, http.StatusBadRequest, "VALIDATION_FAILED"},
			{"POST", "/api/records", `not json`, http.StatusBadRequest, "VALIDATION_FAILED"},
			{"DELETE", "/api/records/1?all=maybe", "", http.StatusBadRequest, "VALIDATION_FAILED"},
		}
		for _, tt := range tests {
			t.Run(tt.method+" "+tt.path, func(t *testing.T) {
				code, body := do(t, tt.method, srv.URL+tt.path, tt.body, "")
				if code != tt.code {
					t.Errorf("status = %d, want %d", code, tt.code)
				}
				if e, _ := body["error"].(map[string]any); e["code"] != tt.errCode {
					t.Errorf("error = %v, want code %s", body, tt.errCode)
				}
			})
		}
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = resp.Body.Close() }()
		data, _ := io.ReadAll(resp.Body)
		for _, want := range []string{"csvdb_table_rows 2", "csvdb_table_usable 1", `csvdb_http_requests_total{code="200",method="GET"}`} {
			if !strings.Contains(string(data), want) {
				t.Errorf("metrics missing %q", want)
			}
		}
	})
}

func TestAuth(t *testing.T) {
	srv, _ := setupServer(t, &config.Server{JWTSecret: secret})
	tests := []struct {
		name   string
		method string
		bearer string
		code   int
	}{
		{"read is anonymous", "GET", "", http.StatusOK},
		{"write without token", "POST", "", http.StatusUnauthorized},
		{"write with wrong key", "POST", token(t, "other", jwt.SigningMethodHS256), http.StatusUnauthorized},
		{"write with wrong algorithm", "POST", token(t, secret, jwt.SigningMethodHS512), http.StatusUnauthorized},
		{"write with token", "POST", token(t, secret, jwt.SigningMethodHS256), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ""
			if tt.method == "POST" {
				body = `{"record":{"name":"x"}}`
			}
			if code, resp := do(t, tt.method, srv.URL+"/api/records", body, tt.bearer); code != tt.code {
				t.Errorf("status = %d, want %d: %v", code, tt.code, resp)
			}
		})
	}

	t.Run("subject reaches handler", func(t *testing.T) {
		var got string
		h := AuthMiddleware([]byte(secret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = handlers.SubjectFromContext(r.Context())
		}))
		req := httptest.NewRequest("DELETE", "/api/records/1", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, secret, jwt.SigningMethodHS256))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK || got != "alice" {
			t.Errorf("status = %d, subject = %q; want 200, alice", w.Code, got)
		}
	})
}

func TestRateLimit(t *testing.T) {
	srv, _ := setupServer(t, &config.Server{RateLimits: config.RateLimits{WritePerMin: 6}})
	if code, _ := do(t, "DELETE", srv.URL+"/api/records/9", "", ""); code != http.StatusOK {
		t.Fatalf("first write = %d, want 200", code)
	}
	code, body := do(t, "DELETE", srv.URL+"/api/records/9", "", "")
	if code != http.StatusTooManyRequests {
		t.Errorf("second write = %d, want 429", code)
	}
	if e, _ := body["error"].(map[string]any); e["code"] != "RATE_LIMITED" {
		t.Errorf("body = %v", body)
	}
	// Reads are not limited.
	for range 5 {
		if code, _ := do(t, "GET", srv.URL+"/api/records", "", ""); code != http.StatusOK {
			t.Fatalf("read = %d, want 200", code)
		}
	}
}
