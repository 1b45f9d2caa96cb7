package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	cfg := ServerConfig{Addr: "127.0.0.1:0", JournalDisabled: true}
	handle, err := RunServer(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("run server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = handle.Stop(ctx)
		_ = handle.Wait()
	})
	return "http://" + handle.Addr()
}

func TestServerEndToEnd(t *testing.T) {
	base := startTestServer(t)

	resp, err := http.Post(base+"/login", "application/json", strings.NewReader(`{"username":"alice"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	users, err := http.Get(base + "/users")
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	defer users.Body.Close()
	var payload struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
	}
	if err := json.NewDecoder(users.Body).Decode(&payload); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if !payload.Success || payload.Count != 1 {
		t.Fatalf("users payload: %+v", payload)
	}
}

func TestUnknownRouteReturnsNotFoundBody(t *testing.T) {
	base := startTestServer(t)

	resp, err := http.Get(base + "/definitely-not-a-route")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	if payload["error"] != "Not found" {
		t.Fatalf("body = %q", body)
	}
}

func TestCORSPreflightOnAnyPath(t *testing.T) {
	base := startTestServer(t)

	for _, path := range []string{"/login", "/users", "/anything"} {
		req, _ := http.NewRequest(http.MethodOptions, base+path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("options %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("%s: status = %d, want 204", path, resp.StatusCode)
		}
		if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
			t.Fatalf("%s: allow-origin = %q", path, origin)
		}
		if methods := resp.Header.Get("Access-Control-Allow-Methods"); methods != "GET,POST,OPTIONS" {
			t.Fatalf("%s: allow-methods = %q", path, methods)
		}
		if headers := resp.Header.Get("Access-Control-Allow-Headers"); headers != "Content-Type" {
			t.Fatalf("%s: allow-headers = %q", path, headers)
		}
	}
}

func TestCORSHeadersOnRegularResponses(t *testing.T) {
	base := startTestServer(t)

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("allow-origin = %q", origin)
	}
}
