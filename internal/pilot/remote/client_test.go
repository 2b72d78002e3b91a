package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/perclft/qpilot/internal/qerr"
)

func TestPostJSONMapsUnauthorizedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.PostJSON(context.Background(), "/jobs", "bad-token", map[string]string{}, nil)
	if qerr.KindOf(err) != qerr.Unauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestPostJSONMapsForbiddenStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.PostJSON(context.Background(), "/jobs", "token", map[string]string{}, nil)
	if qerr.KindOf(err) != qerr.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestPostJSONMapsOtherErrorsToProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.PostJSON(context.Background(), "/jobs", "token", map[string]string{}, nil)
	if qerr.KindOf(err) != qerr.ProviderUnavailable {
		t.Fatalf("expected ProviderUnavailable, got %v", err)
	}
}

func TestGetJSONMapsUnauthorizedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.GetJSON(context.Background(), "/devices", "bad-token", nil)
	if qerr.KindOf(err) != qerr.Unauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestPostJSONSucceedsAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.PostJSON(context.Background(), "/jobs", "token", map[string]string{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.OK {
		t.Error("expected decoded response to report ok=true")
	}
}
