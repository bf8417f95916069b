package fetch

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/urlwash/urlwash/internal/types"
)

func testConfig() types.HTTPConfig {
	return types.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "urlwash-test",
		MaxRedirects: 3,
	}
}

func TestGetReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "urlwash-test" {
			t.Errorf("User-Agent = %q, want urlwash-test", ua)
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	got, err := New(testConfig()).Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if got != "hello" {
		t.Errorf("Get() = %q, want %q", got, "hello")
	}
}

func TestGetNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := New(testConfig()).Get(srv.URL); err == nil {
		t.Fatal("Get() error = nil, want status error")
	}
}

func TestFinalURLFollowsRedirects(t *testing.T) {
	var target string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/short":
			http.Redirect(w, r, "/long", http.StatusFound)
		default:
			w.Write([]byte("ok"))
		}
	}))
	defer srv.Close()
	target = srv.URL + "/long"

	got, err := New(testConfig()).FinalURL(srv.URL + "/short")
	if err != nil {
		t.Fatalf("FinalURL() error = %v, want nil", err)
	}
	if got != target {
		t.Errorf("FinalURL() = %q, want %q", got, target)
	}
}

func TestFinalURLNoRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	got, err := New(testConfig()).FinalURL(srv.URL)
	if err != nil {
		t.Fatalf("FinalURL() error = %v, want nil", err)
	}
	if got != srv.URL {
		t.Errorf("FinalURL() = %q, want %q", got, srv.URL)
	}
}

func TestFinalURLRedirectLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/again", http.StatusFound)
	}))
	defer srv.Close()

	if _, err := New(testConfig()).FinalURL(srv.URL); err == nil {
		t.Fatal("FinalURL() error = nil, want redirect limit error")
	}
}
