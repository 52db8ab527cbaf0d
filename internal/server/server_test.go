package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotility/internal/shared"
	"golang.org/x/oauth2"
)

type stubExchanger struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (s *stubExchanger) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	s.codes = append(s.codes, code)
	return s.token, s.err
}

func receive(t *testing.T, h *OAuthHandler) OAuthResult {
	t.Helper()
	select {
	case result := <-h.Result():
		return result
	case <-time.After(time.Second):
		t.Fatal("no result received")
		return OAuthResult{}
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("exchanges code", func(t *testing.T) {
		ex := &stubExchanger{token: &oauth2.Token{AccessToken: "abc"}}
		h := NewOAuthHandler(ex, "http://127.0.0.1:8888/callback", "state-1")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=xyz", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		result := receive(t, h)
		if result.Error() != nil || result.Token.AccessToken != "abc" {
			t.Errorf("unexpected result: %+v %v", result.Token, result.Error())
		}
		if len(ex.codes) != 1 || ex.codes[0] != "xyz" {
			t.Errorf("expected code xyz to be exchanged, got %v", ex.codes)
		}
	})

	t.Run("rejects bad state", func(t *testing.T) {
		ex := &stubExchanger{}
		h := NewOAuthHandler(ex, "", "expected")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=xyz", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if receive(t, h).Error() == nil {
			t.Error("expected state error")
		}
		if len(ex.codes) != 0 {
			t.Error("code must not be exchanged with invalid state")
		}
	})

	t.Run("reports denied authorization", func(t *testing.T) {
		h := NewOAuthHandler(&stubExchanger{}, "", "s")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		result := receive(t, h)
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Error())
		}
	})

	t.Run("reports exchange failure", func(t *testing.T) {
		h := NewOAuthHandler(&stubExchanger{err: shared.ErrAuthFailed}, "", "s")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=c", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if err := receive(t, h).Error(); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed in chain, got %v", err)
		}
	})

	t.Run("handles only one callback", func(t *testing.T) {
		h := NewOAuthHandler(&stubExchanger{token: &oauth2.Token{AccessToken: "a"}}, "", "s")

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=c", nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=c", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}
	})
}

func TestCallbackURI(t *testing.T) {
	tests := []struct {
		uri, path, addr string
	}{
		{"http://127.0.0.1:8888/callback", "/callback", "127.0.0.1:8888"},
		{"http://localhost:9000/auth/done", "/auth/done", "localhost:9000"},
		{"http://localhost:9000", "/callback", "localhost:9000"},
		{"", "/callback", ""},
	}

	for _, tt := range tests {
		if got := CallbackPath(tt.uri); got != tt.path {
			t.Errorf("CallbackPath(%q): expected %s, got %s", tt.uri, tt.path, got)
		}
		if got := CallbackAddr(tt.uri); got != tt.addr {
			t.Errorf("CallbackAddr(%q): expected %s, got %s", tt.uri, tt.addr, got)
		}
	}
}

func TestBasicRouter(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewBasicRouter()
	router.Use(mark("outer"), mark("inner"))
	router.Handle("get", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong")
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Body.String() != "pong" {
		t.Errorf("expected pong, got %q", rec.Body.String())
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("unexpected middleware order: %v", order)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestListen(t *testing.T) {
	var logs bytes.Buffer
	logger := shared.NewLogger(&logs)
	shared.SetLogLevel(logger, log.DebugLevel)

	h := NewOAuthHandler(&stubExchanger{token: &oauth2.Token{AccessToken: "live"}}, "", "s")
	router := NewBasicRouter()
	router.Use(LoggingMiddleware(logger))
	router.Handler(h)

	srv, errs, err := Listen("127.0.0.1:0", router)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr + "/callback?state=s&code=c")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := receive(t, h); got.Token == nil || got.Token.AccessToken != "live" {
		t.Errorf("unexpected result %+v", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if err, ok := <-errs; ok && err != nil {
		t.Errorf("unexpected serve error: %v", err)
	}
	if !strings.Contains(logs.String(), "/callback") {
		t.Errorf("expected request to be logged, got %q", logs.String())
	}
}

func TestOAuthResultError(t *testing.T) {
	failed := errors.New("exchange failed")
	if err := (OAuthResult{err: failed}).Error(); !errors.Is(err, failed) {
		t.Errorf("expected %v, got %v", failed, err)
	}
	if err := (OAuthResult{}).Error(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}
