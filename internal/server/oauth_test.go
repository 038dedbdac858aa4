package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

type fakeExchanger struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (f *fakeExchanger) Exchange(_ context.Context, code string, _ ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	f.codes = append(f.codes, code)
	return f.token, f.err
}

func callback(h *OAuthHandler, query string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+query, nil))
	return rec
}

func TestOAuthHandler(t *testing.T) {
	t.Run("exchanges the code", func(t *testing.T) {
		ex := &fakeExchanger{token: &oauth2.Token{AccessToken: "access", RefreshToken: "refresh"}}
		h := NewOAuthHandler(ex, "state-1")

		rec := callback(h, "state=state-1&code=abc")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Spotify connected") {
			t.Errorf("unexpected page %q", rec.Body.String())
		}

		result := <-h.Result()
		if result.Error() != nil || result.Token.AccessToken != "access" {
			t.Errorf("unexpected result %+v", result)
		}
		if len(ex.codes) != 1 || ex.codes[0] != "abc" {
			t.Errorf("unexpected exchanged codes %v", ex.codes)
		}

		if _, open := <-h.Result(); open {
			t.Error("result channel should be closed after one result")
		}
	})

	t.Run("rejects a wrong state", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "state-1")

		if rec := callback(h, "state=other&code=abc"); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected an error result")
		}
		if len(ex.codes) != 0 {
			t.Error("code must not be exchanged with a wrong state")
		}
	})

	t.Run("reports a denied authorization", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "s")

		callback(h, "state=s&error=access_denied&error_description=user+cancelled")
		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Error())
		}
	})

	t.Run("reports a failed exchange", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{err: errors.New("invalid_grant")}, "s")

		if rec := callback(h, "state=s&code=abc"); rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected an error result")
		}
	})

	t.Run("processes a single callback", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{token: &oauth2.Token{AccessToken: "a"}}, "s")

		callback(h, "state=s&code=abc")
		if rec := callback(h, "state=s&code=abc"); rec.Code != http.StatusBadRequest {
			t.Errorf("expected replayed callback to be rejected, got %d", rec.Code)
		}
	})
}
