package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/picshed/picshed"
	"github.com/picshed/picshed/identity"
)

func TestStaticVerifier(t *testing.T) {
	t.Run("known token resolves", func(t *testing.T) {
		v := identity.NewStaticVerifier(map[string]string{"s3cret": "alice"})

		owner, err := v.Verify(context.Background(), "s3cret")
		assert.NoError(t, err)
		assert.Equal(t, "alice", owner)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		v := identity.NewStaticVerifier(map[string]string{"s3cret": "alice"})

		_, err := v.Verify(context.Background(), "wrong")
		assert.ErrorIs(t, err, picshed.ErrUnauthorized)
	})

	t.Run("empty token rejected", func(t *testing.T) {
		v := identity.NewStaticVerifier(map[string]string{"s3cret": "alice"})

		_, err := v.Verify(context.Background(), "")
		assert.ErrorIs(t, err, picshed.ErrUnauthorized)
	})

	t.Run("source map is copied", func(t *testing.T) {
		tokens := map[string]string{"s3cret": "alice"}
		v := identity.NewStaticVerifier(tokens)
		tokens["s3cret"] = "mallory"

		owner, err := v.Verify(context.Background(), "s3cret")
		assert.NoError(t, err)
		assert.Equal(t, "alice", owner)
	})

	t.Run("context cancelled", func(t *testing.T) {
		v := identity.NewStaticVerifier(map[string]string{"s3cret": "alice"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := v.Verify(ctx, "s3cret")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadFile(t *testing.T) {
	writeFile := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "tokens.yaml")
		assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("valid file", func(t *testing.T) {
		path := writeFile(t, `
tokens:
  - token: "s3cret"
    owner_id: "alice"
  - token: "t0ken"
    owner_id: "bob"
`)

		v, err := identity.LoadFile(path)
		assert.NoError(t, err)

		owner, err := v.Verify(context.Background(), "t0ken")
		assert.NoError(t, err)
		assert.Equal(t, "bob", owner)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := identity.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "tokens: [unclosed")

		_, err := identity.LoadFile(path)
		assert.Error(t, err)
	})

	t.Run("entry without owner", func(t *testing.T) {
		path := writeFile(t, `
tokens:
  - token: "s3cret"
`)

		_, err := identity.LoadFile(path)
		assert.Error(t, err)
	})
}

func TestHTTPVerifier(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req struct {
				Token string `json:"token"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "s3cret", req.Token)

			_ = json.NewEncoder(w).Encode(map[string]string{"owner_id": "alice"})
		}))
		defer srv.Close()

		v := identity.NewHTTPVerifier(srv.URL, time.Second)

		owner, err := v.Verify(context.Background(), "s3cret")
		assert.NoError(t, err)
		assert.Equal(t, "alice", owner)
	})

	t.Run("rejected token maps to unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		v := identity.NewHTTPVerifier(srv.URL, time.Second)

		_, err := v.Verify(context.Background(), "bad")
		assert.ErrorIs(t, err, picshed.ErrUnauthorized)
	})

	t.Run("empty owner id rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"owner_id": ""})
		}))
		defer srv.Close()

		v := identity.NewHTTPVerifier(srv.URL, time.Second)

		_, err := v.Verify(context.Background(), "s3cret")
		assert.ErrorIs(t, err, picshed.ErrUnauthorized)
	})

	t.Run("server error is not unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		v := identity.NewHTTPVerifier(srv.URL, time.Second)

		_, err := v.Verify(context.Background(), "s3cret")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, picshed.ErrUnauthorized)
	})

	t.Run("unreachable provider", func(t *testing.T) {
		v := identity.NewHTTPVerifier("http://127.0.0.1:1", 100*time.Millisecond)

		_, err := v.Verify(context.Background(), "s3cret")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, picshed.ErrUnauthorized)
	})

	t.Run("empty token short-circuits", func(t *testing.T) {
		v := identity.NewHTTPVerifier("http://127.0.0.1:1", time.Second)

		_, err := v.Verify(context.Background(), "")
		assert.ErrorIs(t, err, picshed.ErrUnauthorized)
	})
}
