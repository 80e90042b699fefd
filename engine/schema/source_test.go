package schema

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_Load(t *testing.T) {
	t.Run("Should download the schema", func(t *testing.T) {
		raw := loadFixture(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(raw)
		}))
		defer srv.Close()

		src := NewHTTPSource(srv.URL, WithHTTPTimeout(time.Second))
		data, err := src.Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, raw, data)
		assert.Equal(t, srv.URL, src.Location())
	})

	t.Run("Should retry on server errors", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		data, err := NewHTTPSource(srv.URL, WithMaxRetries(2)).Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []byte(`{}`), data)
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("Should fail fast on client errors", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, WithMaxRetries(3)).Load(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchemaAcquisition)
		assert.Contains(t, err.Error(), "404")
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("Should give up after the retry budget", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, WithMaxRetries(1)).Load(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchemaAcquisition)
		assert.Equal(t, int32(2), hits.Load())
	})
}

func TestFileSource_Load(t *testing.T) {
	t.Run("Should read the schema from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"type":"object"}`), 0o600))

		data, err := NewFileSource(path).Load(context.Background())

		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"object"}`, string(data))
	})

	t.Run("Should read from an in-memory filesystem", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/etc/renovate/schema.json", []byte(`{"type":"object"}`), 0o644))

		data, err := NewFileSourceFS(fs, "/etc/renovate/schema.json").Load(context.Background())

		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"object"}`, string(data))
	})

	t.Run("Should wrap a missing file as an acquisition error", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchemaAcquisition)
	})
}

func TestStaticSource_Load(t *testing.T) {
	t.Run("Should reject an empty document", func(t *testing.T) {
		_, err := NewStaticSource("inline", nil).Load(context.Background())

		assert.ErrorIs(t, err, ErrSchemaAcquisition)
	})
}
