package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jobrunner/atlas/internal/domain"
)

func newFileServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "atlas" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		content, found := files[r.URL.Path]
		if !found {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, content)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPStorage(t *testing.T) {
	srv := newFileServer(t, map[string]string{
		"/index.txt":  "# results\n\na.geojson\nnotes.txt\n  sub/b.json  \n",
		"/a.geojson":  `{"type":"FeatureCollection","features":[]}`,
		"/sub/b.json": `{}`,
	})
	storage := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL + "/", Username: "atlas", Password: "secret"})
	ctx := context.Background()

	objects, err := storage.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 2 || objects[0].Key != "a.geojson" || objects[1].Key != "sub/b.json" {
		t.Errorf("List() = %+v", objects)
	}

	ok, err := storage.Exists(ctx, "a.geojson")
	if err != nil || !ok {
		t.Errorf("Exists(a.geojson) = %v, %v", ok, err)
	}
	ok, err = storage.Exists(ctx, "missing.geojson")
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}

	dest := filepath.Join(t.TempDir(), "b.json")
	if err := storage.Download(ctx, "sub/b.json", dest); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if data, _ := os.ReadFile(dest); string(data) != "{}" {
		t.Errorf("downloaded %q", data)
	}

	if _, err := storage.GetReader(ctx, "missing.geojson"); !errors.Is(err, domain.ErrObjectNotFound) {
		t.Errorf("GetReader() on 404 error = %v, want ErrObjectNotFound", err)
	}
}

func TestHTTPStorageUnauthorized(t *testing.T) {
	srv := newFileServer(t, map[string]string{"/index.txt": "a.geojson\n"})
	storage := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL})

	if _, err := storage.List(context.Background()); err == nil {
		t.Error("List() without credentials should fail")
	}
	if _, err := storage.Exists(context.Background(), "a.geojson"); err == nil {
		t.Error("Exists() should report unexpected status codes")
	}
}
