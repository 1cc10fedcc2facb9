package application

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/ports/output"
)

func resultIDs(rs []*domain.Result) []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestIsResultDocument(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"results.geojson", true},
		{"nested/dir/RESULTS.JSON", true},
		{"results.gpkg", false},
		{"readme", false},
	}
	for _, tt := range tests {
		if got := IsResultDocument(tt.key); got != tt.want {
			t.Errorf("IsResultDocument(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestStorageSourceLoad(t *testing.T) {
	storage := &mockStorage{
		objects: map[string][]byte{
			"a.geojson":    []byte("a b"),
			"b.json":       []byte("c"),
			"broken.json":  []byte("broken"),
			"missing.json": nil,
			"removed.json": nil,
			"notes.txt":    []byte("x"),
		},
		getErr: map[string]error{
			"missing.json": errors.New("gone"),
			"removed.json": domain.ErrObjectNotFound,
		},
	}
	decoder := &mockDecoder{fail: map[string]error{"broken": errors.New("bad json")}}
	src := NewStorageSource(storage, decoder, nil, testLogger())

	rs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := resultIDs(rs); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Load() = %v, want [a b c]", got)
	}
	if src.Name() != "storage" {
		t.Errorf("Name() = %q", src.Name())
	}
}

func TestStorageSourceListError(t *testing.T) {
	src := NewStorageSource(&mockStorage{listErr: errors.New("denied")}, &mockDecoder{}, nil, testLogger())

	_, err := src.Load(context.Background())
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) || storageErr.Operation != "list" {
		t.Errorf("Load() error = %v, want StorageError for list", err)
	}
}

func TestResultLoader(t *testing.T) {
	first := &mockSource{name: "first", results: []*domain.Result{pointResult("a", 0, 0), pointResult("b", 0, 0)}}
	second := &mockSource{name: "second", results: []*domain.Result{pointResult("b", 1, 1), pointResult("c", 1, 1)}}
	failing := &mockSource{name: "failing", err: errors.New("offline")}

	loader := NewResultLoader([]output.ResultSource{first, failing, second}, nil, testLogger())
	rs, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := resultIDs(rs); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Load() = %v, want [a b c]", got)
	}
	if rs[1].Geometry.Coordinates[0].Lon != 0 {
		t.Error("first result with a duplicate id should win")
	}
}

func TestResultLoaderAllSourcesFail(t *testing.T) {
	loader := NewResultLoader([]output.ResultSource{
		&mockSource{name: "one", err: errors.New("offline")},
		&mockSource{name: "two", err: errors.New("offline")},
	}, nil, testLogger())

	_, err := loader.Load(context.Background())
	var srcErr *domain.SourceError
	if !errors.As(err, &srcErr) {
		t.Errorf("Load() error = %v, want SourceError", err)
	}
}

func TestResultLoaderNoSources(t *testing.T) {
	rs, err := NewResultLoader(nil, nil, testLogger()).Load(context.Background())
	if err != nil || len(rs) != 0 {
		t.Errorf("Load() = %v, %v; want empty", rs, err)
	}
}
