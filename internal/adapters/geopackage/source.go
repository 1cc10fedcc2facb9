// Package geopackage reads search results from GeoPackage feature tables.
package geopackage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb/encoding/wkb"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/ports/output"
)

// WGS84 is the only spatial reference system results are read from.
const WGS84 = 4326

const defaultIDColumn = "fid"

var (
	errNotGeoPackageBlob = errors.New("not a GeoPackage geometry blob")
	errExtendedGeometry  = errors.New("extended GeoPackage geometries are not supported")
)

// Options configures a Source.
type Options struct {
	// Path is the local GeoPackage file. When Storage is set the package is
	// downloaded to Path before every load.
	Path string

	// Table restricts loading to one feature table. Empty reads every
	// feature table and prefixes result ids with the table name.
	Table string

	IDColumn     string
	ColorColumn  string
	DefaultColor domain.Color

	Storage output.ObjectStorage
	Key     string
}

// Source implements output.ResultSource over a GeoPackage file.
type Source struct {
	opts   Options
	logger *slog.Logger
}

// NewSource creates a GeoPackage result source.
func NewSource(opts Options, logger *slog.Logger) *Source {
	if opts.IDColumn == "" {
		opts.IDColumn = defaultIDColumn
	}
	return &Source{opts: opts, logger: logger}
}

// Name implements output.ResultSource.
func (s *Source) Name() string {
	return "geopackage:" + DerivePackageID(s.opts.Path)
}

// Load implements output.ResultSource.
func (s *Source) Load(ctx context.Context) ([]*domain.Result, error) {
	if s.opts.Storage != nil {
		if err := s.opts.Storage.Download(ctx, s.opts.Key, s.opts.Path); err != nil {
			return nil, &domain.StorageError{Operation: "download", Key: s.opts.Key, Err: err}
		}
	}

	db, err := openDB(ctx, s.opts.Path)
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: s.opts.Path, Err: err}
	}
	defer func() { _ = db.Close() }()

	tables, err := readTables(ctx, db)
	if err != nil {
		return nil, err
	}

	var out []*domain.Result
	found := false
	for _, t := range tables {
		if s.opts.Table != "" && t.name != s.opts.Table {
			continue
		}
		found = true
		if t.srsID != WGS84 {
			s.logger.Warn("skipping feature table outside WGS84",
				"table", t.name,
				"srs_id", t.srsID,
			)
			continue
		}
		rs, err := s.readTable(ctx, db, t)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	if s.opts.Table != "" && !found {
		return nil, fmt.Errorf("feature table %q: %w", s.opts.Table, domain.ErrNotFound)
	}

	s.logger.Debug("geopackage loaded",
		"path", s.opts.Path,
		"results", len(out),
	)
	return out, nil
}

type featureTable struct {
	name       string
	geomColumn string
	srsID      int
}

// openDB opens the package read-only.
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// readTables lists the feature tables registered in gpkg_contents.
func readTables(ctx context.Context, db *sql.DB) ([]featureTable, error) {
	query := `
		SELECT c.table_name, g.column_name, g.srs_id
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON c.table_name = g.table_name
		WHERE c.data_type = 'features'
		ORDER BY c.table_name
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading feature tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []featureTable
	for rows.Next() {
		var t featureTable
		if err := rows.Scan(&t.name, &t.geomColumn, &t.srsID); err != nil {
			return nil, fmt.Errorf("scanning feature table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *Source) readTable(ctx context.Context, db *sql.DB, t featureTable) ([]*domain.Result, error) {
	colorExpr := "NULL"
	if s.opts.ColorColumn != "" {
		colorExpr = quoteIdent(s.opts.ColorColumn)
	}
	query := fmt.Sprintf("SELECT %s, %s, %s FROM %s", //#nosec G201 -- identifiers are quoted
		quoteIdent(s.opts.IDColumn), quoteIdent(t.geomColumn), colorExpr, quoteIdent(t.name))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", t.name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Result
	for rows.Next() {
		var (
			id    any
			blob  []byte
			color sql.NullString
		)
		if err := rows.Scan(&id, &blob, &color); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.name, err)
		}

		key := formatID(id)
		if key == "" {
			continue
		}
		if s.opts.Table == "" {
			key = t.name + "/" + key
		}

		res := &domain.Result{ID: key, Color: s.opts.DefaultColor}
		if color.Valid {
			if c, err := domain.ParseColor(color.String); err == nil {
				res.Color = c
			}
		}
		if len(blob) > 0 {
			g, err := DecodeGeometry(blob)
			if err != nil {
				s.logger.Warn("skipping undecodable geometry",
					"table", t.name,
					"id", key,
					"error", err,
				)
			} else {
				res.Geometry = g
			}
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// DecodeGeometry parses a GeoPackage geometry blob: the GP header followed by
// standard WKB. An empty geometry decodes to nil.
func DecodeGeometry(blob []byte) (*domain.Geometry, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, errNotGeoPackageBlob
	}
	flags := blob[3]
	if flags&0x20 != 0 {
		return nil, errExtendedGeometry
	}

	var envelope int
	switch (flags >> 1) & 0x07 {
	case 0:
	case 1:
		envelope = 32
	case 2, 3:
		envelope = 48
	case 4:
		envelope = 64
	default:
		return nil, fmt.Errorf("envelope code %d: %w", (flags>>1)&0x07, errNotGeoPackageBlob)
	}

	offset := 8 + envelope
	if flags&0x10 != 0 || len(blob) <= offset {
		return nil, nil
	}

	g, err := wkb.Unmarshal(blob[offset:])
	if err != nil {
		return nil, fmt.Errorf("decoding wkb: %w", err)
	}
	return domain.FromOrb(g)
}

// EncodeGeometry writes a GeoPackage geometry blob without an envelope.
func EncodeGeometry(g *domain.Geometry, srsID int) ([]byte, error) {
	body, err := wkb.Marshal(g.Orb(), binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	header := []byte{'G', 'P', 0, 0x01, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(header[4:], uint32(srsID)) //#nosec G115 -- srs ids are small positive integers
	return append(header, body...), nil
}

func formatID(v any) string {
	switch id := v.(type) {
	case int64:
		return strconv.FormatInt(id, 10)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case string:
		return id
	case []byte:
		return string(id)
	default:
		return ""
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// DerivePackageID derives a package ID from the file path.
// It extracts the filename without extension as the package identifier.
func DerivePackageID(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}
