package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/internal/identifier"
	"github.com/sommarioni/sommarioni/internal/storage"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// snapshotDDL creates the tables of a registry snapshot file.
const snapshotDDL = `
CREATE TABLE IF NOT EXISTS registry (
    geometry_id TEXT    NOT NULL,
    ordinal     INTEGER NOT NULL,
    record_json TEXT    NOT NULL,
    PRIMARY KEY (geometry_id, ordinal)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS snapshot_meta (
    key   TEXT PRIMARY KEY,
    value BLOB NOT NULL
);
`

const (
	metaID         = "snapshot_id"
	metaCreatedAt  = "created_at"
	metaRecords    = "records"
	metaGeometries = "geometries"
	metaSkipped    = "skipped"
	metaFilter     = "id_filter"
	metaDigest     = "digest"

	filterFPR = 0.01
)

// SnapshotInfo describes a persisted registry index.
type SnapshotInfo struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Records    int       `json:"records"`
	Geometries int       `json:"geometries"`
	Skipped    int       `json:"skipped"`
	Digest     string    `json:"digest"`
	SizeBytes  int64     `json:"size_bytes"`
}

// WriteSnapshot persists ix as a SQLite file at path, replacing any existing
// file. Records keep their input order through a global ordinal.
func WriteSnapshot(ctx context.Context, ix *Index, path string) (*SnapshotInfo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotWrite, "failed to create snapshot directory", err)
	}
	os.Remove(path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotWrite, "failed to open snapshot", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, snapshotDDL); err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotWrite, "failed to create snapshot tables", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotWrite, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO registry (geometry_id, ordinal, record_json) VALUES (?, ?, ?)")
	if err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotWrite, "failed to prepare insert", err)
	}
	defer stmt.Close()

	filter := newIDFilter(ix.Len(), filterFPR)
	digest := newDigester()
	ordinal := 0
	var writeErr error
	ix.Range(func(id string, records []types.Record) bool {
		filter.add(id)
		for _, r := range records {
			body, err := json.Marshal(r)
			if err != nil {
				writeErr = fmt.Errorf("encode record %s/%d: %w", id, ordinal, err)
				return false
			}
			digest.add(id, body)
			if _, err := stmt.ExecContext(ctx, id, ordinal, string(body)); err != nil {
				writeErr = fmt.Errorf("insert record %s/%d: %w", id, ordinal, err)
				return false
			}
			ordinal++
		}
		return true
	})
	if writeErr != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotWrite, "failed to write records", writeErr)
	}

	info := &SnapshotInfo{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Records:    ix.Size(),
		Geometries: ix.Len(),
		Skipped:    ix.Skipped(),
		Digest:     digest.sum(),
	}
	meta := map[string][]byte{
		metaID:         []byte(info.ID),
		metaCreatedAt:  []byte(info.CreatedAt.Format(time.RFC3339Nano)),
		metaRecords:    []byte(strconv.Itoa(info.Records)),
		metaGeometries: []byte(strconv.Itoa(info.Geometries)),
		metaSkipped:    []byte(strconv.Itoa(info.Skipped)),
		metaFilter:     filter.marshal(),
		metaDigest:     []byte(info.Digest),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO snapshot_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return nil, serrors.NewIndexError(serrors.CodeSnapshotWrite, "failed to write metadata", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotWrite, "failed to commit snapshot", err)
	}

	if st, err := os.Stat(path); err == nil {
		info.SizeBytes = st.Size()
	}
	return info, nil
}

// Snapshot is a read-only registry index backed by a SQLite file.
type Snapshot struct {
	db     *sql.DB
	filter *idFilter
	info   SnapshotInfo
}

// OpenSnapshot opens a snapshot written by WriteSnapshot.
func OpenSnapshot(ctx context.Context, path string) (*Snapshot, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotCorrupt, "snapshot file not readable", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotCorrupt, "failed to open snapshot", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT key, value FROM snapshot_meta")
	if err != nil {
		db.Close()
		return nil, serrors.NewIndexError(serrors.CodeSnapshotCorrupt, "failed to read metadata", err)
	}
	meta := make(map[string][]byte)
	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			db.Close()
			return nil, serrors.NewIndexError(serrors.CodeSnapshotCorrupt, "failed to scan metadata", err)
		}
		meta[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		db.Close()
		return nil, serrors.NewIndexError(serrors.CodeSnapshotCorrupt, "failed to read metadata", err)
	}

	s := &Snapshot{db: db}
	if err := s.decodeMeta(meta); err != nil {
		db.Close()
		return nil, serrors.NewIndexError(serrors.CodeSnapshotCorrupt, "invalid snapshot metadata", err)
	}
	s.info.SizeBytes = st.Size()
	return s, nil
}

func (s *Snapshot) decodeMeta(meta map[string][]byte) error {
	for _, k := range []string{metaID, metaCreatedAt, metaRecords, metaGeometries, metaSkipped, metaFilter} {
		if _, ok := meta[k]; !ok {
			return fmt.Errorf("missing %q", k)
		}
	}

	var err error
	s.info.ID = string(meta[metaID])
	if s.info.CreatedAt, err = time.Parse(time.RFC3339Nano, string(meta[metaCreatedAt])); err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	if s.info.Records, err = strconv.Atoi(string(meta[metaRecords])); err != nil {
		return fmt.Errorf("records: %w", err)
	}
	if s.info.Geometries, err = strconv.Atoi(string(meta[metaGeometries])); err != nil {
		return fmt.Errorf("geometries: %w", err)
	}
	if s.info.Skipped, err = strconv.Atoi(string(meta[metaSkipped])); err != nil {
		return fmt.Errorf("skipped: %w", err)
	}
	// Older snapshots carry no digest and never match a loaded index.
	s.info.Digest = string(meta[metaDigest])
	s.filter, err = unmarshalIDFilter(meta[metaFilter])
	return err
}

// Info returns the snapshot metadata.
func (s *Snapshot) Info() SnapshotInfo {
	return s.info
}

// Lookup returns the records for id in input order. Ids rejected by the id
// filter are answered without touching SQLite.
func (s *Snapshot) Lookup(ctx context.Context, id interface{}) ([]types.Record, error) {
	key, ok := identifier.Usable(id)
	if !ok || !s.filter.mayContain(key) {
		return nil, nil
	}
	return s.query(ctx, "SELECT record_json FROM registry WHERE geometry_id = ? ORDER BY ordinal", key)
}

// Load rebuilds the in-memory Index from the snapshot.
func (s *Snapshot) Load(ctx context.Context) (*Index, error) {
	records, err := s.query(ctx, "SELECT record_json FROM registry ORDER BY ordinal")
	if err != nil {
		return nil, err
	}
	ix := Build(records)
	ix.skipped = s.info.Skipped
	return ix, nil
}

func (s *Snapshot) query(ctx context.Context, query string, args ...interface{}) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotCorrupt, "failed to query snapshot", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, serrors.NewIndexError(serrors.CodeSnapshotCorrupt, "failed to scan record", err)
		}
		var r types.Record
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, serrors.NewIndexError(serrors.CodeSnapshotCorrupt, "failed to decode record", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotCorrupt, "error iterating records", err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *Snapshot) Close() error {
	return s.db.Close()
}

// Store publishes snapshots to object storage and opens them from a local
// cache directory.
type Store struct {
	storage storage.ObjectStorage
	fetcher *storage.Fetcher
	prefix  string
}

// NewStore creates a Store keeping objects under prefix and local copies in
// cacheDir.
func NewStore(st storage.ObjectStorage, prefix, cacheDir string) *Store {
	return &Store{
		storage: st,
		fetcher: storage.NewFetcher(st, 1, cacheDir),
		prefix:  prefix,
	}
}

// ObjectPath returns the object path of the named snapshot.
func (s *Store) ObjectPath(name string) string {
	return path.Join(s.prefix, name+".sqlite")
}

// Publish writes ix to the local cache and uploads it as the named snapshot.
func (s *Store) Publish(ctx context.Context, ix *Index, name string) (*SnapshotInfo, error) {
	objectPath := s.ObjectPath(name)
	local := s.fetcher.LocalPath(objectPath)

	info, err := WriteSnapshot(ctx, ix, local)
	if err != nil {
		return nil, err
	}
	if err := s.storage.Upload(ctx, local, objectPath); err != nil {
		return nil, serrors.NewStorageError(serrors.CodeUploadFailed, "failed to upload snapshot "+objectPath, err)
	}
	return info, nil
}

// Open fetches the named snapshot if it is not cached and opens it.
func (s *Store) Open(ctx context.Context, name string) (*Snapshot, error) {
	objectPath := s.ObjectPath(name)
	result, err := s.fetcher.Fetch(ctx, []string{objectPath})
	if err != nil {
		return nil, serrors.NewStorageError(serrors.CodeDownloadFailed, "failed to prepare snapshot cache", err)
	}
	if err := result.Err([]string{objectPath}); err != nil {
		code := serrors.CodeDownloadFailed
		if errors.Is(err, storage.ErrObjectNotFound) {
			code = serrors.CodeObjectNotFound
		}
		return nil, serrors.NewStorageError(code, "failed to fetch snapshot "+objectPath, err)
	}
	return OpenSnapshot(ctx, result.LocalPaths[objectPath])
}
