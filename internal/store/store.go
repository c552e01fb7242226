package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// ErrStorage is the sentinel for storage-layer faults (disk, serialization).
// Absence of a document is never an error — ByID and FindOne return nil.
var ErrStorage = errors.New("store: storage fault")

// StorageError wraps an underlying database or serialization failure.
// errors.Is(err, ErrStorage) matches it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// SQL statements for document operations.
const (
	sqlUpsertDocument = `INSERT INTO documents
		(id, doc_type, content_type, name, body, fingerprint, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 doc_type = excluded.doc_type,
		 content_type = excluded.content_type,
		 name = excluded.name,
		 body = excluded.body,
		 fingerprint = excluded.fingerprint,
		 updated_at = excluded.updated_at`

	sqlSelectFingerprint = `SELECT fingerprint FROM documents WHERE id = ?`

	sqlSelectByID = `SELECT body FROM documents WHERE id = ?`

	sqlSelectAll = `SELECT body FROM documents ORDER BY id`

	sqlCount = `SELECT COUNT(*) FROM documents`

	sqlCountByType = `SELECT COUNT(*) FROM documents WHERE doc_type = ?`

	sqlInvalidate = `DELETE FROM documents`
)

// Store is the persistent document mirror. One Store owns one sqlite
// database file; all writers go through the single pooled connection
// (sole-writer pattern), so concurrent upserts to the same id serialize
// to last-write-wins.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens (creating if needed) the document database at dbPath and
// runs schema migrations. The database uses WAL mode with
// synchronous=FULL so an interrupted sync never corrupts the mirror.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr(fmt.Sprintf("opening database %s", dbPath), err)
	}

	// Sole-writer pattern: one connection, writes fully serialized.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("document store opened", slog.String("db_path", dbPath))

	return &Store{
		db:      db,
		logger:  logger,
		nowFunc: time.Now,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces the document keyed by doc.Sys.ID. Applying
// the same document twice is a no-op: the body fingerprint is compared
// first and unchanged documents skip the write entirely.
func (s *Store) Upsert(ctx context.Context, doc *Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return storageErr(fmt.Sprintf("encoding document %s", doc.Sys.ID), err)
	}

	fp := xxhash.Sum64(body)

	var existing sql.NullInt64

	err = s.db.QueryRowContext(ctx, sqlSelectFingerprint, doc.Sys.ID).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return storageErr(fmt.Sprintf("checking fingerprint for %s", doc.Sys.ID), err)
	}

	if existing.Valid && uint64(existing.Int64) == fp {
		s.logger.Debug("upsert skipped, document unchanged",
			slog.String("id", doc.Sys.ID),
		)

		return nil
	}

	var contentType sql.NullString
	if doc.Sys.ContentType != nil {
		contentType = sql.NullString{String: doc.Sys.ContentType.ID, Valid: true}
	}

	var name sql.NullString
	if doc.Name != "" {
		name = sql.NullString{String: doc.Name, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, sqlUpsertDocument,
		doc.Sys.ID, doc.Sys.Type, contentType, name,
		string(body), int64(fp), s.nowFunc().UnixNano(),
	)
	if err != nil {
		return storageErr(fmt.Sprintf("upserting document %s", doc.Sys.ID), err)
	}

	return nil
}

// ByID returns the document with the given id, or nil if it does not
// exist. Absence is not an error.
func (s *Store) ByID(ctx context.Context, id string) (*Document, error) {
	var body string

	err := s.db.QueryRowContext(ctx, sqlSelectByID, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is a normal outcome, not an error
	}

	if err != nil {
		return nil, storageErr(fmt.Sprintf("loading document %s", id), err)
	}

	return decodeStored(id, body)
}

// Find returns every document matching all predicate constraints, in id
// order. An empty (or nil) predicate matches everything. sys.id, sys.type,
// sys.contentType.sys.id and name constraints are pushed down to SQL;
// field constraints are matched against the decoded value tree.
func (s *Store) Find(ctx context.Context, pred Predicate) ([]*Document, error) {
	query, args, rest := buildQuery(pred)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("querying documents", err)
	}
	defer rows.Close()

	var docs []*Document

	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, storageErr("scanning document row", err)
		}

		doc, err := decodeStored("", body)
		if err != nil {
			return nil, err
		}

		if rest.Matches(doc) {
			docs = append(docs, doc)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating document rows", err)
	}

	return docs, nil
}

// FindOne returns the first document matching the predicate, or nil if
// nothing matches.
func (s *Store) FindOne(ctx context.Context, pred Predicate) (*Document, error) {
	docs, err := s.Find(ctx, pred)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, nil //nolint:nilnil // absence is a normal outcome, not an error
	}

	return docs[0], nil
}

// Count returns the total number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, sqlCount).Scan(&n); err != nil {
		return 0, storageErr("counting documents", err)
	}

	return n, nil
}

// CountByType returns the number of stored documents of one sys.type.
func (s *Store) CountByType(ctx context.Context, docType string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, sqlCountByType, docType).Scan(&n); err != nil {
		return 0, storageErr(fmt.Sprintf("counting %s documents", docType), err)
	}

	return n, nil
}

// Invalidate removes every document in a single statement. Concurrent
// readers see either the full pre-delete state or an empty store, never
// a partial scan.
func (s *Store) Invalidate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqlInvalidate); err != nil {
		return storageErr("invalidating store", err)
	}

	s.logger.Info("document store invalidated")

	return nil
}

// decodeStored parses a stored body column back into a Document. A decode
// failure here means the database itself is damaged, so it is a storage
// fault rather than a remote-data problem.
func decodeStored(id, body string) (*Document, error) {
	doc, err := DecodeDocument([]byte(body))
	if err != nil {
		op := "decoding stored document"
		if id != "" {
			op = fmt.Sprintf("decoding stored document %s", id)
		}

		return nil, storageErr(op, err)
	}

	return doc, nil
}
