// Package store: SQLite-backed persistence, using ncruces/go-sqlite3's
// database/sql driver (pure Go, no cgo) the way the teacher package wires it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
	"github.com/sirupsen/logrus"

	"github.com/kittclouds/coordnet/internal/corerr"
	"github.com/kittclouds/coordnet/pkg/tokenizer"
)

// schema defines the Normalized Store's tables. Network tables
// ({kind}_network) are created on demand by WriteNetwork.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
    message_id  TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    username    TEXT NOT NULL,
    repost_id   TEXT,
    reply_id    TEXT,
    message     TEXT NOT NULL,
    timestamp   REAL NOT NULL,
    urls        TEXT NOT NULL DEFAULT '[]',
    fingerprint INTEGER NOT NULL,
    bucket_key  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_repost ON messages(repost_id, timestamp, message_id);
CREATE INDEX IF NOT EXISTS idx_messages_reply ON messages(reply_id, timestamp, message_id);
CREATE INDEX IF NOT EXISTS idx_messages_fingerprint ON messages(fingerprint, timestamp, message_id);
CREATE INDEX IF NOT EXISTS idx_messages_bucket ON messages(bucket_key, timestamp, message_id);
CREATE INDEX IF NOT EXISTS idx_messages_post ON messages(timestamp, message_id);
CREATE INDEX IF NOT EXISTS idx_messages_user_ts ON messages(user_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS message_urls (
    message_id TEXT NOT NULL,
    user_id    TEXT NOT NULL,
    url        TEXT NOT NULL,
    timestamp  REAL NOT NULL,
    PRIMARY KEY (message_id, url)
);
CREATE INDEX IF NOT EXISTS idx_message_urls_url ON message_urls(url, timestamp, message_id);

CREATE TABLE IF NOT EXISTS resolved_urls (
    url           TEXT PRIMARY KEY,
    canonical_url TEXT,
    status        TEXT NOT NULL,
    resolved_at   REAL NOT NULL
);
`

// Store is the SQLite-backed Normalized Store. Safe for concurrent use: all
// workers of a compute run hold read-only cursors concurrently; the single
// writer (network-table replace, ingest, resolver writer) serializes via mu.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	log  *logrus.Entry
	bkt  tokenizer.Bucketer
	opts Options
}

// Options configures a Store at Open time.
type Options struct {
	// Bucketer computes the similarity bucket key stored alongside each
	// non-repost message. Defaults to tokenizer.NewDefaultBucketer().
	Bucketer tokenizer.Bucketer
	// TokenizerOptions controls token-set construction used for bucketing.
	TokenizerOptions tokenizer.Options
	// Log receives structured diagnostics. Defaults to a discard logger.
	Log *logrus.Entry
}

// Open opens (or creates) the corpus file at path and ensures its schema.
// Idempotent: safe to call against an existing corpus.
func Open(path string, opts Options) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindStorageCorruption, "open store", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, corerr.Wrap(corerr.KindStorageCorruption, "create schema", err)
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(discardWriter{})
		log = logrus.NewEntry(l)
	}
	bkt := opts.Bucketer
	if bkt == nil {
		bkt = tokenizer.NewDefaultBucketer()
	}
	return &Store{db: db, log: log, bkt: bkt, opts: opts}, nil
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Close closes the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// validate enforces §3's row invariants, returning a corerr.KindInputMalformed
// error describing the first violation found.
func validate(m Message) error {
	if m.MessageID == "" {
		return corerr.New(corerr.KindInputMalformed, "message_id is required")
	}
	if m.UserID == "" {
		return corerr.New(corerr.KindInputMalformed, fmt.Sprintf("message %q: user_id is required", m.MessageID))
	}
	if math.IsNaN(m.Timestamp) || math.IsInf(m.Timestamp, 0) {
		return corerr.New(corerr.KindInputMalformed, fmt.Sprintf("message %q: timestamp must be finite", m.MessageID))
	}
	if m.RepostID != "" && m.ReplyID != "" {
		return corerr.New(corerr.KindInputMalformed, fmt.Sprintf("message %q: repost_id and reply_id both set", m.MessageID))
	}
	return nil
}

// InsertMessages ingests rows, silently deduplicating by message_id (first
// occurrence in insertion order wins) and skipping invariant-violating rows
// without failing the call: each is counted, with its id, in the returned
// InsertStats and its KindInputMalformed error is logged.
func (s *Store) InsertMessages(ctx context.Context, rows []Message) (InsertStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats InsertStats
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, corerr.Wrap(corerr.KindStorageCorruption, "begin ingest transaction", err)
	}
	defer tx.Rollback()

	insertMsg, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (message_id, user_id, username, repost_id, reply_id, message, timestamp, urls, fingerprint, bucket_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`)
	if err != nil {
		return stats, corerr.Wrap(corerr.KindStorageCorruption, "prepare insert", err)
	}
	defer insertMsg.Close()

	insertURL, err := tx.PrepareContext(ctx, `
		INSERT INTO message_urls (message_id, user_id, url, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(message_id, url) DO NOTHING
	`)
	if err != nil {
		return stats, corerr.Wrap(corerr.KindStorageCorruption, "prepare url insert", err)
	}
	defer insertURL.Close()

	for _, m := range rows {
		if err := validate(m); err != nil {
			stats.RejectedMalformed++
			stats.MalformedIDs = append(stats.MalformedIDs, m.MessageID)
			s.log.WithError(err).Warn("rejecting malformed row")
			continue
		}

		urlsJSON, err := json.Marshal(m.URLs)
		if err != nil {
			return stats, corerr.Wrap(corerr.KindStorageCorruption, "marshal urls", err)
		}
		fp := tokenizer.Fingerprint(m.Text)
		var bucket uint64
		if !m.IsRepost() {
			bucket = s.bkt.Bucket(tokenizer.Tokens(m.Text, s.opts.TokenizerOptions))
		}

		res, err := insertMsg.ExecContext(ctx, m.MessageID, m.UserID, m.Username,
			nullIfEmpty(m.RepostID), nullIfEmpty(m.ReplyID), m.Text, m.Timestamp,
			string(urlsJSON), int64(fp), int64(bucket))
		if err != nil {
			return stats, corerr.Wrap(corerr.KindStorageCorruption, "insert message", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return stats, corerr.Wrap(corerr.KindStorageCorruption, "read rows affected", err)
		}
		if affected == 0 {
			stats.RejectedDuplicate++
			continue
		}
		stats.Accepted++

		if !m.IsRepost() {
			for _, u := range m.URLs {
				if _, err := insertURL.ExecContext(ctx, m.MessageID, m.UserID, u, m.Timestamp); err != nil {
					return stats, corerr.Wrap(corerr.KindStorageCorruption, "insert message url", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, corerr.Wrap(corerr.KindStorageCorruption, "commit ingest", err)
	}
	return stats, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// StreamEvents streams rows for the given network kind, grouped and ordered
// by (key, timestamp, message_id), the shape the Temporal Join Engine's
// sliding window requires. The returned error channel yields at most one
// error and is always eventually closed.
func (s *Store) StreamEvents(ctx context.Context, kind NetworkKind, useResolvedURLs bool) (<-chan Row, <-chan error) {
	rows := make(chan Row, 256)
	errc := make(chan error, 1)

	query, err := eventQuery(kind, useResolvedURLs)
	if err != nil {
		close(rows)
		errc <- err
		close(errc)
		return rows, errc
	}

	go func() {
		defer close(rows)
		defer close(errc)

		s.mu.RLock()
		sqlRows, err := s.db.QueryContext(ctx, query)
		s.mu.RUnlock()
		if err != nil {
			errc <- corerr.Wrap(corerr.KindStorageCorruption, "stream events", err)
			return
		}
		defer sqlRows.Close()

		for sqlRows.Next() {
			var r Row
			var key sql.NullString
			if err := sqlRows.Scan(&key, &r.UserID, &r.Timestamp, &r.MessageID, &r.Message); err != nil {
				errc <- corerr.Wrap(corerr.KindStorageCorruption, "scan event row", err)
				return
			}
			r.Key = key.String
			select {
			case rows <- r:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := sqlRows.Err(); err != nil {
			errc <- corerr.Wrap(corerr.KindStorageCorruption, "iterate event rows", err)
		}
	}()

	return rows, errc
}

func eventQuery(kind NetworkKind, useResolvedURLs bool) (string, error) {
	switch kind {
	case CoRetweet:
		return `SELECT repost_id, user_id, timestamp, message_id, '' FROM messages
			WHERE repost_id IS NOT NULL
			ORDER BY repost_id, timestamp, message_id`, nil
	case CoTweet:
		return `SELECT CAST(fingerprint AS TEXT), user_id, timestamp, message_id, '' FROM messages
			WHERE repost_id IS NULL
			ORDER BY fingerprint, timestamp, message_id`, nil
	case CoReply:
		return `SELECT reply_id, user_id, timestamp, message_id, '' FROM messages
			WHERE reply_id IS NOT NULL
			ORDER BY reply_id, timestamp, message_id`, nil
	case CoPost:
		return `SELECT '', user_id, timestamp, message_id, '' FROM messages
			WHERE repost_id IS NULL
			ORDER BY timestamp, message_id`, nil
	case CoSimilarity:
		return `SELECT CAST(bucket_key AS TEXT), user_id, timestamp, message_id, message FROM messages
			WHERE repost_id IS NULL
			ORDER BY bucket_key, timestamp, message_id`, nil
	case CoLink:
		if useResolvedURLs {
			return `SELECT COALESCE(r.canonical_url, mu.url), mu.user_id, mu.timestamp, mu.message_id, '' FROM message_urls mu
				LEFT JOIN resolved_urls r ON r.url = mu.url AND r.status = '` + string(StatusResolved) + `'
				ORDER BY 1, mu.timestamp, mu.message_id`, nil
		}
		return `SELECT mu.url, mu.user_id, mu.timestamp, mu.message_id, '' FROM message_urls mu
			ORDER BY mu.url, mu.timestamp, mu.message_id`, nil
	default:
		return "", corerr.New(corerr.KindInvalidArguments, fmt.Sprintf("unknown network kind %q", kind))
	}
}

// WriteNetwork atomically replaces the named network's edge table with
// edges, keeping only those with weight >= minWeight. Self-loops are kept
// here; they are filtered (by default) only at export time.
func (s *Store) WriteNetwork(ctx context.Context, kind NetworkKind, edges []EdgeCount, minWeight int) error {
	if !kind.IsValid() {
		return corerr.New(corerr.KindInvalidArguments, fmt.Sprintf("unknown network kind %q", kind))
	}
	table := networkTable(kind)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return corerr.Wrap(corerr.KindStorageCorruption, "begin write_network", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return corerr.Wrap(corerr.KindStorageCorruption, "drop old network table", err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+table+` (user_a TEXT NOT NULL, user_b TEXT NOT NULL, weight INTEGER NOT NULL)`); err != nil {
		return corerr.Wrap(corerr.KindStorageCorruption, "create network table", err)
	}

	insert, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (user_a, user_b, weight) VALUES (?, ?, ?)`)
	if err != nil {
		return corerr.Wrap(corerr.KindStorageCorruption, "prepare network insert", err)
	}
	defer insert.Close()

	for _, e := range edges {
		if e.Weight < minWeight {
			continue
		}
		if _, err := insert.ExecContext(ctx, e.UserA, e.UserB, e.Weight); err != nil {
			return corerr.Wrap(corerr.KindStorageCorruption, "insert network edge", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `CREATE INDEX idx_`+table+`_a ON `+table+`(user_a)`); err != nil {
		return corerr.Wrap(corerr.KindStorageCorruption, "index network table", err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE INDEX idx_`+table+`_b ON `+table+`(user_b)`); err != nil {
		return corerr.Wrap(corerr.KindStorageCorruption, "index network table", err)
	}

	if err := tx.Commit(); err != nil {
		return corerr.Wrap(corerr.KindStorageCorruption, "commit write_network", err)
	}
	s.log.WithField("network", kind).WithField("edges", len(edges)).Info("materialized network")
	return nil
}

func networkTable(kind NetworkKind) string {
	return string(kind) + "_network"
}

// NetworkEdges streams the edges of a materialized network, optionally
// filtered by minWeight and self-loop inclusion, for the Network
// Materializer's export.
func (s *Store) NetworkEdges(ctx context.Context, kind NetworkKind, minWeight int, includeSelfLoops bool) ([]EdgeCount, error) {
	if !kind.IsValid() {
		return nil, corerr.New(corerr.KindInvalidArguments, fmt.Sprintf("unknown network kind %q", kind))
	}
	table := networkTable(kind)

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT user_a, user_b, weight FROM ` + table + ` WHERE weight >= ?`
	if !includeSelfLoops {
		query += ` AND user_a != user_b`
	}
	rows, err := s.db.QueryContext(ctx, query, minWeight)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindStorageCorruption, "query network edges", err)
	}
	defer rows.Close()

	var out []EdgeCount
	for rows.Next() {
		var e EdgeCount
		if err := rows.Scan(&e.UserA, &e.UserB, &e.Weight); err != nil {
			return nil, corerr.Wrap(corerr.KindStorageCorruption, "scan network edge", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// NetworkUsers returns the distinct user ids touched by any edge retained
// under the given filters, sorted for deterministic export ordering.
func (s *Store) NetworkUsers(ctx context.Context, kind NetworkKind, minWeight int, includeSelfLoops bool) ([]string, error) {
	if !kind.IsValid() {
		return nil, corerr.New(corerr.KindInvalidArguments, fmt.Sprintf("unknown network kind %q", kind))
	}
	table := networkTable(kind)

	selfLoopClause := ""
	if !includeSelfLoops {
		selfLoopClause = " AND user_a != user_b"
	}
	query := `
		SELECT user_a FROM ` + table + ` WHERE weight >= ?` + selfLoopClause + `
		UNION
		SELECT user_b FROM ` + table + ` WHERE weight >= ?` + selfLoopClause

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, minWeight, minWeight)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindStorageCorruption, "query network users", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, corerr.Wrap(corerr.KindStorageCorruption, "scan network user", err)
		}
		out = append(out, u)
	}
	sort.Strings(out)
	return out, rows.Err()
}

// UserSnapshots returns, for each requested user id, a representative
// username and their n most recent messages (newest first). Bounded by
// len(userIDs) * n so the Network Materializer's export memory stays
// proportional to distinct touched users rather than total edge/message
// volume.
func (s *Store) UserSnapshots(ctx context.Context, userIDs []string, n int) (map[string]UserSnapshot, error) {
	out := make(map[string]UserSnapshot, len(userIDs))
	if len(userIDs) == 0 || n < 0 {
		return out, nil
	}

	placeholders := make([]string, len(userIDs))
	args := make([]interface{}, 0, len(userIDs)+1)
	for i, id := range userIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, n)

	query := `
		SELECT user_id, username, message, timestamp FROM (
			SELECT user_id, username, message, timestamp,
				ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY timestamp DESC, message_id DESC) rn
			FROM messages
			WHERE user_id IN (` + joinPlaceholders(placeholders) + `)
		) WHERE rn <= ?
		ORDER BY user_id, timestamp DESC`

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindStorageCorruption, "query user snapshots", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, username, message string
		var ts float64
		if err := rows.Scan(&userID, &username, &message, &ts); err != nil {
			return nil, corerr.Wrap(corerr.KindStorageCorruption, "scan user snapshot", err)
		}
		snap := out[userID]
		snap.UserID = userID
		if snap.Username == "" {
			snap.Username = username
		}
		snap.Messages = append(snap.Messages, Message{UserID: userID, Username: username, Text: message, Timestamp: ts})
		out[userID] = snap
	}
	return out, rows.Err()
}

func joinPlaceholders(ph []string) string {
	s := ""
	for i, p := range ph {
		if i > 0 {
			s += ","
		}
		s += p
	}
	return s
}

// PendingURLs returns up to limit raw URLs that have no ResolvedURL entry
// yet (limit <= 0 means no limit).
func (s *Store) PendingURLs(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT DISTINCT mu.url FROM message_urls mu
		LEFT JOIN resolved_urls r ON r.url = mu.url
		WHERE r.url IS NULL`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindStorageCorruption, "query pending urls", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, corerr.Wrap(corerr.KindStorageCorruption, "scan pending url", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// RecordResolution appends a ResolvedURL row. Existing entries are never
// overwritten — resolve_urls is restartable and idempotent by construction.
func (s *Store) RecordResolution(ctx context.Context, r ResolvedURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolved_urls (url, canonical_url, status, resolved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`, r.URL, r.CanonicalURL, string(r.Status), r.ResolvedAt)
	if err != nil {
		return corerr.Wrap(corerr.KindStorageCorruption, "record url resolution", err)
	}
	return nil
}

// ClearFailedResolutions deletes failure markers (transient and permanent)
// so their URLs become eligible for resolve_urls again. An empty urls slice
// clears all failure markers in the corpus. Returns the number removed.
func (s *Store) ClearFailedResolutions(ctx context.Context, urls []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `DELETE FROM resolved_urls WHERE status IN (?, ?)`
	args := []interface{}{string(StatusTransientFailure), string(StatusPermanentFailure)}
	if len(urls) > 0 {
		placeholders := make([]string, len(urls))
		for i, u := range urls {
			placeholders[i] = "?"
			args = append(args, u)
		}
		query += ` AND url IN (` + joinPlaceholders(placeholders) + `)`
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, corerr.Wrap(corerr.KindStorageCorruption, "clear failed resolutions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, corerr.Wrap(corerr.KindStorageCorruption, "read rows affected", err)
	}
	return int(n), nil
}

// CountMessages returns the total number of ingested messages.
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	if err != nil {
		return 0, corerr.Wrap(corerr.KindStorageCorruption, "count messages", err)
	}
	return n, nil
}
