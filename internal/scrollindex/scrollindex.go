// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/scrollindex/scrollindex.go
// Summary: SQLite FTS5 full-text index over terminal scrollback lines,
// keyed by terminal identity and line index. Search always spans every
// indexed terminal; it has no per-terminal filter.

package scrollindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/termstack/termstack/stack"
)

// Result is a single search match.
type Result struct {
	TermID    stack.TerminalID
	LineIdx   int64
	Timestamp time.Time
	Content   string
}

const schema = `
CREATE TABLE IF NOT EXISTS lines (
    term_id TEXT NOT NULL,
    line_idx INTEGER NOT NULL,
    timestamp INTEGER NOT NULL,
    content TEXT NOT NULL,
    PRIMARY KEY (term_id, line_idx)
);
CREATE INDEX IF NOT EXISTS idx_lines_timestamp ON lines(timestamp);
`

const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS lines_fts USING fts5(
    content,
    content='lines',
    content_rowid='rowid',
    tokenize='trigram'
);
CREATE TRIGGER IF NOT EXISTS lines_ai AFTER INSERT ON lines BEGIN
    INSERT INTO lines_fts(rowid, content) VALUES (new.rowid, new.content);
END;
CREATE TRIGGER IF NOT EXISTS lines_ad AFTER DELETE ON lines BEGIN
    INSERT INTO lines_fts(lines_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
END;
`

type entry struct {
	termID    stack.TerminalID
	lineIdx   int64
	timestamp time.Time
	content   string
}

// Index batches incoming scrollback lines and flushes them to SQLite,
// exposing substring search over the accumulated history. lines_fts
// uses the implicit rowid of `lines` as its content_rowid, so `lines`
// is not a WITHOUT ROWID table.
type Index struct {
	db        *sql.DB
	batchSize int

	batch   chan entry
	stop    chan struct{}
	done    chan struct{}
	flushCh chan chan struct{}

	mu sync.RWMutex
}

// Open creates (or reopens) a search index backed by the SQLite file at
// path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("scrollindex: create directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=cache_size(-8000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("scrollindex: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("scrollindex: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("scrollindex: create schema: %w", err)
	}
	if _, err := db.Exec(ftsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("scrollindex: create fts schema: %w", err)
	}

	idx := &Index{
		db:        db,
		batchSize: 200,
		batch:     make(chan entry, 2000),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		flushCh:   make(chan chan struct{}),
	}
	go idx.run()
	return idx, nil
}

func (idx *Index) run() {
	defer close(idx.done)
	pending := make([]entry, 0, idx.batchSize)
	timer := time.NewTimer(2 * time.Second)
	defer timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		idx.writeBatch(pending)
		pending = pending[:0]
	}

	for {
		select {
		case e := <-idx.batch:
			pending = append(pending, e)
			if len(pending) >= idx.batchSize {
				flush()
			}
		case <-timer.C:
			flush()
			timer.Reset(2 * time.Second)
		case done := <-idx.flushCh:
			draining := true
			for draining {
				select {
				case e := <-idx.batch:
					pending = append(pending, e)
				default:
					draining = false
				}
			}
			flush()
			close(done)
		case <-idx.stop:
			for {
				select {
				case e := <-idx.batch:
					pending = append(pending, e)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (idx *Index) writeBatch(batch []entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.Begin()
	if err != nil {
		return
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO lines (term_id, line_idx, timestamp, content) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.Exec(string(e.termID), e.lineIdx, e.timestamp.UnixNano(), e.content); err != nil {
			tx.Rollback()
			return
		}
	}
	tx.Commit()
}

// IndexLine queues one scrollback line for indexing. Empty lines are
// dropped rather than indexed, since they never match a search.
func (idx *Index) IndexLine(termID stack.TerminalID, lineIdx int64, ts time.Time, content string) {
	if content == "" {
		return
	}
	select {
	case idx.batch <- entry{termID: termID, lineIdx: lineIdx, timestamp: ts, content: content}:
	default:
		// Channel full: drop rather than block the caller's event loop.
	}
}

// Search runs a substring query across all indexed terminals, newest
// first. Queries under 3 characters fall back to LIKE since the
// trigram tokenizer needs at least 3 characters to produce a match.
func (idx *Index) Search(query string, limit int) ([]Result, error) {
	if query == "" {
		return nil, nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if len(query) < 3 {
		like := "%" + strings.ReplaceAll(strings.ReplaceAll(query, "%", "\\%"), "_", "\\_") + "%"
		rows, err = idx.db.Query(`
			SELECT term_id, line_idx, timestamp, content FROM lines
			WHERE content LIKE ? ESCAPE '\'
			ORDER BY timestamp DESC LIMIT ?`, like, limit)
	} else {
		quoted := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
		rows, err = idx.db.Query(`
			SELECT l.term_id, l.line_idx, l.timestamp, l.content
			FROM lines_fts JOIN lines l ON l.rowid = lines_fts.rowid
			WHERE lines_fts MATCH ?
			ORDER BY l.timestamp DESC LIMIT ?`, quoted, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("scrollindex: search: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var termID string
		var tsNano int64
		if err := rows.Scan(&termID, &r.LineIdx, &tsNano, &r.Content); err != nil {
			continue
		}
		r.TermID = stack.TerminalID(termID)
		r.Timestamp = time.Unix(0, tsNano)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Flush blocks until all queued lines have been written.
func (idx *Index) Flush() {
	done := make(chan struct{})
	select {
	case idx.flushCh <- done:
		<-done
	case <-idx.stop:
	}
}

// Close flushes pending writes and releases the database handle.
func (idx *Index) Close() error {
	close(idx.stop)
	<-idx.done
	return idx.db.Close()
}
