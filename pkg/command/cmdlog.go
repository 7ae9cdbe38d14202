package command

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// CommandLog is an append-only local record of pipeline decisions: analyzer
// outcomes and matcher fallbacks. It exists so fail-open decisions stay
// visible after the fact. Every write is best-effort; a nil log is valid and
// does nothing.
type CommandLog struct {
	db *sql.DB
}

// OpenCommandLog opens (creating if needed) the sqlite file at path.
func OpenCommandLog(path string) (*CommandLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS command_log(flow TEXT, event TEXT, command TEXT, detail TEXT, ts INTEGER); CREATE INDEX IF NOT EXISTS idx_command_log_ts ON command_log(ts);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &CommandLog{db: db}, nil
}

func (l *CommandLog) Close() {
	if l != nil && l.db != nil {
		_ = l.db.Close()
	}
}

// LogEntry is one recorded pipeline decision.
type LogEntry struct {
	Flow    string    `json:"flow"`
	Event   string    `json:"event"`
	Command string    `json:"command"`
	Detail  string    `json:"detail"`
	Time    time.Time `json:"time"`
}

func (l *CommandLog) record(flow, event, cmd, detail string) {
	if l == nil || l.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := l.db.ExecContext(ctx, `INSERT INTO command_log(flow, event, command, detail, ts) VALUES(?,?,?,?,?)`,
		flow, event, cmd, detail, time.Now().Unix()); err != nil {
		log.Printf("command log write failed: %v", err)
	}
}

// Recent returns the newest entries, up to limit.
func (l *CommandLog) Recent(limit int) ([]LogEntry, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rows, err := l.db.QueryContext(ctx, `SELECT flow, event, command, detail, ts FROM command_log ORDER BY ts DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var ts int64
		if err := rows.Scan(&e.Flow, &e.Event, &e.Command, &e.Detail, &ts); err != nil {
			return nil, err
		}
		e.Time = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}
