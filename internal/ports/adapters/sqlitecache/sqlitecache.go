// Package sqlitecache stores transcripts keyed by the SHA-256 of the audio
// they were produced from, so re-running a project skips recognition.
package sqlitecache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/forPelevin/autocut/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	audio_hash TEXT PRIMARY KEY,
	audio_path TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	segment_count INTEGER NOT NULL,
	body TEXT NOT NULL
);
`

type Cache struct {
	db  *sql.DB
	log logrus.FieldLogger
	now func() time.Time
}

// Open creates dbPath and its directory when missing.
func Open(dbPath string, log logrus.FieldLogger) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open transcript cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout=5000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init transcript cache: %w", err)
		}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Cache{db: db, log: log, now: time.Now}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Key hashes the file at audioPath.
func Key(audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", audioPath, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the transcript stored for audioPath's content. A stored row
// that no longer decodes counts as a miss.
func (c *Cache) Get(ctx context.Context, audioPath string) (types.Transcript, bool, error) {
	key, err := Key(audioPath)
	if err != nil {
		return types.Transcript{}, false, err
	}

	var body string
	var created time.Time
	err = c.db.QueryRowContext(ctx,
		`SELECT body, created_at FROM transcripts WHERE audio_hash = ?`, key,
	).Scan(&body, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Transcript{}, false, nil
	}
	if err != nil {
		return types.Transcript{}, false, fmt.Errorf("read cached transcript: %w", err)
	}

	var tr types.Transcript
	if err := json.Unmarshal([]byte(body), &tr); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("discarding unreadable cached transcript")
		return types.Transcript{}, false, nil
	}
	c.log.WithFields(logrus.Fields{"key": key[:12], "created": created.Format(time.RFC3339)}).Info("using cached transcript")
	return tr, true, nil
}

// Put stores tr for audioPath's content, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, audioPath string, tr types.Transcript) error {
	key, err := Key(audioPath)
	if err != nil {
		return err
	}
	body, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO transcripts (audio_hash, audio_path, created_at, segment_count, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(audio_hash) DO UPDATE SET
			audio_path = excluded.audio_path,
			created_at = excluded.created_at,
			segment_count = excluded.segment_count,
			body = excluded.body`,
		key, audioPath, c.now().UTC(), len(tr.Segments), string(body))
	if err != nil {
		return fmt.Errorf("store transcript: %w", err)
	}
	c.log.WithFields(logrus.Fields{"key": key[:12], "segments": len(tr.Segments)}).Info("transcript cached")
	return nil
}
