// Package ledger tracks which source files this module has already
// ingested into the graph store, a local SQLite record separate from the
// graph database itself so a re-ingest run can skip unchanged files and a
// failed ingest can be inspected without re-parsing the source.
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Status is the outcome of one ingestion attempt.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Entry records one file's last ingestion attempt, keyed by its filename,
// as the caller passes it, within a project.
type Entry struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	ProjectName string `gorm:"type:varchar(255);index"`
	Filename    string `gorm:"type:text;index"`
	ContentHash string `gorm:"type:varchar(64)"`
	Status      Status `gorm:"type:varchar(10)"`
	Error       string `gorm:"type:text"`
	IngestedAt  time.Time
}

func (Entry) TableName() string { return "ingest_entries" }

// Connect opens (creating if necessary) the ledger's SQLite file at dsn
// and runs its migration, the same directory-creation-then-Open shape as
// the teacher's db.Connect, minus the libSQL/Turso branch since this
// ledger never leaves the local filesystem.
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("ledger: create directory for %s: %w", dsn, err)
			}
		}
	}

	gcfg := &gorm.Config{}
	if debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(dsn), gcfg)
	if err != nil {
		return nil, fmt.Errorf("ledger: connect to %s: %w", dsn, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the ledger's schema migration.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Entry{})
}

// Ledger wraps a *gorm.DB with the narrow read/write operations
// pkg/engine's ingestion path needs.
type Ledger struct {
	db *gorm.DB
}

// New wraps an already-connected *gorm.DB.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func entryID(projectName, filename string) string {
	return projectName + "::" + filename
}

// Lookup returns the last recorded entry for filename within projectName,
// if any.
func (l *Ledger) Lookup(projectName, filename string) (*Entry, bool) {
	var e Entry
	err := l.db.First(&e, "id = ?", entryID(projectName, filename)).Error
	if err != nil {
		return nil, false
	}
	return &e, true
}

// RecordSuccess upserts a StatusOK entry for filename, stamping the
// content hash used to detect unchanged files on a later ingest run.
func (l *Ledger) RecordSuccess(projectName, filename, contentHash string) error {
	e := Entry{
		ID:          entryID(projectName, filename),
		ProjectName: projectName,
		Filename:    filename,
		ContentHash: contentHash,
		Status:      StatusOK,
		IngestedAt:  time.Now(),
	}
	return l.db.Save(&e).Error
}

// RecordFailure upserts a StatusFailed entry carrying the parse/insert
// error, so a caller can list and retry failed files without re-scanning
// a whole project tree.
func (l *Ledger) RecordFailure(projectName, filename string, cause error) error {
	e := Entry{
		ID:          entryID(projectName, filename),
		ProjectName: projectName,
		Filename:    filename,
		Status:      StatusFailed,
		Error:       cause.Error(),
		IngestedAt:  time.Now(),
	}
	return l.db.Save(&e).Error
}

// Failures returns every entry currently recorded as failed for a project.
func (l *Ledger) Failures(projectName string) ([]Entry, error) {
	var out []Entry
	err := l.db.Where("project_name = ? AND status = ?", projectName, StatusFailed).Find(&out).Error
	return out, err
}

// UpToDate reports whether filename's last recorded ingest already used
// contentHash, so pkg/engine.IngestFile callers can skip re-parsing it.
func (l *Ledger) UpToDate(projectName, filename, contentHash string) bool {
	e, ok := l.Lookup(projectName, filename)
	return ok && e.Status == StatusOK && e.ContentHash == contentHash
}
