// Package store persists links and comments using gorm, with either a SQLite
// database file or a MySQL server behind it.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ErrReferenceViolated is returned when a comment is created for a link that does not exist
var ErrReferenceViolated = errors.New("reference constraint violated")

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config controls how the database is opened
type Config struct {
	Driver        string // DriverSQLite or DriverMySQL
	DSN           string // file name (sqlite) or data source name (mysql)
	MaxOpen       int    // maximum open connections (0 = unlimited)
	SlowThreshold time.Duration
	Logger        zerolog.Logger
}

// Store provides the database operations used by the resolvers
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to the database. The schema is not created - see Migrate.
func Open(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, errors.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         NewLogger(cfg.Logger, cfg.SlowThreshold),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", cfg.Driver)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "getting database handle")
	}
	maxOpen := cfg.MaxOpen
	if strings.Contains(cfg.DSN, ":memory:") {
		maxOpen = 1 // every connection would otherwise get its own empty database
	}
	sqlDB.SetMaxOpenConns(maxOpen)

	return &Store{db: db, logger: cfg.Logger}, nil
}

// sqliteDSN turns on foreign key enforcement which SQLite leaves off by default
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = ":memory:"
	}
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate creates or updates the tables
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return errors.Wrap(err, "migrating schema")
	}
	s.logger.Info().Int("models", len(models)).Msg("schema migrated")
	return nil
}

// Ping checks that the database can be reached
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Feed returns a page of links in order of creation
func (s *Store) Feed(ctx context.Context, f Filter) ([]Link, error) {
	tx := s.db.WithContext(ctx).Model(&Link{})
	if f.Needle != "" {
		pattern := "%" + escapeLike(f.Needle) + "%"
		tx = tx.Where("description LIKE ? ESCAPE '!' OR url LIKE ? ESCAPE '!'", pattern, pattern)
	}
	links := []Link{}
	if err := tx.Order("id").Offset(f.Skip).Limit(f.Take).Find(&links).Error; err != nil {
		return nil, errors.Wrap(err, "reading feed")
	}
	return links, nil
}

// escapeLike stops LIKE wildcards in the needle from matching anything but themselves
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// Link returns the link with the id or nil if there is none
func (s *Store) Link(ctx context.Context, id int64) (*Link, error) {
	var l Link
	if err := s.db.WithContext(ctx).Take(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading link %d", id)
	}
	return &l, nil
}

// CreateLink adds a link, the database assigning its id
func (s *Store) CreateLink(ctx context.Context, url, description string) (*Link, error) {
	l := &Link{URL: url, Description: description}
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, errors.Wrap(err, "creating link")
	}
	return l, nil
}

// Comment returns the comment with the id or nil if there is none
func (s *Store) Comment(ctx context.Context, id int64) (*Comment, error) {
	var c Comment
	if err := s.db.WithContext(ctx).Take(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading comment %d", id)
	}
	return &c, nil
}

// CreateComment adds a comment to a link. If the link does not exist the error is ErrReferenceViolated.
func (s *Store) CreateComment(ctx context.Context, linkID int64, body string) (*Comment, error) {
	c := &Comment{Body: body, LinkID: &linkID}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		if isReferenceViolation(err) {
			return nil, errors.Wrapf(ErrReferenceViolated, "link %d", linkID)
		}
		return nil, errors.Wrap(err, "creating comment")
	}
	return c, nil
}

// CommentsByLink returns all the comments on a link in order of creation
func (s *Store) CommentsByLink(ctx context.Context, linkID int64) ([]Comment, error) {
	comments := []Comment{}
	if err := s.db.WithContext(ctx).Where("link_id = ?", linkID).Order("id").Find(&comments).Error; err != nil {
		return nil, errors.Wrapf(err, "reading comments of link %d", linkID)
	}
	return comments, nil
}

// isReferenceViolation checks for a foreign key error. Dialects that translate errors give
// gorm.ErrForeignKeyViolated but the message is also checked for drivers that don't.
func isReferenceViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") || strings.Contains(msg, "foreign key constraint fails")
}
