package store

import (
	"time"
)

// Link is a row of the links table
type Link struct {
	ID          int64 `gorm:"primaryKey"`
	CreatedAt   time.Time
	URL         string `gorm:"not null"`
	Description string `gorm:"not null"`
}

// Comment is a row of the comments table. The link reference is nullable so that deleting
// a link orphans its comments rather than deleting them.
type Comment struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	Body      string `gorm:"not null"`
	LinkID    *int64 `gorm:"index"`
	Link      *Link  `gorm:"constraint:OnDelete:SET NULL"`
}

// Filter selects a page of the feed
type Filter struct {
	Needle string // matches links whose description or url contains it (empty = all links)
	Skip   int    // row offset
	Take   int    // maximum number of rows
}

// models lists everything that is migrated, parents first
var models = []interface{}{&Link{}, &Comment{}}
