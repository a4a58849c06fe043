// Package index maintains a sqlite-backed catalogue of published posts. The
// preview server and the posts CLI query it instead of re-parsing the content
// tree on every request.
package index

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PostRecord is the persisted form of a parsed post.
type PostRecord struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID         uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Slug       string    `bun:"slug,notnull,unique" json:"slug"`
	Title      string    `bun:"title,notnull" json:"title"`
	Summary    string    `bun:"summary" json:"summary,omitempty"`
	Author     string    `bun:"author" json:"author,omitempty"`
	Date       time.Time `bun:"date,notnull" json:"date"`
	Tags       []string  `bun:"tags,type:jsonb" json:"tags,omitempty"`
	Projects   []string  `bun:"projects,type:jsonb" json:"projects,omitempty"`
	Draft      bool      `bun:"draft,notnull,default:false" json:"draft"`
	SourcePath string    `bun:"source_path,notnull" json:"source_path"`
	Checksum   string    `bun:"checksum,notnull" json:"checksum"`
	Route      string    `bun:"route,notnull" json:"route"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// NotFoundError reports a missing post record.
type NotFoundError struct {
	Slug string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("index: post %q not found", e.Slug)
}
