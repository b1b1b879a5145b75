package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Tags      []string  `json:"tags"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"dateCreated"`
}

// PostFinder is the lookup the ownership gate needs.
type PostFinder interface {
	FindByID(ctx context.Context, id string) (*Post, error)
}

type PostRepository interface {
	PostFinder
	Create(ctx context.Context, author, title, content string, tags []string) (*Post, error)
	Delete(ctx context.Context, id string) (*Post, error)
	ListByAuthor(ctx context.Context, author string) ([]Post, error)
}

type PgPostRepository struct {
	db *pgxpool.Pool
}

func NewPgPostRepository(db *pgxpool.Pool) *PgPostRepository {
	return &PgPostRepository{db: db}
}

const postColumns = `id, title, content, author, tags, likes, created_at`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &p.Tags, &p.Likes, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func (r *PgPostRepository) FindByID(ctx context.Context, id string) (*Post, error) {
	const q = `SELECT ` + postColumns + ` FROM posts WHERE id=$1`
	return scanPost(r.db.QueryRow(ctx, q, id))
}

func (r *PgPostRepository) Create(ctx context.Context, author, title, content string, tags []string) (*Post, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if tags == nil {
		tags = []string{}
	}
	id, err := NewPostID()
	if err != nil {
		return nil, err
	}
	const q = `INSERT INTO posts (id, title, content, author, tags) VALUES ($1,$2,$3,$4,$5) RETURNING ` + postColumns
	return scanPost(r.db.QueryRow(ctx, q, id, title, content, author, tags))
}

func (r *PgPostRepository) Delete(ctx context.Context, id string) (*Post, error) {
	const q = `DELETE FROM posts WHERE id=$1 RETURNING ` + postColumns
	return scanPost(r.db.QueryRow(ctx, q, id))
}

func (r *PgPostRepository) ListByAuthor(ctx context.Context, author string) ([]Post, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+postColumns+`
FROM posts
WHERE author=$1
ORDER BY created_at DESC, id DESC
`, author)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}
