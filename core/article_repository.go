package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Article is one tips-and-guides entry. BodyMD holds the authored markdown;
// rendering happens at request time.
type Article struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Summary   string    `json:"summary"`
	BodyMD    string    `json:"-"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ArticleRepository interface {
	ListPublished(ctx context.Context, page, perPage int) ([]Article, int, error)
	GetBySlug(ctx context.Context, slug string) (*Article, error)
	Upsert(ctx context.Context, a Article) error
}

type PgArticleRepository struct {
	db *pgxpool.Pool
}

func NewPgArticleRepository(db *pgxpool.Pool) *PgArticleRepository {
	return &PgArticleRepository{db: db}
}

// ListPublished returns published articles, newest first, without bodies.
func (r *PgArticleRepository) ListPublished(ctx context.Context, page, perPage int) ([]Article, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	const countQ = `SELECT COUNT(*) FROM articles WHERE published`
	var total int
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `
SELECT id, slug, title, category, summary, created_at, updated_at
FROM articles
WHERE published
ORDER BY updated_at DESC, id DESC
LIMIT $1 OFFSET $2
`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Article, 0, perPage)
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Slug, &a.Title, &a.Category, &a.Summary, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		a.Published = true
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *PgArticleRepository) GetBySlug(ctx context.Context, slug string) (*Article, error) {
	const q = `SELECT id, slug, title, category, summary, body_md, published, created_at, updated_at
FROM articles WHERE slug=$1`
	var a Article
	if err := r.db.QueryRow(ctx, q, slug).Scan(&a.ID, &a.Slug, &a.Title, &a.Category, &a.Summary, &a.BodyMD, &a.Published, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert inserts or replaces an article by slug. Used by the content sync at
// startup; slugs are the stable identity of authored bundles.
func (r *PgArticleRepository) Upsert(ctx context.Context, a Article) error {
	slug := strings.TrimSpace(a.Slug)
	if slug == "" {
		return errors.New("empty slug")
	}
	const q = `
INSERT INTO articles (slug, title, category, summary, body_md, published)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (slug) DO UPDATE SET
  title=EXCLUDED.title,
  category=EXCLUDED.category,
  summary=EXCLUDED.summary,
  body_md=EXCLUDED.body_md,
  published=EXCLUDED.published,
  updated_at=NOW()
`
	_, err := r.db.Exec(ctx, q, slug, strings.TrimSpace(a.Title), strings.TrimSpace(a.Category), strings.TrimSpace(a.Summary), a.BodyMD, a.Published)
	return err
}
