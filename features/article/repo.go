package article

import (
	"context"
	"database/sql"
	"encoding/json"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, a *Article) error {
	metaJSON, err := json.Marshal(a.Meta)
	if err != nil {
		return err
	}

	query := `INSERT INTO news_articles (site, category, url, title, lang, content_hi, scraped_at, published_at, meta)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7, $8)
		ON CONFLICT (url) DO UPDATE SET
			site = EXCLUDED.site,
			category = EXCLUDED.category,
			title = EXCLUDED.title,
			lang = EXCLUDED.lang,
			content_hi = EXCLUDED.content_hi,
			scraped_at = NOW(),
			published_at = EXCLUDED.published_at,
			meta = EXCLUDED.meta
		RETURNING id, scraped_at`
	return r.db.QueryRowContext(ctx, query,
		a.Site, a.Category, a.URL, a.Title, a.Lang, a.Content,
		nullString(a.PublishedAt), metaJSON,
	).Scan(&a.ID, &a.ScrapedAt)
}

func (r *PostgresRepo) List(ctx context.Context, limit, offset int) ([]Article, error) {
	query := `SELECT id, site, category, url, title, lang, content_hi, scraped_at, published_at, meta
		FROM news_articles ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id int64) (*Article, error) {
	query := `SELECT id, site, category, url, title, lang, content_hi, scraped_at, published_at, meta
		FROM news_articles WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	a, err := scanArticle(row)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM news_articles`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row scanner) (Article, error) {
	var a Article
	var publishedAt sql.NullString
	var metaJSON []byte
	err := row.Scan(&a.ID, &a.Site, &a.Category, &a.URL, &a.Title, &a.Lang,
		&a.Content, &a.ScrapedAt, &publishedAt, &metaJSON)
	if err != nil {
		return Article{}, err
	}
	a.PublishedAt = publishedAt.String
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &a.Meta); err != nil {
			return Article{}, err
		}
	}
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
