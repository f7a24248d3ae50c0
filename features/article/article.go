package article

import (
	"encoding/json"
	"fmt"
	"time"

	"samachar/backend/internal/document"
)

// Article is one scraped news article. URL is the natural key; saving an
// article with an existing URL overwrites the stored row.
type Article struct {
	ID          int64                  `json:"id"`
	Site        string                 `json:"site"`
	Category    string                 `json:"category"`
	URL         string                 `json:"url"`
	Title       string                 `json:"title"`
	Lang        string                 `json:"lang"`
	Content     string                 `json:"content"`
	ScrapedAt   time.Time              `json:"scraped_at"`
	PublishedAt string                 `json:"published_at,omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
}

// DocID is the stable document identifier derived from the row id.
func (a *Article) DocID() string {
	return fmt.Sprintf("news:%d", a.ID)
}

// ToDocument flattens the article into an indexable document. Column
// metadata and free-form meta are merged, column values winning on clash.
func (a *Article) ToDocument() document.Document {
	meta := SanitizeMeta(a.Meta)
	meta["site"] = a.Site
	meta["category"] = a.Category
	meta["url"] = a.URL
	meta["title"] = a.Title
	meta["lang"] = a.Lang
	if a.PublishedAt != "" {
		meta["published_at"] = a.PublishedAt
	}
	return document.Document{
		ID:   a.DocID(),
		Text: a.Content,
		Meta: meta,
	}
}

// SanitizeMeta drops nil values and renders anything that is not a
// primitive as a JSON string, so the result survives any index backend.
func SanitizeMeta(meta map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		if v == nil {
			continue
		}
		switch v.(type) {
		case string, bool, int, int64, float64:
			out[k] = v
		default:
			if b, err := json.Marshal(v); err == nil {
				out[k] = string(b)
			} else {
				out[k] = fmt.Sprintf("%v", v)
			}
		}
	}
	return out
}
