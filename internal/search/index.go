// Package search provides semantic search over cached episode show notes.
package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	openai "github.com/sashabaranov/go-openai"

	"github.com/podline/podline/internal/api"
)

const collectionName = "episodes"

// Result is a scored episode match.
type Result struct {
	EpisodeID   string
	Title       string
	PublishedAt time.Time
	Snippet     string
	Similarity  float32
}

// Index is a chromem-go collection of episode show notes, persisted under
// the data directory so reindexing is only needed when the feed changes.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
	path       string
}

// BackendEmbeddingFunc embeds through the backend's OpenAI-compatible
// /v1/embeddings endpoint.
func BackendEmbeddingFunc(baseURL, token, model string) chromem.EmbeddingFunc {
	cfg := openai.DefaultConfig(token)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	client := openai.NewClientWithConfig(cfg)

	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(model),
		})
		if err != nil {
			return nil, fmt.Errorf("embedding request: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("embedding request: empty response")
		}
		return resp.Data[0].Embedding, nil
	}
}

// NewIndex opens the episode index, importing a previously persisted copy
// from dataDir when one exists.
func NewIndex(embed chromem.EmbeddingFunc, dataDir string) (*Index, error) {
	db := chromem.NewDB()
	path := filepath.Join(dataDir, "episodes.gob.gz")

	if _, err := os.Stat(path); err == nil {
		if err := db.ImportFromFile(path, ""); err != nil {
			return nil, fmt.Errorf("importing episode index: %w", err)
		}
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	return &Index{db: db, collection: col, embedFunc: embed, path: path}, nil
}

// IndexEpisodes replaces each episode's entry with its current show notes.
func (ix *Index) IndexEpisodes(ctx context.Context, episodes []api.Episode) error {
	if len(episodes) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(episodes))
	for i, ep := range episodes {
		docs[i] = chromem.Document{
			ID:      ep.ID,
			Content: ep.Title + "\n\n" + ep.Description,
			Metadata: map[string]string{
				"title":        ep.Title,
				"published_at": ep.PublishedAt.UTC().Format(time.RFC3339),
			},
		}
	}
	if err := ix.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("indexing episodes: %w", err)
	}
	return nil
}

// Search returns the closest episodes to the query, best first.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	// chromem-go requires nResults <= collection size.
	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	matches, err := ix.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		publishedAt, _ := time.Parse(time.RFC3339, m.Metadata["published_at"])
		results[i] = Result{
			EpisodeID:   m.ID,
			Title:       m.Metadata["title"],
			PublishedAt: publishedAt,
			Snippet:     snippet(m.Content),
			Similarity:  m.Similarity,
		}
	}
	return results, nil
}

// Persist writes the index to the data directory.
func (ix *Index) Persist() error {
	if err := os.MkdirAll(filepath.Dir(ix.path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return ix.db.ExportToFile(ix.path, true, "")
}

// Count returns the number of indexed episodes.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

func snippet(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[:i]
	}
	const max = 120
	if r := []rune(content); len(r) > max {
		content = strings.TrimSpace(string(r[:max])) + "…"
	}
	return content
}
