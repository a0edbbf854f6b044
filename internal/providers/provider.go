package providers

import "context"

// SearchResult is one catalog hit, keyed by series link in SearchResults.
type SearchResult struct {
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail"`
	Chapters  []string `json:"chapters"`
}

// SearchResults maps series link to its search entry.
type SearchResults map[string]SearchResult

// StoryInfo is the metadata shown on a series detail page.
type StoryInfo struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"desc"`
	Genres      []string `json:"genres"`
	Chapters    int      `json:"chapters"`
}

// ChapterImageList holds the page image URLs of one chapter in reader order.
type ChapterImageList struct {
	ChapterURL string
	Images     []string
}

type Catalog interface {
	Search(ctx context.Context, keyword string) (SearchResults, error)
	Info(ctx context.Context, seriesURL string) (StoryInfo, error)
}

type ChapterSource interface {
	// ChapterURL builds the reader URL for chapter n of a series.
	ChapterURL(seriesID string, n int) string
	ChapterImages(ctx context.Context, chapterURL string) (ChapterImageList, error)
}

// Provider is a remote site that can both be browsed and read from.
type Provider interface {
	Catalog
	ChapterSource
}
