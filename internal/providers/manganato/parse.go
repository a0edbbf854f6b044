package manganato

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/mangapdf/internal/providers"
)

// descriptionPrefixLen is the length of the "Description :" boilerplate the
// site puts in front of every story description.
const descriptionPrefixLen = 15

func parseSearch(doc *goquery.Document, pageURL string) providers.SearchResults {
	out := providers.SearchResults{}

	doc.Find("div.panel-search-story div.search-story-item a.item-img").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		var title, thumb string
		a.Find("img").Each(func(_ int, img *goquery.Selection) {
			title = img.AttrOr("alt", "")
			thumb = img.AttrOr("src", "")
		})
		if thumb != "" {
			thumb = resolve(pageURL, thumb)
		}

		out[resolve(pageURL, strings.TrimSpace(href))] = providers.SearchResult{
			Title:     strings.TrimSpace(title),
			Thumbnail: thumb,
			Chapters:  []string{},
		}
	})

	return out
}

func parseStoryInfo(doc *goquery.Document) (providers.StoryInfo, error) {
	descSel := doc.Find("#panel-story-info-description").First()
	if descSel.Length() == 0 {
		return providers.StoryInfo{}, fmt.Errorf("%w: story description not found", ErrMarkup)
	}

	info := providers.StoryInfo{
		Title:       strings.TrimSpace(doc.Find(".story-info-right h1").First().Text()),
		Description: stripDescriptionPrefix(descSel.Text()),
		Genres:      []string{},
		Chapters:    doc.Find("ul.row-content-chapter li.a-h").Length(),
	}

	doc.Find(".variations-tableInfo tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(row.Find(".table-label").Text())
		if !strings.Contains(label, "genre") {
			return
		}

		row.Find(".table-value a").Each(func(_ int, a *goquery.Selection) {
			if g := strings.TrimSpace(a.Text()); g != "" {
				info.Genres = append(info.Genres, g)
			}
		})
	})

	return info, nil
}

func stripDescriptionPrefix(desc string) string {
	r := []rune(desc)
	if len(r) <= descriptionPrefixLen {
		return ""
	}

	return strings.TrimSpace(string(r[descriptionPrefixLen:]))
}

func parseChapterImages(doc *goquery.Document, chapterURL string) ([]string, error) {
	reader := doc.Find("div.container-chapter-reader").First()
	if reader.Length() == 0 {
		return nil, fmt.Errorf("%w: chapter reader not found at %s", ErrMarkup, chapterURL)
	}

	var out []string
	reader.Find("img").Each(func(_ int, img *goquery.Selection) {
		for _, k := range []string{"src", "data-src"} {
			if v, ok := img.Attr(k); ok && strings.TrimSpace(v) != "" {
				out = append(out, resolve(chapterURL, strings.TrimSpace(v)))
				return
			}
		}
	})

	return out, nil
}

func resolve(pageURL, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u == nil {
		return raw
	}

	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(pageURL)
	if err != nil || base == nil {
		return raw
	}

	return base.ResolveReference(u).String()
}
