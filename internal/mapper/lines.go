package mapper

import (
	"sort"
	"strings"

	"github.com/feichai0017/doc-extractor/internal/models"
)

// line is a reading-order line rebuilt from the token stream.
type line struct {
	Page   int
	Index  int // 0-based position among the page's lines
	Tokens []models.OcrToken
}

func (l *line) Text() string {
	parts := make([]string, len(l.Tokens))
	for i, t := range l.Tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

func (l *line) Confidence() float64 {
	if len(l.Tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range l.Tokens {
		sum += t.Confidence
	}
	return sum / float64(len(l.Tokens))
}

// buildLines groups tokens by page and engine line, left to right within a
// line, pages and lines in source order.
func buildLines(tokens []models.OcrToken) []line {
	type key struct{ page, line int }
	grouped := make(map[key][]models.OcrToken)
	for _, t := range tokens {
		k := key{t.Page, t.Line}
		grouped[k] = append(grouped[k], t)
	}

	keys := make([]key, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].page != keys[j].page {
			return keys[i].page < keys[j].page
		}
		return keys[i].line < keys[j].line
	})

	lines := make([]line, 0, len(keys))
	pageIndex, prevPage := 0, -1
	for _, k := range keys {
		toks := grouped[k]
		sort.Slice(toks, func(i, j int) bool { return toks[i].Box.Min.X < toks[j].Box.Min.X })
		if k.page != prevPage {
			pageIndex = 0
			prevPage = k.page
		}
		lines = append(lines, line{Page: k.page, Index: pageIndex, Tokens: toks})
		pageIndex++
	}
	return lines
}

// meanConfidence averages token confidences.
func meanConfidence(tokens []models.OcrToken) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tokens {
		sum += t.Confidence
	}
	return sum / float64(len(tokens))
}
