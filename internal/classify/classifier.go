package classify

import (
	"sort"
	"strings"

	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/internal/registry"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

// Classifier guesses the document type from page text when the caller does
// not supply one. Each schema keyword found on the page scores one point;
// ties resolve to the alphabetically first key so the guess is stable.
type Classifier struct {
	registry *registry.Registry
	logger   logger.Logger
}

func NewClassifier(reg *registry.Registry, log logger.Logger) *Classifier {
	return &Classifier{registry: reg, logger: log}
}

// Classify returns the best-matching type key and its keyword hit count.
// A zero count means no schema matched.
func (c *Classifier) Classify(tokens []models.OcrToken) (string, int) {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(strings.ToLower(t.Text))
		b.WriteByte(' ')
	}
	text := b.String()

	keys := c.registry.Keys()
	sort.Strings(keys)

	bestKey, bestScore := "", 0
	for _, key := range keys {
		schema, err := c.registry.Lookup(key)
		if err != nil {
			continue
		}
		score := 0
		for _, kw := range schema.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			bestKey, bestScore = key, score
		}
	}

	if bestScore > 0 {
		c.logger.Info("document type classified",
			logger.String("type", bestKey),
			logger.Int("keywordHits", bestScore),
		)
	}
	return bestKey, bestScore
}
