package mapper

import (
	"regexp"
	"strings"

	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/internal/mrz"
	"github.com/feichai0017/doc-extractor/internal/registry"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

// Mapper resolves schema fields against the recognized token stream. It
// emits exactly one ExtractedField per FieldSpec; a miss is a nil value with
// zero confidence, never an error.
type Mapper struct {
	logger logger.Logger
}

func NewMapper(log logger.Logger) *Mapper {
	return &Mapper{logger: log}
}

// candidate is one possible value for a field. Candidates compete on score,
// then earliest page, then topmost line, then leftmost column.
type candidate struct {
	value      string
	score      float64
	page       int
	line       int
	left       int
	evidence   string
	source     string
	confidence float64
}

func better(a, b *candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.page != b.page {
		return a.page < b.page
	}
	if a.line != b.line {
		return a.line < b.line
	}
	return a.left < b.left
}

// Map resolves every field of the schema. zone may be nil when the document
// carries no machine readable zone.
func (m *Mapper) Map(schema *registry.Schema, tokens []models.OcrToken, zone *mrz.Result) []models.ExtractedField {
	lines := buildLines(tokens)

	fields := make([]models.ExtractedField, 0, len(schema.Fields))
	for i := range schema.Fields {
		spec := &schema.Fields[i]
		fields = append(fields, m.resolve(spec, lines, zone))
	}
	return fields
}

func (m *Mapper) resolve(spec *registry.FieldSpec, lines []line, zone *mrz.Result) models.ExtractedField {
	var best *candidate
	switch spec.Strategy {
	case registry.StrategyMRZ:
		best = m.fromZone(spec, lines, zone)
	case registry.StrategyKeyword:
		best = bestCandidate(keywordCandidates(spec.Synonyms, lines))
	case registry.StrategyPattern:
		best = bestCandidate(patternCandidates(spec.Patterns, lines))
	case registry.StrategyFixedOffset:
		best = fixedOffsetCandidate(spec, lines)
	}

	if best == nil || best.value == "" {
		return models.ExtractedField{Name: spec.Name, Value: nil, Confidence: 0}
	}

	value, factor := normalizeShape(best.value, spec)
	return models.ExtractedField{
		Name:       spec.Name,
		Value:      models.StrPtr(value),
		Confidence: clamp01(best.confidence * factor),
		Page:       best.page,
		Evidence:   best.evidence,
		Source:     best.source,
	}
}

// fromZone reads the decoded zone field. When the visual zone carries a
// conflicting value for the same label, the zone still wins but the
// disagreement costs confidence.
func (m *Mapper) fromZone(spec *registry.FieldSpec, lines []line, zone *mrz.Result) *candidate {
	if zone == nil {
		return nil
	}
	f, ok := zone.Fields[spec.MRZField]
	if !ok || f.Value == "" {
		return nil
	}
	c := &candidate{
		value:      f.Value,
		page:       zone.Page,
		evidence:   f.Value,
		source:     "mrz",
		confidence: f.Confidence,
	}

	synonyms := spec.Synonyms
	if len(synonyms) == 0 {
		synonyms = []string{strings.ReplaceAll(spec.Name, "_", " ")}
	}
	if visual := bestCandidate(keywordCandidates(synonyms, lines)); visual != nil {
		if !strings.EqualFold(normalizeSpace(visual.value), normalizeSpace(f.Value)) {
			c.confidence *= 0.75
			m.logger.Debug("zone and visual text disagree",
				logger.String("field", spec.Name),
				logger.String("zone", f.Value),
				logger.String("visual", visual.value),
			)
		}
	}
	return c
}

// keywordCandidates anchors on a label synonym and takes the value to its
// right on the same line, falling back to the next line below the anchor.
func keywordCandidates(synonyms []string, lines []line) []candidate {
	var out []candidate
	for li := range lines {
		ln := &lines[li]
		for _, syn := range synonyms {
			anchorStart, anchorEnd, ok := matchSynonym(ln, syn)
			if !ok {
				continue
			}
			valueToks := trimLabelSeparators(ln.Tokens[anchorEnd:])
			source := "keyword"
			if len(valueToks) == 0 {
				below := lineBelow(lines, li)
				if below == nil {
					continue
				}
				valueToks = below.Tokens
			}
			if len(valueToks) == 0 {
				continue
			}
			// a shaky anchor caps the match: the value is only as trustworthy
			// as the label that located it
			conf := meanConfidence(valueToks)
			if anchorConf := meanConfidence(ln.Tokens[anchorStart:anchorEnd]); anchorConf < conf {
				conf = anchorConf
			}
			out = append(out, candidate{
				value:      joinTokens(valueToks),
				score:      conf,
				page:       ln.Page,
				line:       ln.Index,
				left:       valueToks[0].Box.Min.X,
				evidence:   ln.Text(),
				source:     source,
				confidence: conf,
			})
		}
	}
	return out
}

// matchSynonym looks for the synonym's words as a consecutive token run at
// the start of or inside the line. Returns the bounds of the run.
func matchSynonym(ln *line, synonym string) (int, int, bool) {
	words := strings.Fields(strings.ToLower(synonym))
	if len(words) == 0 || len(ln.Tokens) < len(words) {
		return 0, 0, false
	}
	for start := 0; start+len(words) <= len(ln.Tokens); start++ {
		match := true
		for i, w := range words {
			tok := strings.ToLower(strings.Trim(ln.Tokens[start+i].Text, ":.,#"))
			if tok != w {
				match = false
				break
			}
		}
		if match {
			return start, start + len(words), true
		}
	}
	return 0, 0, false
}

// trimLabelSeparators drops leading separator tokens between a label and its
// value.
func trimLabelSeparators(tokens []models.OcrToken) []models.OcrToken {
	for len(tokens) > 0 {
		t := strings.Trim(tokens[0].Text, " ")
		if t == ":" || t == "-" || t == "." || t == "#" {
			tokens = tokens[1:]
			continue
		}
		break
	}
	return tokens
}

// lineBelow returns the next line on the same page.
func lineBelow(lines []line, i int) *line {
	if i+1 < len(lines) && lines[i+1].Page == lines[i].Page {
		return &lines[i+1]
	}
	return nil
}

// patternCandidates tests token windows of one to three tokens against the
// shape regexes. Earlier patterns in the spec score higher.
func patternCandidates(patterns []string, lines []line) []candidate {
	var out []candidate
	for pi, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			continue
		}
		// priority decays with pattern rank
		rank := 1 - float64(pi)*0.1
		for li := range lines {
			ln := &lines[li]
			for start := 0; start < len(ln.Tokens); start++ {
				for width := 1; width <= 3 && start+width <= len(ln.Tokens); width++ {
					window := ln.Tokens[start : start+width]
					text := joinTokens(window)
					if !re.MatchString(text) {
						continue
					}
					conf := meanConfidence(window)
					out = append(out, candidate{
						value:      text,
						score:      conf * rank,
						page:       ln.Page,
						line:       ln.Index,
						left:       window[0].Box.Min.X,
						evidence:   ln.Text(),
						source:     "pattern",
						confidence: conf,
					})
				}
			}
		}
	}
	return out
}

// fixedOffsetCandidate takes the whole line at a fixed reading-order offset.
func fixedOffsetCandidate(spec *registry.FieldSpec, lines []line) *candidate {
	for li := range lines {
		ln := &lines[li]
		if ln.Page != spec.Page || ln.Index != spec.LineOffset {
			continue
		}
		if len(ln.Tokens) == 0 {
			return nil
		}
		conf := ln.Confidence()
		return &candidate{
			value:      ln.Text(),
			score:      conf,
			page:       ln.Page,
			line:       ln.Index,
			left:       ln.Tokens[0].Box.Min.X,
			evidence:   ln.Text(),
			source:     "offset",
			confidence: conf,
		}
	}
	return nil
}

func bestCandidate(cands []candidate) *candidate {
	var best *candidate
	for i := range cands {
		if best == nil || better(&cands[i], best) {
			best = &cands[i]
		}
	}
	return best
}

func joinTokens(tokens []models.OcrToken) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
