package mapper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/feichai0017/doc-extractor/internal/registry"
)

// Shape normalization. A value that cannot be coerced into its declared shape
// is kept raw with damped confidence; shape trouble is a quality signal, not
// a miss.

const shapePenalty = 0.5

var dateLayouts = []string{
	"02/01/2006", "02-01-2006", "02.01.2006",
	"2/1/2006", "2006-01-02",
	"02 Jan 2006", "02 January 2006", "Jan 2, 2006", "January 2, 2006",
	"02/01/06",
}

var numberCleaner = regexp.MustCompile(`[^\d.\-]`)

// normalizeShape coerces raw into the declared shape. The returned factor is
// multiplied into the field confidence.
func normalizeShape(raw string, spec *registry.FieldSpec) (value string, factor float64) {
	raw = strings.Join(strings.Fields(raw), " ")
	switch spec.Shape {
	case registry.ShapeDate:
		return normalizeDate(raw)
	case registry.ShapeNumber:
		return normalizeNumber(raw)
	case registry.ShapeEnum:
		return normalizeEnum(raw, spec.Enum)
	default:
		return raw, 1
	}
}

func normalizeDate(raw string) (string, float64) {
	cleaned := strings.TrimRight(raw, ".,;")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format("02/01/2006"), 1
		}
	}
	return raw, shapePenalty
}

func normalizeNumber(raw string) (string, float64) {
	cleaned := numberCleaner.ReplaceAllString(strings.ReplaceAll(raw, ",", ""), "")
	if cleaned == "" {
		return raw, shapePenalty
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return raw, shapePenalty
	}
	return strconv.FormatFloat(n, 'f', -1, 64), 1
}

func normalizeEnum(raw string, allowed []string) (string, float64) {
	for _, v := range allowed {
		if strings.EqualFold(raw, v) {
			return v, 1
		}
	}
	// single-letter gender codes are a common OCR rendering
	if len(raw) == 1 {
		for _, v := range allowed {
			if strings.EqualFold(raw, v[:1]) {
				return v, 1
			}
		}
	}
	return raw, shapePenalty
}
