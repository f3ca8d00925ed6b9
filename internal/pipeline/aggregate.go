package pipeline

import (
	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/internal/registry"
)

// Overall confidence aggregation. "mean" averages every extracted field
// equally; "weighted" counts required fields double, so a shaky mandatory
// value drags the score harder than a shaky optional one.

func overallConfidence(fields []models.ExtractedField, schema *registry.Schema, policy string) float64 {
	required := make(map[string]bool, len(schema.Fields))
	for _, f := range schema.Fields {
		if f.Required {
			required[f.Name] = true
		}
	}

	var sum, weightSum float64
	for _, f := range fields {
		if f.Value == nil {
			continue
		}
		w := 1.0
		if policy == "weighted" && required[f.Name] {
			w = 2.0
		}
		sum += f.Confidence * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// resolveStatus maps the field outcome to a terminal status. A run that
// produced its record is never failed here; failure is reserved for errors.
func resolveStatus(fields []models.ExtractedField, schema *registry.Schema) models.Status {
	byName := make(map[string]*models.ExtractedField, len(fields))
	for i := range fields {
		byName[fields[i].Name] = &fields[i]
	}
	for _, spec := range schema.Fields {
		if !spec.Required {
			continue
		}
		f, ok := byName[spec.Name]
		if !ok || f.Value == nil {
			return models.StatusPartial
		}
	}
	return models.StatusDone
}
