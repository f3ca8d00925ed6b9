package mapper

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/internal/mrz"
	"github.com/feichai0017/doc-extractor/internal/registry"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

func tok(text string, page, line, x int) models.OcrToken {
	return models.OcrToken{
		Text:       text,
		Box:        image.Rect(x, line*20, x+10*len(text), line*20+16),
		Confidence: 0.9,
		Page:       page,
		Line:       line,
	}
}

func lineTokens(page, line int, words ...string) []models.OcrToken {
	toks := make([]models.OcrToken, 0, len(words))
	x := 0
	for _, w := range words {
		toks = append(toks, tok(w, page, line, x))
		x += 10*len(w) + 10
	}
	return toks
}

func fieldByName(fields []models.ExtractedField, name string) *models.ExtractedField {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}

func TestKeywordValueRightOfLabel(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "invoice_number", Strategy: registry.StrategyKeyword, Shape: registry.ShapeString,
			Synonyms: []string{"invoice no"}},
	}}

	tokens := lineTokens(0, 2, "Invoice", "No", ":", "INV-1001")
	fields := m.Map(schema, tokens, nil)

	require.Len(t, fields, 1)
	require.NotNil(t, fields[0].Value)
	assert.Equal(t, "INV-1001", *fields[0].Value)
	assert.InDelta(t, 0.9, fields[0].Confidence, 1e-9)
	assert.Equal(t, "keyword", fields[0].Source)
}

func TestKeywordShakyAnchorCapsConfidence(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "invoice_number", Strategy: registry.StrategyKeyword, Shape: registry.ShapeString,
			Synonyms: []string{"invoice no"}},
	}}

	// the label barely read, the value read cleanly
	tokens := lineTokens(0, 2, "Invoice", "No", ":", "INV-1001")
	tokens[0].Confidence = 0.4
	tokens[1].Confidence = 0.4
	fields := m.Map(schema, tokens, nil)

	require.NotNil(t, fields[0].Value)
	assert.Equal(t, "INV-1001", *fields[0].Value)
	assert.InDelta(t, 0.4, fields[0].Confidence, 1e-9)
}

func TestKeywordFallsBackToLineBelow(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "full_name", Strategy: registry.StrategyKeyword, Shape: registry.ShapeString,
			Synonyms: []string{"name"}},
	}}

	tokens := append(lineTokens(0, 1, "Name"), lineTokens(0, 2, "JOHN", "SMITH")...)
	fields := m.Map(schema, tokens, nil)

	require.NotNil(t, fields[0].Value)
	assert.Equal(t, "JOHN SMITH", *fields[0].Value)
}

func TestMissIsNilValueNotError(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "sponsor_name", Strategy: registry.StrategyKeyword, Shape: registry.ShapeString,
			Synonyms: []string{"sponsor"}},
	}}

	fields := m.Map(schema, lineTokens(0, 0, "nothing", "relevant"), nil)

	require.Len(t, fields, 1)
	assert.Nil(t, fields[0].Value)
	assert.Zero(t, fields[0].Confidence)
}

func TestPatternMatchesMultiTokenWindow(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "aadhaar_number", Strategy: registry.StrategyPattern, Shape: registry.ShapeString,
			Patterns: []string{`^\d{4}\s\d{4}\s\d{4}$`}},
	}}

	tokens := lineTokens(0, 3, "1234", "5678", "9012")
	fields := m.Map(schema, tokens, nil)

	require.NotNil(t, fields[0].Value)
	assert.Equal(t, "1234 5678 9012", *fields[0].Value)
	assert.Equal(t, "pattern", fields[0].Source)
}

func TestPatternTieBreakPrefersEarliestPage(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "uid_number", Strategy: registry.StrategyPattern, Shape: registry.ShapeNumber,
			Patterns: []string{`^\d{12}$`}},
	}}

	tokens := append(lineTokens(1, 0, "111111111111"), lineTokens(0, 5, "222222222222")...)
	fields := m.Map(schema, tokens, nil)

	require.NotNil(t, fields[0].Value)
	assert.Equal(t, "222222222222", *fields[0].Value)
	assert.Equal(t, 0, fields[0].Page)
}

func TestFixedOffsetTakesWholeLine(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "supplier_name", Strategy: registry.StrategyFixedOffset, Shape: registry.ShapeString,
			Page: 0, LineOffset: 0},
	}}

	tokens := append(lineTokens(0, 7, "ACME", "Trading", "LLC"), lineTokens(0, 8, "TAX", "INVOICE")...)
	fields := m.Map(schema, tokens, nil)

	require.NotNil(t, fields[0].Value)
	assert.Equal(t, "ACME Trading LLC", *fields[0].Value)
	assert.Equal(t, "offset", fields[0].Source)
}

func TestZoneFieldWinsOverConflictingVisualText(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "nationality", Strategy: registry.StrategyMRZ, Shape: registry.ShapeString,
			MRZField: mrz.FieldNationality},
	}}
	zone := &mrz.Result{
		Format: "TD3",
		Fields: map[string]mrz.Field{mrz.FieldNationality: {Value: "UTO", Confidence: 1}},
	}

	// visual zone disagrees with the machine readable zone
	tokens := lineTokens(0, 4, "Nationality", "UTOPIAN")
	fields := m.Map(schema, tokens, zone)

	require.NotNil(t, fields[0].Value)
	assert.Equal(t, "UTO", *fields[0].Value)
	assert.InDelta(t, 0.75, fields[0].Confidence, 1e-9)
	assert.Equal(t, "mrz", fields[0].Source)
}

func TestZoneFieldAgreementKeepsConfidence(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "nationality", Strategy: registry.StrategyMRZ, Shape: registry.ShapeString,
			MRZField: mrz.FieldNationality},
	}}
	zone := &mrz.Result{
		Fields: map[string]mrz.Field{mrz.FieldNationality: {Value: "UTO", Confidence: 1}},
	}

	tokens := lineTokens(0, 4, "Nationality", "UTO")
	fields := m.Map(schema, tokens, zone)

	require.NotNil(t, fields[0].Value)
	assert.Equal(t, 1.0, fields[0].Confidence)
}

func TestZoneFieldMissingWithoutZone(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "surname", Strategy: registry.StrategyMRZ, Shape: registry.ShapeString,
			MRZField: mrz.FieldSurname},
	}}

	fields := m.Map(schema, lineTokens(0, 0, "some", "text"), nil)
	assert.Nil(t, fields[0].Value)
}

func TestShapeNormalization(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "expiry_date", Strategy: registry.StrategyKeyword, Shape: registry.ShapeDate,
			Synonyms: []string{"expiry date"}},
		{Name: "total_amount", Strategy: registry.StrategyKeyword, Shape: registry.ShapeNumber,
			Synonyms: []string{"total"}},
		{Name: "gender", Strategy: registry.StrategyKeyword, Shape: registry.ShapeEnum,
			Synonyms: []string{"sex"}, Enum: []string{"Male", "Female"}},
	}}

	tokens := lineTokens(0, 0, "Expiry", "Date", "15-03-2026")
	tokens = append(tokens, lineTokens(0, 1, "Total", ":", "1,250.50")...)
	tokens = append(tokens, lineTokens(0, 2, "Sex", "F")...)
	fields := m.Map(schema, tokens, nil)

	expiry := fieldByName(fields, "expiry_date")
	require.NotNil(t, expiry.Value)
	assert.Equal(t, "15/03/2026", *expiry.Value)

	total := fieldByName(fields, "total_amount")
	require.NotNil(t, total.Value)
	assert.Equal(t, "1250.5", *total.Value)

	gender := fieldByName(fields, "gender")
	require.NotNil(t, gender.Value)
	assert.Equal(t, "Female", *gender.Value)
}

func TestShapeMismatchDampsConfidence(t *testing.T) {
	m := NewMapper(logger.NewTestLogger())
	schema := &registry.Schema{Key: "t", Fields: []registry.FieldSpec{
		{Name: "invoice_date", Strategy: registry.StrategyKeyword, Shape: registry.ShapeDate,
			Synonyms: []string{"date"}},
	}}

	tokens := lineTokens(0, 0, "Date", "sometime", "soon")
	fields := m.Map(schema, tokens, nil)

	require.NotNil(t, fields[0].Value)
	assert.Equal(t, "sometime soon", *fields[0].Value)
	assert.InDelta(t, 0.45, fields[0].Confidence, 1e-9)
}
