package mrz

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

// ICAO Doc 9303 specimen passport.
const (
	specimenLine1 = "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<"
	specimenLine2 = "L898902C<3UTO6908061F9406236<<<<<<<<<<<<<<02"
)

func zoneTokens(lines ...string) []models.OcrToken {
	toks := make([]models.OcrToken, 0, len(lines))
	for i, l := range lines {
		toks = append(toks, models.OcrToken{
			Text:       l,
			Box:        image.Rect(0, 500+i*20, 440, 516+i*20),
			Confidence: 0.95,
			Page:       0,
			Line:       30 + i,
		})
	}
	return toks
}

func TestCheckDigit(t *testing.T) {
	assert.Equal(t, 3, CheckDigit("L898902C<"))
	assert.Equal(t, 1, CheckDigit("690806"))
	assert.Equal(t, 6, CheckDigit("940623"))
	assert.Equal(t, 0, CheckDigit("<<<<<<<<<<<<<<"))
}

func TestDecodeTD3Specimen(t *testing.T) {
	d := NewDecoder(logger.NewTestLogger())

	result, found, err := d.Decode(zoneTokens(specimenLine1, specimenLine2))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "TD3", result.Format)
	assert.True(t, result.Valid)

	expect := map[string]string{
		FieldSurname:        "ERIKSSON",
		FieldGivenNames:     "ANNA MARIA",
		FieldDocumentNumber: "L898902C",
		FieldNationality:    "UTO",
		FieldIssuingState:   "UTO",
		FieldBirthDate:      "06/08/1969",
		FieldSex:            "Female",
		FieldExpiryDate:     "23/06/1994",
	}
	for name, want := range expect {
		f, ok := result.Fields[name]
		require.True(t, ok, "missing field %s", name)
		assert.Equal(t, want, f.Value, name)
		assert.Equal(t, 1.0, f.Confidence, name)
	}

	// all-filler personal number is absent, not empty
	_, ok := result.Fields[FieldPersonalNumber]
	assert.False(t, ok)
}

func TestDecodeFailedChecksumDegradesNotDrops(t *testing.T) {
	d := NewDecoder(logger.NewTestLogger())

	// corrupt the birth date check digit ('1' -> '2')
	corrupted := specimenLine2[:19] + "2" + specimenLine2[20:]
	result, found, err := d.Decode(zoneTokens(specimenLine1, corrupted))
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, result.Valid)

	birth := result.Fields[FieldBirthDate]
	assert.Equal(t, "06/08/1969", birth.Value)
	// own check failed and the composite failed with it
	assert.InDelta(t, 0.25, birth.Confidence, 1e-9)

	// fields with intact checks only pay the composite penalty
	number := result.Fields[FieldDocumentNumber]
	assert.Equal(t, "L898902C", number.Value)
	assert.InDelta(t, 0.5, number.Confidence, 1e-9)
}

func TestDecodeRepairsConfusablesInDates(t *testing.T) {
	d := NewDecoder(logger.NewTestLogger())

	// 'O' for '0' and 'I' for '1' inside the birth date group
	misread := specimenLine2[:13] + "69O8O6" + specimenLine2[19:]
	result, found, err := d.Decode(zoneTokens(specimenLine1, misread))
	require.NoError(t, err)
	require.True(t, found)

	birth := result.Fields[FieldBirthDate]
	assert.Equal(t, "06/08/1969", birth.Value)
	assert.Equal(t, 1.0, birth.Confidence)

	// the composite check must see the repaired group too, or every field
	// would pay for a misread the group check already absorbed
	assert.True(t, result.Valid)
	assert.Equal(t, 1.0, result.Fields[FieldDocumentNumber].Confidence)
}

func TestDecodeTD1(t *testing.T) {
	// synthetic TD1 with consistent check digits
	docNum := "D23145890"
	birth, expiry := "740812", "120415"
	l1 := "I<UTO" + docNum + digit(CheckDigit(docNum)) + strings.Repeat("<", 15)
	l2body := birth + digit(CheckDigit(birth)) + "F" + expiry + digit(CheckDigit(expiry)) + "UTO" + strings.Repeat("<", 11)
	composite := l1[5:30] + l2body[0:7] + l2body[8:15] + l2body[18:29]
	l2 := l2body + digit(CheckDigit(composite))
	l3 := "ERIKSSON<<ANNA<MARIA" + strings.Repeat("<", 10)

	require.Len(t, l1, 30)
	require.Len(t, l2, 30)
	require.Len(t, l3, 30)

	d := NewDecoder(logger.NewTestLogger())
	result, found, err := d.Decode(zoneTokens(l1, l2, l3))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "TD1", result.Format)
	assert.True(t, result.Valid)

	assert.Equal(t, "D23145890", result.Fields[FieldDocumentNumber].Value)
	assert.Equal(t, "12/08/1974", result.Fields[FieldBirthDate].Value)
	assert.Equal(t, "15/04/2012", result.Fields[FieldExpiryDate].Value)
	assert.Equal(t, "Female", result.Fields[FieldSex].Value)
	assert.Equal(t, "ERIKSSON", result.Fields[FieldSurname].Value)
	assert.Equal(t, "ANNA MARIA", result.Fields[FieldGivenNames].Value)
}

func TestDecodeNoZone(t *testing.T) {
	d := NewDecoder(logger.NewTestLogger())

	tokens := []models.OcrToken{
		{Text: "Invoice", Page: 0, Line: 1, Confidence: 0.9},
		{Text: "Total", Page: 0, Line: 2, Confidence: 0.9},
	}
	result, found, err := d.Decode(tokens)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, result)
}

func TestLocateJoinsSplitTokens(t *testing.T) {
	// OCR often splits a zone line at filler runs
	d := NewDecoder(logger.NewTestLogger())
	tokens := []models.OcrToken{
		{Text: specimenLine1[:20], Box: image.Rect(0, 500, 200, 516), Page: 0, Line: 30, Confidence: 0.9},
		{Text: specimenLine1[20:], Box: image.Rect(200, 500, 440, 516), Page: 0, Line: 30, Confidence: 0.9},
		{Text: specimenLine2, Box: image.Rect(0, 520, 440, 536), Page: 0, Line: 31, Confidence: 0.9},
	}
	result, found, err := d.Decode(tokens)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ERIKSSON", result.Fields[FieldSurname].Value)
}

func TestFormatDateCenturyRule(t *testing.T) {
	assert.Equal(t, "01/02/2003", formatDate("030201"))
	assert.Equal(t, "31/12/1999", formatDate("991231"))
	assert.Equal(t, "15/06/2050", formatDate("500615"))
	assert.Equal(t, "15/06/1951", formatDate("510615"))
}

func digit(n int) string {
	return string(rune('0' + n))
}
