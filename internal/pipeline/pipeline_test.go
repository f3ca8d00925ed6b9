package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-extractor/config"
	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/internal/ocr"
	"github.com/feichai0017/doc-extractor/internal/preprocess"
	"github.com/feichai0017/doc-extractor/internal/registry"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

// fakeEngine returns canned tokens without touching tesseract.
type fakeEngine struct {
	tokens []models.OcrToken
	calls  int32
	block  bool
}

func (f *fakeEngine) Recognize(ctx context.Context, page models.PageImage, hint ocr.Hint) ([]models.OcrToken, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.tokens, nil
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Close() error { return nil }

func testConfig() *config.PipelineConfig {
	return &config.PipelineConfig{
		PageFanout:       2,
		DocumentTimeout:  5 * time.Second,
		ConfidencePolicy: "mean",
	}
}

func newTestPipeline(engine ocr.Engine) *Pipeline {
	log := logger.NewTestLogger()
	return New(registry.Default(), preprocess.NewPreprocessor(log, 0), engine, testConfig(), log)
}

func pagePNG(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, imaging.New(800, 600, color.White)))
	return buf.Bytes()
}

func tok(text string, line, x int) models.OcrToken {
	return models.OcrToken{
		Text:       text,
		Box:        image.Rect(x, line*20, x+10*len(text), line*20+16),
		Confidence: 0.9,
		Page:       0,
		Line:       line,
	}
}

func lineTokens(line int, words ...string) []models.OcrToken {
	toks := make([]models.OcrToken, 0, len(words))
	x := 0
	for _, w := range words {
		toks = append(toks, tok(w, line, x))
		x += 10*len(w) + 10
	}
	return toks
}

func invoiceTokens() []models.OcrToken {
	var toks []models.OcrToken
	toks = append(toks, lineTokens(0, "ACME", "Trading", "LLC")...)
	toks = append(toks, lineTokens(1, "TAX", "INVOICE")...)
	toks = append(toks, lineTokens(2, "Invoice", "No", ":", "INV-1001")...)
	toks = append(toks, lineTokens(3, "Invoice", "Date", ":", "15/03/2026")...)
	toks = append(toks, lineTokens(4, "Total", ":", "1,250.50")...)
	return toks
}

func TestRunInvoiceDone(t *testing.T) {
	pl := newTestPipeline(&fakeEngine{tokens: invoiceTokens()})

	record := pl.Run(context.Background(), Request{
		DocumentID: "doc-1",
		TypeKey:    "invoice",
		Data:       pagePNG(t),
		Ext:        ".png",
	})

	assert.Equal(t, models.StatusDone, record.Status)
	assert.Empty(t, record.ErrorMessage)
	assert.False(t, record.FinishedAt.IsZero())

	number := record.Field("invoice_number")
	require.NotNil(t, number)
	require.NotNil(t, number.Value)
	assert.Equal(t, "INV-1001", *number.Value)

	date := record.Field("invoice_date")
	require.NotNil(t, date.Value)
	assert.Equal(t, "15/03/2026", *date.Value)

	total := record.Field("total_amount")
	require.NotNil(t, total.Value)
	assert.Equal(t, "1250.5", *total.Value)

	supplier := record.Field("supplier_name")
	require.NotNil(t, supplier.Value)
	assert.Equal(t, "ACME Trading LLC", *supplier.Value)

	assert.Greater(t, record.Confidence, 0.0)
	assert.LessOrEqual(t, record.Confidence, 1.0)
}

func TestRunClassifiesWhenTypeOmitted(t *testing.T) {
	pl := newTestPipeline(&fakeEngine{tokens: invoiceTokens()})

	record := pl.Run(context.Background(), Request{
		DocumentID: "doc-2",
		Data:       pagePNG(t),
		Ext:        ".png",
	})

	assert.Equal(t, "invoice", record.TypeKey)
	assert.Equal(t, models.StatusDone, record.Status)
}

func TestRunPartialWhenRequiredFieldMissing(t *testing.T) {
	// no total line: total_amount is required for invoices
	var toks []models.OcrToken
	toks = append(toks, lineTokens(0, "ACME", "Trading", "LLC")...)
	toks = append(toks, lineTokens(1, "Invoice", "No", ":", "INV-1001")...)
	toks = append(toks, lineTokens(2, "Invoice", "Date", ":", "15/03/2026")...)
	pl := newTestPipeline(&fakeEngine{tokens: toks})

	record := pl.Run(context.Background(), Request{
		DocumentID: "doc-3",
		TypeKey:    "invoice",
		Data:       pagePNG(t),
		Ext:        ".png",
	})

	assert.Equal(t, models.StatusPartial, record.Status)
	total := record.Field("total_amount")
	require.NotNil(t, total)
	assert.Nil(t, total.Value)
	assert.Zero(t, total.Confidence)
}

func TestRunUnknownTypeFailsBeforeOCR(t *testing.T) {
	engine := &fakeEngine{tokens: invoiceTokens()}
	pl := newTestPipeline(engine)

	record := pl.Run(context.Background(), Request{
		DocumentID: "doc-4",
		TypeKey:    "drivers_license",
		Data:       pagePNG(t),
		Ext:        ".png",
	})

	assert.Equal(t, models.StatusFailed, record.Status)
	assert.Contains(t, record.ErrorMessage, "unknown document type")
	assert.Zero(t, atomic.LoadInt32(&engine.calls))
}

func TestRunUnsupportedFormatFailsBeforeOCR(t *testing.T) {
	engine := &fakeEngine{tokens: invoiceTokens()}
	pl := newTestPipeline(engine)

	record := pl.Run(context.Background(), Request{
		DocumentID: "doc-5",
		TypeKey:    "invoice",
		Data:       []byte("word document bytes"),
		Ext:        ".docx",
	})

	assert.Equal(t, models.StatusFailed, record.Status)
	assert.Contains(t, record.ErrorMessage, "unsupported input format")
	assert.Zero(t, atomic.LoadInt32(&engine.calls))
}

func TestRunCorruptInputFails(t *testing.T) {
	pl := newTestPipeline(&fakeEngine{})

	record := pl.Run(context.Background(), Request{
		DocumentID: "doc-6",
		TypeKey:    "invoice",
		Data:       []byte("not an image"),
		Ext:        ".png",
	})

	assert.Equal(t, models.StatusFailed, record.Status)
	assert.Contains(t, record.ErrorMessage, "corrupt input")
}

func TestRunTimeoutFails(t *testing.T) {
	log := logger.NewTestLogger()
	cfg := testConfig()
	cfg.DocumentTimeout = 50 * time.Millisecond
	pl := New(registry.Default(), preprocess.NewPreprocessor(log, 0), &fakeEngine{block: true}, cfg, log)

	record := pl.Run(context.Background(), Request{
		DocumentID: "doc-7",
		TypeKey:    "invoice",
		Data:       pagePNG(t),
		Ext:        ".png",
	})

	assert.Equal(t, models.StatusFailed, record.Status)
	assert.Contains(t, record.ErrorMessage, "timed out")
}

func TestRunBlankPagePartial(t *testing.T) {
	// engine sees the page but finds nothing
	pl := newTestPipeline(&fakeEngine{})

	record := pl.Run(context.Background(), Request{
		DocumentID: "doc-8",
		TypeKey:    "invoice",
		Data:       pagePNG(t),
		Ext:        ".png",
	})

	assert.Equal(t, models.StatusPartial, record.Status)
	assert.Zero(t, record.Confidence)
	// one slot per schema field, all misses
	schema, err := registry.Default().Lookup("invoice")
	require.NoError(t, err)
	assert.Len(t, record.Fields, len(schema.Fields))
}

func TestRunPassportMRZ(t *testing.T) {
	line1 := "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<"
	line2 := "L898902C<3UTO6908061F9406236<<<<<<<<<<<<<<02"
	toks := []models.OcrToken{
		{Text: line1, Box: image.Rect(0, 500, 440, 516), Confidence: 0.95, Page: 0, Line: 30},
		{Text: line2, Box: image.Rect(0, 520, 440, 536), Confidence: 0.95, Page: 0, Line: 31},
	}
	pl := newTestPipeline(&fakeEngine{tokens: toks})

	record := pl.Run(context.Background(), Request{
		DocumentID: "doc-9",
		TypeKey:    "passport",
		Data:       pagePNG(t),
		Ext:        ".png",
	})

	assert.Equal(t, models.StatusDone, record.Status)

	surname := record.Field("surname")
	require.NotNil(t, surname)
	require.NotNil(t, surname.Value)
	assert.Equal(t, "ERIKSSON", *surname.Value)
	assert.Equal(t, "mrz", surname.Source)

	number := record.Field("passport_number")
	require.NotNil(t, number.Value)
	assert.Equal(t, "L898902C", *number.Value)

	birth := record.Field("date_of_birth")
	require.NotNil(t, birth.Value)
	assert.Equal(t, "06/08/1969", *birth.Value)

	gender := record.Field("gender")
	require.NotNil(t, gender.Value)
	assert.Equal(t, "Female", *gender.Value)
}
