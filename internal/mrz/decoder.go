package mrz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

// Machine readable zone decoding for ICAO 9303 travel documents.
// TD3 is the passport booklet format (2 lines of 44), TD1 the credit-card
// format used by identity cards (3 lines of 30).

const (
	td3LineLen = 44
	td1LineLen = 30

	// minimum fraction of restricted-alphabet characters for a candidate line
	alphabetRatio = 0.9
)

// Field names produced by Decode. Schemas bind to these.
const (
	FieldDocumentCode   = "document_code"
	FieldIssuingState   = "issuing_state"
	FieldSurname        = "surname"
	FieldGivenNames     = "given_names"
	FieldDocumentNumber = "document_number"
	FieldNationality    = "nationality"
	FieldBirthDate      = "birth_date"
	FieldSex            = "sex"
	FieldExpiryDate     = "expiry_date"
	FieldPersonalNumber = "personal_number"
)

// Field is one decoded value. Confidence starts at 1 and is halved for every
// failed check digit covering the value; a bad checksum degrades, it never
// discards.
type Field struct {
	Value      string
	Confidence float64
}

// Result is the decoded zone.
type Result struct {
	Format string // "TD3" or "TD1"
	Page   int
	Fields map[string]Field
	Valid  bool // every check digit, composite included, passed
}

// Decoder locates and decodes a machine readable zone in OCR output.
type Decoder struct {
	logger logger.Logger
}

func NewDecoder(log logger.Logger) *Decoder {
	return &Decoder{logger: log}
}

// Decode scans the token stream for a zone and decodes it. The second return
// is false when no zone is present; that is not an error.
func (d *Decoder) Decode(tokens []models.OcrToken) (*Result, bool, error) {
	lines, page, ok := locate(tokens)
	if !ok {
		return nil, false, nil
	}

	var result *Result
	var err error
	switch len(lines) {
	case 2:
		result, err = decodeTD3(lines)
	case 3:
		result, err = decodeTD1(lines)
	default:
		return nil, false, fmt.Errorf("unexpected zone shape: %d lines", len(lines))
	}
	if err != nil {
		return nil, false, err
	}
	result.Page = page

	d.logger.Info("machine readable zone decoded",
		logger.String("format", result.Format),
		logger.Int("page", page),
		logger.Bool("valid", result.Valid),
	)
	return result, true, nil
}

// locate groups tokens into physical lines and looks for a run of zone lines:
// two consecutive 44-character lines or three consecutive 30-character lines,
// dominated by the restricted alphabet and containing filler.
func locate(tokens []models.OcrToken) ([]string, int, bool) {
	type lineKey struct{ page, line int }
	grouped := make(map[lineKey][]models.OcrToken)
	for _, tok := range tokens {
		k := lineKey{tok.Page, tok.Line}
		grouped[k] = append(grouped[k], tok)
	}

	keys := make([]lineKey, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].page != keys[j].page {
			return keys[i].page < keys[j].page
		}
		return keys[i].line < keys[j].line
	})

	type candidate struct {
		page, line int
		text       string
	}
	var candidates []candidate
	for _, k := range keys {
		toks := grouped[k]
		sort.Slice(toks, func(i, j int) bool { return toks[i].Box.Min.X < toks[j].Box.Min.X })
		var b strings.Builder
		for _, t := range toks {
			b.WriteString(t.Text)
		}
		text := normalizeLine(b.String())
		if isZoneLine(text) {
			candidates = append(candidates, candidate{k.page, k.line, text})
		}
	}

	// TD3 first: a passport page never carries both formats.
	for i := 0; i+1 < len(candidates); i++ {
		a, b := candidates[i], candidates[i+1]
		if a.page == b.page && len(a.text) == td3LineLen && len(b.text) == td3LineLen {
			return []string{a.text, b.text}, a.page, true
		}
	}
	for i := 0; i+2 < len(candidates); i++ {
		a, b, c := candidates[i], candidates[i+1], candidates[i+2]
		if a.page == b.page && b.page == c.page &&
			len(a.text) == td1LineLen && len(b.text) == td1LineLen && len(c.text) == td1LineLen {
			return []string{a.text, b.text, c.text}, a.page, true
		}
	}
	return nil, 0, false
}

// normalizeLine uppercases and strips characters OCR commonly inserts into a
// zone line. The double angle quote is a frequent misread of the filler pair.
func normalizeLine(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "«", "<<")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

func isZoneLine(s string) bool {
	if len(s) != td3LineLen && len(s) != td1LineLen {
		return false
	}
	inAlphabet := 0
	fillers := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '<' {
			fillers++
		}
		if c == '<' || (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') {
			inAlphabet++
		}
	}
	return fillers > 0 && float64(inAlphabet) >= alphabetRatio*float64(len(s))
}

func decodeTD3(lines []string) (*Result, error) {
	l1, l2 := lines[0], lines[1]

	fields := make(map[string]Field)
	valid := true

	fields[FieldDocumentCode] = Field{Value: trimFiller(l1[0:2]), Confidence: 1}
	fields[FieldIssuingState] = Field{Value: repairAlpha(trimFiller(l1[2:5])), Confidence: 1}
	surname, given := splitName(l1[5:44])
	fields[FieldSurname] = Field{Value: surname, Confidence: 1}
	fields[FieldGivenNames] = Field{Value: given, Confidence: 1}

	docNum := l2[0:9]
	birth := repairNumeric(l2[13:19])
	expiry := repairNumeric(l2[21:27])

	addChecked(fields, &valid, FieldDocumentNumber, docNum, l2[9], trimFiller)
	fields[FieldNationality] = Field{Value: repairAlpha(trimFiller(l2[10:13])), Confidence: 1}
	addChecked(fields, &valid, FieldBirthDate, birth, l2[19], formatDate)
	fields[FieldSex] = Field{Value: decodeSex(l2[20]), Confidence: 1}
	addChecked(fields, &valid, FieldExpiryDate, expiry, l2[27], formatDate)
	addChecked(fields, &valid, FieldPersonalNumber, l2[28:42], l2[42], trimFiller)

	// The composite spans the checked groups; it must see the same repaired
	// text the group checks saw, or a repaired misread would fail here.
	composite := docNum + l2[9:10] + birth + l2[19:20] + expiry + l2[27:43]
	if !checks(composite, l2[43]) {
		valid = false
		halveAll(fields)
	}

	return &Result{Format: "TD3", Fields: fields, Valid: valid}, nil
}

func decodeTD1(lines []string) (*Result, error) {
	l1, l2, l3 := lines[0], lines[1], lines[2]

	fields := make(map[string]Field)
	valid := true

	fields[FieldDocumentCode] = Field{Value: trimFiller(l1[0:2]), Confidence: 1}
	fields[FieldIssuingState] = Field{Value: repairAlpha(trimFiller(l1[2:5])), Confidence: 1}
	addChecked(fields, &valid, FieldDocumentNumber, l1[5:14], l1[14], trimFiller)

	birth := repairNumeric(l2[0:6])
	expiry := repairNumeric(l2[8:14])

	addChecked(fields, &valid, FieldBirthDate, birth, l2[6], formatDate)
	fields[FieldSex] = Field{Value: decodeSex(l2[7]), Confidence: 1}
	addChecked(fields, &valid, FieldExpiryDate, expiry, l2[14], formatDate)
	fields[FieldNationality] = Field{Value: repairAlpha(trimFiller(l2[15:18])), Confidence: 1}
	if opt := trimFiller(l2[18:29]); opt != "" {
		fields[FieldPersonalNumber] = Field{Value: opt, Confidence: 1}
	}

	surname, given := splitName(l3)
	fields[FieldSurname] = Field{Value: surname, Confidence: 1}
	fields[FieldGivenNames] = Field{Value: given, Confidence: 1}

	// repaired groups, same as in decodeTD3
	composite := l1[5:30] + birth + l2[6:7] + expiry + l2[14:15] + l2[18:29]
	if !checks(composite, l2[29]) {
		valid = false
		halveAll(fields)
	}

	return &Result{Format: "TD1", Fields: fields, Valid: valid}, nil
}

// addChecked decodes one checked group. Callers repair confusables before
// passing data in; a failing check digit halves the field confidence.
func addChecked(fields map[string]Field, valid *bool, name, data string, check byte, render func(string) string) {
	f := Field{Value: render(data), Confidence: 1}
	// An all-filler optional group may carry a filler in the check position.
	emptyOptional := check == '<' && trimFiller(data) == ""
	if !emptyOptional && !checks(data, check) {
		f.Confidence = 0.5
		*valid = false
	}
	if f.Value != "" || name != FieldPersonalNumber {
		fields[name] = f
	}
}

func halveAll(fields map[string]Field) {
	for name, f := range fields {
		f.Confidence /= 2
		fields[name] = f
	}
}

func splitName(s string) (surname, given string) {
	parts := strings.SplitN(s, "<<", 2)
	surname = nameText(parts[0])
	if len(parts) == 2 {
		given = nameText(parts[1])
	}
	return surname, given
}

func nameText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(repairAlpha(s), "<", " "))
}

func decodeSex(c byte) string {
	switch c {
	case 'M':
		return "Male"
	case 'F':
		return "Female"
	default:
		return ""
	}
}

func trimFiller(s string) string {
	return strings.Trim(s, "<")
}

// formatDate renders a YYMMDD group as DD/MM/YYYY. Two-digit years above 50
// belong to the previous century; travel documents do not reach that far
// back otherwise.
func formatDate(s string) string {
	if len(s) != 6 || strings.ContainsRune(s, '<') {
		return trimFiller(s)
	}
	yy, mm, dd := s[0:2], s[2:4], s[4:6]
	century := "20"
	if yy > "50" {
		century = "19"
	}
	return fmt.Sprintf("%s/%s/%s%s", dd, mm, century, yy)
}

// repairNumeric undoes the classic letter-for-digit misreads in groups that
// can only contain digits.
func repairNumeric(s string) string {
	r := strings.NewReplacer("O", "0", "Q", "0", "D", "0", "I", "1", "L", "1", "B", "8", "S", "5", "Z", "2")
	return r.Replace(s)
}

// repairAlpha is the inverse, for groups that can only contain letters.
func repairAlpha(s string) string {
	r := strings.NewReplacer("0", "O", "1", "I", "5", "S", "8", "B", "2", "Z")
	return r.Replace(s)
}
