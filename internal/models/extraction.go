package models

import (
	"image"
	"time"
)

// Status 文档处理状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusPartial    Status = "partial"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusPartial || s == StatusFailed
}

// CanTransition enforces pending -> processing -> {done|partial|failed}.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusDone || next == StatusPartial || next == StatusFailed
	default:
		return false
	}
}

// Script is the writing system detected for a token.
type Script string

const (
	ScriptLatin   Script = "latin"
	ScriptArabic  Script = "arabic"
	ScriptDigit   Script = "digit"
	ScriptUnknown Script = "unknown"
)

// PageImage 单页位图
// Produced by the preprocessor, never mutated afterwards.
type PageImage struct {
	Index     int         // 0-based, source order
	Image     image.Image
	PageCount int      // page count of the parent document
	Warnings  []string // quality findings, informational only
}

// OcrToken is one recognized word with page-relative geometry.
// Confidence is normalized to [0,1].
type OcrToken struct {
	Text       string          `json:"text"`
	Box        image.Rectangle `json:"box"`
	Confidence float64         `json:"confidence"`
	Script     Script          `json:"script"`
	Page       int             `json:"page"`
	Line       int             `json:"line"` // engine reading-order line on the page
}

// ExtractedField 单个抽取结果
// Value nil means the field was not found; that is not an error.
type ExtractedField struct {
	Name       string  `json:"fieldName"`
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page"`
	Evidence   string  `json:"evidence,omitempty"` // raw matched text, for audit
	Source     string  `json:"source,omitempty"`   // mrz, keyword, pattern, offset
}

// ExtractionRecord is the full result of one processing run.
type ExtractionRecord struct {
	DocumentID   string           `json:"documentId"`
	TypeKey      string           `json:"documentType"`
	Fields       []ExtractedField `json:"fields"`
	Confidence   float64          `json:"overallConfidence"`
	Status       Status           `json:"status"`
	ErrorMessage string           `json:"error,omitempty"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt,omitempty"`
}

// NewExtractionRecord creates a pending record for a fresh run.
func NewExtractionRecord(documentID, typeKey string) *ExtractionRecord {
	return &ExtractionRecord{
		DocumentID: documentID,
		TypeKey:    typeKey,
		Status:     StatusPending,
		StartedAt:  time.Now(),
	}
}

// Transition moves the record to the next status if the state machine allows
// it. Illegal transitions are ignored so a terminal record never regresses.
func (r *ExtractionRecord) Transition(next Status) bool {
	if !r.Status.CanTransition(next) {
		return false
	}
	r.Status = next
	if next.Terminal() {
		r.FinishedAt = time.Now()
	}
	return true
}

// Field returns the extracted field with the given name, or nil.
func (r *ExtractionRecord) Field(name string) *ExtractedField {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			return &r.Fields[i]
		}
	}
	return nil
}

// StrPtr is a convenience for building nullable field values.
func StrPtr(s string) *string { return &s }
