package ocr

import (
	"unicode"

	"github.com/feichai0017/doc-extractor/internal/models"
)

// DetectScript classifies a token by its dominant character class. Mixed
// tokens resolve to the class with the most runes; pure punctuation is
// unknown.
func DetectScript(text string) models.Script {
	var latin, arabic, digit int
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			digit++
		case r >= 0x0600 && r <= 0x06FF, r >= 0x0750 && r <= 0x077F:
			arabic++
		case unicode.In(r, unicode.Latin):
			latin++
		}
	}

	max, script := 0, models.ScriptUnknown
	if digit > max {
		max, script = digit, models.ScriptDigit
	}
	if latin > max {
		max, script = latin, models.ScriptLatin
	}
	if arabic > max {
		script = models.ScriptArabic
	}
	return script
}
