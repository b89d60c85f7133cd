package language

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"github.com/ternarybob/arbor"
)

// MinDetectableLength is the shortest text the detector will classify.
// Anything shorter defaults to English with zero confidence.
const MinDetectableLength = 20

// ContentConfidenceFloor is the minimum content confidence before the
// detector consults the title as well
const ContentConfidenceFloor = 0.8

// apacCodes marks languages routed to APAC-market handling downstream
var apacCodes = map[string]struct{}{
	"zh": {}, "ja": {}, "ko": {}, "th": {}, "vi": {}, "id": {}, "ms": {}, "hi": {},
}

// Detection is the outcome of classifying a document's language
type Detection struct {
	Language   string  `json:"language"`      // normalized ISO 639-1 code
	Confidence float64 `json:"confidence"`    // [0,1]
	Detected   string  `json:"detected_code"` // raw detector code before normalization
	IsAPAC     bool    `json:"is_apac"`
}

// Detector classifies document language using statistical n-gram models.
// Model loading is deferred until first use; building the detector is
// expensive so there is one per process.
type Detector struct {
	logger arbor.ILogger

	once     sync.Once
	detector lingua.LanguageDetector
}

func NewDetector(logger arbor.ILogger) *Detector {
	return &Detector{logger: logger}
}

// Candidate languages cover the markets the source registry accepts.
// A narrow set keeps model memory bounded and improves accuracy on
// short headlines.
func (d *Detector) init() {
	d.once.Do(func() {
		d.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English,
				lingua.Spanish,
				lingua.French,
				lingua.German,
				lingua.Portuguese,
				lingua.Italian,
				lingua.Dutch,
				lingua.Russian,
				lingua.Arabic,
				lingua.Chinese,
				lingua.Japanese,
				lingua.Korean,
				lingua.Thai,
				lingua.Vietnamese,
				lingua.Indonesian,
				lingua.Malay,
				lingua.Hindi,
			).
			Build()
	})
}

// Detect classifies a single text. Text below MinDetectableLength defaults
// to English with zero confidence rather than guessing off noise.
func (d *Detector) Detect(text string) Detection {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < MinDetectableLength {
		return Detection{Language: "en", Confidence: 0, Detected: "en"}
	}

	d.init()

	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return Detection{Language: "en", Confidence: 0, Detected: "en"}
	}

	code := strings.ToLower(lang.IsoCode639_1().String())
	confidence := d.detector.ComputeLanguageConfidence(text, lang)

	normalized := normalizeCode(code)
	_, isAPAC := apacCodes[normalized]
	return Detection{
		Language:   normalized,
		Confidence: confidence,
		Detected:   code,
		IsAPAC:     isAPAC,
	}
}

// DetectDocument classifies a document from its title and content. Content
// wins when the detector is confident about it; otherwise the title is
// classified on its own and the stronger detection wins, which helps short
// wire-style bodies under a long native-language headline.
func (d *Detector) DetectDocument(title, content string) Detection {
	fromContent := d.Detect(content)
	if fromContent.Confidence >= ContentConfidenceFloor {
		return fromContent
	}

	fromTitle := d.Detect(title)
	if fromTitle.Confidence > fromContent.Confidence {
		return fromTitle
	}
	return fromContent
}

// normalizeCode collapses regional variants to their base code
func normalizeCode(code string) string {
	if strings.HasPrefix(code, "zh") {
		return "zh"
	}
	return code
}

// IsAPACLanguage reports whether a normalized code is an APAC market language
func IsAPACLanguage(code string) bool {
	_, ok := apacCodes[normalizeCode(strings.ToLower(code))]
	return ok
}
