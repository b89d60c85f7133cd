package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxWordCount is the hard ceiling on document content length
const MaxWordCount = 20000

// MaxTitleLength is the hard ceiling on document title length
const MaxTitleLength = 500

// ImpactTier classifies an impact score into a discrete band
type ImpactTier string

const (
	TierPlatinum ImpactTier = "PLATINUM"
	TierGold     ImpactTier = "GOLD"
	TierSilver   ImpactTier = "SILVER"
	TierBronze   ImpactTier = "BRONZE"
	TierStandard ImpactTier = "STANDARD"
)

// TierForScore maps an impact score in [0,100] to its tier
func TierForScore(score float64) ImpactTier {
	switch {
	case score >= 90:
		return TierPlatinum
	case score >= 75:
		return TierGold
	case score >= 50:
		return TierSilver
	case score >= 25:
		return TierBronze
	default:
		return TierStandard
	}
}

// Document is the canonical immutable news record. New versions are new
// records linking to their predecessor via PreviousVersionID; stored records
// are never mutated.
type Document struct {
	ID                   string                 `json:"id" validate:"required"`
	Version              int                    `json:"version" validate:"gte=1"`
	PreviousVersionID    string                 `json:"previous_version_id,omitempty"`
	SourceID             string                 `json:"source_id" validate:"required"`
	GroupID              string                 `json:"group_id" validate:"required"`
	CreatedAt            time.Time              `json:"created_at"`
	Language             string                 `json:"language"`
	LanguageAutoDetected bool                   `json:"language_auto_detected"`
	Title                string                 `json:"title" validate:"required,max=500"`
	Content              string                 `json:"content" validate:"required"`
	WordCount            int                    `json:"word_count"`
	ContentHash          string                 `json:"content_hash"`
	StoryFingerprint     string                 `json:"story_fingerprint,omitempty"`
	DuplicateOf          string                 `json:"duplicate_of,omitempty"`
	DuplicateScore       float64                `json:"duplicate_score,omitempty"`
	ImpactScore          *float64               `json:"impact_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	ImpactTier           ImpactTier             `json:"impact_tier,omitempty"`
	Themes               []string               `json:"themes,omitempty"`
	Regions              []string               `json:"regions,omitempty"`
	Sectors              []string               `json:"sectors,omitempty"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks the structural invariants of a document record. Tag rules
// cover the per-field checks; the cross-field version, whitespace, word
// count, and duplicate pairing invariants stay explicit.
func (d *Document) Validate() error {
	if err := validateStruct(d); err != nil {
		return err
	}
	if d.Version > 1 && d.PreviousVersionID == "" {
		return fmt.Errorf("%w: previous_version_id is required for version %d", ErrValidation, d.Version)
	}
	if d.Version == 1 && d.PreviousVersionID != "" {
		return fmt.Errorf("%w: version 1 must not have a previous_version_id", ErrValidation)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title must not be blank", ErrValidation)
	}
	if strings.TrimSpace(d.Content) == "" {
		return fmt.Errorf("%w: content must not be empty", ErrValidation)
	}
	if d.WordCount > MaxWordCount {
		return fmt.Errorf("%w: %d words exceeds limit of %d", ErrWordCountExceeded, d.WordCount, MaxWordCount)
	}
	if d.DuplicateOf != "" && (d.DuplicateScore <= 0 || d.DuplicateScore > 1) {
		return fmt.Errorf("%w: duplicate_score must be in (0,1] when duplicate_of is set", ErrValidation)
	}
	if d.DuplicateOf == "" && d.DuplicateScore != 0 {
		return fmt.Errorf("%w: duplicate_score requires duplicate_of", ErrValidation)
	}
	return nil
}

// CountWords returns the whitespace-delimited word count of content
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// normalizeForHash lowercases and collapses runs of whitespace so that
// formatting-only differences do not defeat exact duplicate detection
func normalizeForHash(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// ComputeContentHash returns the exact-duplicate key for a title+content pair
func ComputeContentHash(title, content string) string {
	sum := sha256.Sum256([]byte(normalizeForHash(title + " " + content)))
	return hex.EncodeToString(sum[:])
}

// ComputeStoryFingerprint returns the near-duplicate key for a story:
// a digest of the sorted ticker set, the event type, and the calendar
// quarter. Republications of the same event within a quarter collide;
// the same tickers+event in a later quarter do not.
func ComputeStoryFingerprint(tickers []string, eventType string, createdAt time.Time) string {
	if len(tickers) == 0 || eventType == "" {
		return ""
	}
	sorted := make([]string, len(tickers))
	for i, t := range tickers {
		sorted[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	sort.Strings(sorted)

	quarter := (int(createdAt.UTC().Month())-1)/3 + 1
	bucket := fmt.Sprintf("%d-Q%d", createdAt.UTC().Year(), quarter)

	key := strings.Join(sorted, ",") + "|" + strings.ToUpper(eventType) + "|" + bucket
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
