package biometric

import (
	"bytes"
	"context"
	"fmt"

	"smartattendance/internal/logging"
	"smartattendance/internal/metrics"
)

// DefaultThreshold is the minimum cosine similarity accepted as a face match.
const DefaultThreshold = 0.65

// Method is the modality that produced a match.
type Method string

const (
	MethodFace        Method = "face"
	MethodFingerprint Method = "fingerprint"
)

// TemplateStore lists enrolled templates in a stable order (enrollment order).
type TemplateStore interface {
	FaceTemplates(ctx context.Context) ([]Template, error)
	FingerprintTemplates(ctx context.Context) ([]Template, error)
}

// MatchResult is the outcome of a match. When Matched is false the other
// fields except Enrolled, Candidates and Score are zero; Score then holds the
// best rejected face score, if any.
type MatchResult struct {
	Matched    bool
	Owner      Owner
	Method     Method
	Score      float64
	TemplateID int64
	// Enrolled counts the templates loaded for the modality, Candidates
	// only those that could be compared.
	Enrolled   int
	Candidates int
}

// Matcher runs exact linear-scan matching against a TemplateStore.
type Matcher struct {
	store     TemplateStore
	threshold float64
	log       logging.Logger
}

// NewMatcher builds a matcher. A non-positive threshold selects DefaultThreshold.
func NewMatcher(store TemplateStore, threshold float64, log logging.Logger) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Matcher{store: store, threshold: threshold, log: log.With("component", "matcher")}
}

// Threshold returns the acceptance threshold in use.
func (m *Matcher) Threshold() float64 { return m.threshold }

// MatchFace returns the enrolled face with the highest similarity to probe,
// provided it reaches the threshold. Ties keep the first template seen.
func (m *Matcher) MatchFace(ctx context.Context, probe FaceVector) (MatchResult, error) {
	if len(probe) == 0 {
		return MatchResult{}, nil
	}

	templates, err := m.store.FaceTemplates(ctx)
	if err != nil {
		return MatchResult{}, fmt.Errorf("load face templates: %w", err)
	}

	var (
		best      *Template
		bestScore = -1.0
		scanned   int
	)
	for i := range templates {
		tpl := &templates[i]
		stored, err := DecodeFaceVector(tpl.Face)
		if err != nil {
			m.log.Warn(ctx, "face template skipped", "template_id", tpl.ID, "err", err)
			continue
		}
		score, err := Cosine(probe, stored)
		if err != nil {
			m.log.Warn(ctx, "face template skipped", "template_id", tpl.ID, "err", err)
			continue
		}
		scanned++
		if score > bestScore {
			best, bestScore = tpl, score
		}
	}
	metrics.CandidatesScanned.Observe(float64(scanned))

	if best == nil {
		observe(MethodFace, false)
		return MatchResult{Enrolled: len(templates), Candidates: scanned}, nil
	}
	if bestScore < m.threshold {
		observe(MethodFace, false)
		return MatchResult{Enrolled: len(templates), Candidates: scanned, Score: bestScore}, nil
	}
	observe(MethodFace, true)
	return MatchResult{
		Matched:    true,
		Owner:      best.Owner,
		Method:     MethodFace,
		Score:      bestScore,
		TemplateID: best.ID,
		Enrolled:   len(templates),
		Candidates: scanned,
	}, nil
}

// MatchFingerprint returns the first template whose blob equals probe byte for byte.
// Equality stands in for a real minutiae matcher.
func (m *Matcher) MatchFingerprint(ctx context.Context, probe []byte) (MatchResult, error) {
	if len(probe) == 0 {
		return MatchResult{}, nil
	}

	templates, err := m.store.FingerprintTemplates(ctx)
	if err != nil {
		return MatchResult{}, fmt.Errorf("load fingerprint templates: %w", err)
	}

	for i, tpl := range templates {
		if bytes.Equal(tpl.Fingerprint, probe) {
			observe(MethodFingerprint, true)
			return MatchResult{
				Matched:    true,
				Owner:      tpl.Owner,
				Method:     MethodFingerprint,
				Score:      1,
				TemplateID: tpl.ID,
				Enrolled:   len(templates),
				Candidates: i + 1,
			}, nil
		}
	}
	observe(MethodFingerprint, false)
	return MatchResult{Enrolled: len(templates), Candidates: len(templates)}, nil
}

func observe(method Method, matched bool) {
	result := "no_match"
	if matched {
		result = "match"
	}
	metrics.MatchOutcomes.WithLabelValues(string(method), result).Inc()
}

// Identify tries the face probe first and falls back to the fingerprint probe.
func (m *Matcher) Identify(ctx context.Context, face FaceVector, fingerprint []byte) (MatchResult, error) {
	var res MatchResult
	if len(face) > 0 {
		var err error
		res, err = m.MatchFace(ctx, face)
		if err != nil || res.Matched {
			return res, err
		}
	}
	if len(fingerprint) > 0 {
		return m.MatchFingerprint(ctx, fingerprint)
	}
	return res, nil
}
