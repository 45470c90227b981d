// SPDX-License-Identifier: MIT

package audiometry

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"soundcheck/internal/classifier"
	"soundcheck/internal/log"
)

// heardLevel is the dB HL credited to a frequency the subject heard.
const heardLevel = 15.0

// notHeardLevels maps a missed frequency to its estimated threshold in
// dB HL. Higher frequencies carry higher estimates, so high-frequency
// loss pushes the average harder. Calibrated against the severity
// bands in frequencies.go.
var notHeardLevels = map[int]float64{
	500:  50,
	1000: 55,
	2000: 60,
	3000: 70,
	4000: 75,
	8000: 80,
}

// screeningNote closes every recommendation list.
const screeningNote = "Note: This is a screening test, not a diagnostic evaluation."

// Result is the outcome of scoring one completed session.
type Result struct {
	Category          Category
	Confidence        float64
	PTA               float64
	Thresholds        map[int]float64
	FrequenciesTested []int
	FrequenciesHeard  []int
	Risk              Risk
	Recommendations   []string
}

// Scorer classifies completed sessions against a loaded model. The
// zero model (nil) is a permitted state: the rest of the service stays
// up while every scoring call fails with ErrModelUnavailable.
type Scorer struct {
	model *classifier.Model
}

// NewScorer wraps the classifier parameters. m may be nil when the
// artifact failed to load.
func NewScorer(m *classifier.Model) *Scorer {
	return &Scorer{model: m}
}

// Ready reports whether scoring is available.
func (sc *Scorer) Ready() bool { return sc.model != nil }

// Model exposes the loaded parameters for the info endpoint. Returns
// nil when no model is loaded.
func (sc *Scorer) Model() *classifier.Model { return sc.model }

// Score derives thresholds and the pure tone average from the response
// pattern, runs the classifier, and assembles the advisory result.
// Identical sessions always produce identical results.
func (sc *Scorer) Score(s *Session) (*Result, error) {
	if sc.model == nil {
		return nil, classifier.ErrModelUnavailable
	}

	profile, responses, err := s.Results()
	if err != nil {
		return nil, err
	}

	thresholds := make(map[int]float64, len(testFrequencies))
	heard := make([]int, 0, len(testFrequencies))
	sum := 0.0
	for _, f := range testFrequencies {
		level := heardLevel
		if !responses[f] {
			level = notHeardLevels[f]
		} else {
			heard = append(heard, f)
		}
		thresholds[f] = level
		sum += level
	}
	pta := sum / float64(len(testFrequencies))

	features := make([]float64, 0, len(testFrequencies)+2)
	for _, f := range testFrequencies {
		if responses[f] {
			features = append(features, 1)
		} else {
			features = append(features, 0)
		}
	}
	features = append(features, float64(profile.Age), float64(profile.Gender))

	label, probs, err := sc.model.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("scoring session: %w", err)
	}
	category, err := ParseCategory(label)
	if err != nil {
		return nil, fmt.Errorf("scoring session: %w", err)
	}

	// The classifier is authoritative; the PTA band is supporting
	// evidence. Disagreement is worth a log line, not an error.
	if band := BandFor(pta); band != category {
		log.Warnf("classifier category %s disagrees with PTA band %s (pta=%.1f dB HL)",
			category, band, pta)
	}

	return &Result{
		Category:          category,
		Confidence:        floats.Max(probs),
		PTA:               pta,
		Thresholds:        thresholds,
		FrequenciesTested: TestFrequencies(),
		FrequenciesHeard:  heard,
		Risk:              RiskFor(category),
		Recommendations:   Recommendations(category),
	}, nil
}

// Recommendations returns the fixed advisory list for a severity
// class, always ending with the screening disclaimer.
func Recommendations(c Category) []string {
	var recs []string
	switch c {
	case Normal:
		recs = []string{
			"Your hearing appears to be within normal limits.",
			"Continue to protect your hearing from loud noises.",
			"Consider annual hearing checks if you're over 50.",
			"Use ear protection in noisy environments.",
		}
	case Mild:
		recs = []string{
			"You may have mild hearing loss.",
			"Consider consulting an audiologist for a comprehensive evaluation.",
			"You might benefit from hearing aids in certain situations.",
			"Protect your hearing from further damage.",
		}
	case Moderate:
		recs = []string{
			"You appear to have moderate hearing loss.",
			"We strongly recommend seeing an audiologist.",
			"Hearing aids would likely be beneficial.",
			"Consider communication strategies and assistive devices.",
		}
	case Severe, Profound:
		recs = []string{
			"You appear to have significant hearing loss.",
			"Please consult an audiologist or ENT specialist immediately.",
			"You may benefit from hearing aids or cochlear implants.",
			"Consider learning sign language or other communication methods.",
		}
	}
	return append(recs, screeningNote)
}
