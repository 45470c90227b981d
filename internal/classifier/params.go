// SPDX-License-Identifier: MIT

// Package classifier loads the trained hearing classifier artifact and
// runs inference. The artifact is produced offline by the training
// pipeline and consumed here as read-only data: standardization
// statistics, one weight row per class, and intercepts.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrModelUnavailable reports that the classifier parameters could not
// be loaded or failed schema validation. Scoring must not proceed
// without a valid model.
var ErrModelUnavailable = errors.New("classifier model unavailable")

// SupportedSchemaVersion is the artifact schema this build understands.
const SupportedSchemaVersion = 1

// Metrics carries training-time quality figures, surfaced on the model
// info endpoint.
type Metrics struct {
	Accuracy float64 `json:"accuracy"`
	NSamples int     `json:"n_samples"`
}

// Model is the immutable parameter set of a multinomial logistic
// classifier. A loaded Model is safe for concurrent use.
type Model struct {
	SchemaVersion int         `json:"schema_version"`
	ModelName     string      `json:"model_name"`
	TrainedAt     time.Time   `json:"trained_at"`
	FeatureNames  []string    `json:"feature_names"`
	ClassLabels   []string    `json:"class_labels"`
	FeatureMeans  []float64   `json:"feature_means"`
	FeatureScales []float64   `json:"feature_scales"`
	Weights       [][]float64 `json:"weights"`
	Intercepts    []float64   `json:"intercepts"`
	Metrics       Metrics     `json:"metrics"`
}

// Load reads and validates a classifier artifact. Every failure mode
// wraps ErrModelUnavailable so callers can treat "no usable model" as a
// single condition.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrModelUnavailable, path, err)
	}

	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrModelUnavailable, path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, path, err)
	}
	return &m, nil
}

// NumFeatures returns the expected feature vector length.
func (m *Model) NumFeatures() int { return len(m.FeatureNames) }

// NumClasses returns the number of output classes.
func (m *Model) NumClasses() int { return len(m.ClassLabels) }

func (m *Model) validate() error {
	if m.SchemaVersion != SupportedSchemaVersion {
		return fmt.Errorf("schema version %d not supported (want %d)", m.SchemaVersion, SupportedSchemaVersion)
	}
	n := len(m.FeatureNames)
	if n == 0 {
		return errors.New("no feature names")
	}
	if len(m.ClassLabels) == 0 {
		return errors.New("no class labels")
	}
	if len(m.FeatureMeans) != n {
		return fmt.Errorf("feature_means length %d, want %d", len(m.FeatureMeans), n)
	}
	if len(m.FeatureScales) != n {
		return fmt.Errorf("feature_scales length %d, want %d", len(m.FeatureScales), n)
	}
	for i, s := range m.FeatureScales {
		if s <= 0 {
			return fmt.Errorf("feature_scales[%d] = %g, want > 0", i, s)
		}
	}
	if len(m.Weights) != len(m.ClassLabels) {
		return fmt.Errorf("weights has %d rows, want %d", len(m.Weights), len(m.ClassLabels))
	}
	for i, row := range m.Weights {
		if len(row) != n {
			return fmt.Errorf("weights[%d] length %d, want %d", i, len(row), n)
		}
	}
	if len(m.Intercepts) != len(m.ClassLabels) {
		return fmt.Errorf("intercepts length %d, want %d", len(m.Intercepts), len(m.ClassLabels))
	}
	return nil
}
