// SPDX-License-Identifier: MIT

package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Predict runs the classifier on a raw feature vector and returns the
// winning class label together with the full softmax distribution, one
// probability per class in ClassLabels order.
func (m *Model) Predict(features []float64) (string, []float64, error) {
	if len(features) != m.NumFeatures() {
		return "", nil, fmt.Errorf("feature vector length %d, want %d", len(features), m.NumFeatures())
	}

	z := make([]float64, len(features))
	for i, x := range features {
		z[i] = (x - m.FeatureMeans[i]) / m.FeatureScales[i]
	}

	logits := make([]float64, m.NumClasses())
	for c, row := range m.Weights {
		logits[c] = floats.Dot(row, z) + m.Intercepts[c]
	}

	probs := softmax(logits)
	best := floats.MaxIdx(probs)
	return m.ClassLabels[best], probs, nil
}

// softmax exponentiates after shifting by the max logit so large
// scores cannot overflow.
func softmax(logits []float64) []float64 {
	max := floats.Max(logits)
	sum := 0.0
	out := make([]float64, len(logits))
	for i, l := range logits {
		out[i] = math.Exp(l - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
