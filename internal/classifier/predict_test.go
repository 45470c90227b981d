// SPDX-License-Identifier: MIT

package classifier

import (
	"math"
	"testing"
)

func TestPredict(t *testing.T) {
	m := loadShipped(t)

	tests := []struct {
		name      string
		features  []float64
		wantLabel string
		wantProbs []float64
	}{
		{
			name:      "all frequencies heard",
			features:  []float64{1, 1, 1, 1, 1, 1, 40, 0},
			wantLabel: "Normal",
			wantProbs: []float64{0.908281215565, 0.091426620149, 0.000292152115, 0.000000012170, 0.000000000000},
		},
		{
			name:      "low frequencies only",
			features:  []float64{1, 1, 1, 0, 0, 0, 40, 0},
			wantLabel: "Moderate",
			wantProbs: []float64{0.004862271154, 0.317776785582, 0.659309294749, 0.017832744102, 0.000218904413},
		},
		{
			name:      "nothing heard",
			features:  []float64{0, 0, 0, 0, 0, 0, 40, 0},
			wantLabel: "Profound",
			wantProbs: []float64{0.000000039769, 0.000345774754, 0.095438254900, 0.343410560860, 0.560805369717},
		},
		{
			name:      "only highest frequency missed",
			features:  []float64{1, 1, 1, 1, 1, 0, 40, 0},
			wantLabel: "Mild",
			wantProbs: []float64{0.456459617138, 0.524405630276, 0.019125657203, 0.000009093422, 0.000000001962},
		},
	}

	const tol = 1e-9
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, probs, err := m.Predict(tt.features)
			if err != nil {
				t.Fatalf("Predict() error: %v", err)
			}
			if label != tt.wantLabel {
				t.Errorf("label = %q, want %q", label, tt.wantLabel)
			}
			if len(probs) != len(tt.wantProbs) {
				t.Fatalf("got %d probabilities, want %d", len(probs), len(tt.wantProbs))
			}
			for i, want := range tt.wantProbs {
				if math.Abs(probs[i]-want) > tol {
					t.Errorf("probs[%d] = %.12f, want %.12f", i, probs[i], want)
				}
			}
		})
	}
}

func TestPredictDistribution(t *testing.T) {
	m := loadShipped(t)

	label, probs, err := m.Predict([]float64{1, 0, 1, 0, 1, 0, 63, 1})
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}

	sum := 0.0
	for i, p := range probs {
		if p < 0 || p > 1 {
			t.Errorf("probs[%d] = %g, want in [0, 1]", i, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("probabilities sum to %.15f, want 1", sum)
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	if m.ClassLabels[best] != label {
		t.Errorf("label %q does not match argmax class %q", label, m.ClassLabels[best])
	}
}

// classIndex maps a label back to its position in ClassLabels.
func classIndex(t *testing.T, m *Model, label string) int {
	t.Helper()
	for i, l := range m.ClassLabels {
		if l == label {
			return i
		}
	}
	t.Fatalf("unknown label %q", label)
	return -1
}

// Missing one more frequency must never move the prediction toward a
// milder class. Checked for every heard/not-heard pattern and every
// single additional miss.
func TestPredictWorseningNeverImproves(t *testing.T) {
	m := loadShipped(t)

	features := func(mask int) []float64 {
		f := make([]float64, 8)
		for i := 0; i < 6; i++ {
			if mask&(1<<i) != 0 {
				f[i] = 1
			}
		}
		f[6], f[7] = 40, 0
		return f
	}

	for mask := 0; mask < 64; mask++ {
		label, _, err := m.Predict(features(mask))
		if err != nil {
			t.Fatalf("Predict(mask=%06b) error: %v", mask, err)
		}
		before := classIndex(t, m, label)

		for i := 0; i < 6; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			worse := mask &^ (1 << i)
			label, _, err := m.Predict(features(worse))
			if err != nil {
				t.Fatalf("Predict(mask=%06b) error: %v", worse, err)
			}
			if after := classIndex(t, m, label); after < before {
				t.Errorf("dropping frequency %d moved class %d -> %d (mask %06b -> %06b)",
					i, before, after, mask, worse)
			}
		}
	}
}

func TestPredictLengthMismatch(t *testing.T) {
	m := loadShipped(t)

	for _, n := range []int{0, 7, 9} {
		if _, _, err := m.Predict(make([]float64, n)); err == nil {
			t.Errorf("Predict() with %d features succeeded, want error", n)
		}
	}
}

func BenchmarkPredict(b *testing.B) {
	m, err := Load(shippedArtifact)
	if err != nil {
		b.Fatal(err)
	}
	features := []float64{1, 1, 1, 0, 0, 0, 40, 0}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := m.Predict(features); err != nil {
			b.Fatal(err)
		}
	}
}
