// SPDX-License-Identifier: MIT

// Package audiometry implements the screening test core: the fixed
// frequency protocol, the session state machine, and the scorer that
// turns a completed session into a classification result.
package audiometry

import (
	"fmt"
	"strings"
)

// testFrequencies is the fixed screening protocol, in test order. Pure
// tones are presented at these frequencies and the subject reports
// heard or not heard for each.
var testFrequencies = [6]int{500, 1000, 2000, 3000, 4000, 8000}

// TestFrequencies returns the screening frequencies in Hz, in the
// canonical test order.
func TestFrequencies() []int {
	out := make([]int, len(testFrequencies))
	copy(out, testFrequencies[:])
	return out
}

// IsTestFrequency reports whether f is part of the screening protocol.
func IsTestFrequency(f int) bool {
	for _, tf := range testFrequencies {
		if tf == f {
			return true
		}
	}
	return false
}

// Category is a hearing loss severity class, ordered from no loss to
// profound loss.
type Category int

const (
	Normal Category = iota
	Mild
	Moderate
	Severe
	Profound
)

var categoryNames = [...]string{"Normal", "Mild", "Moderate", "Severe", "Profound"}

func (c Category) String() string {
	if c < Normal || c > Profound {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory converts a label such as "Moderate" to its Category.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if strings.EqualFold(s, name) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown hearing category %q", s)
}

// Categories lists all severity classes in order.
func Categories() []Category {
	return []Category{Normal, Mild, Moderate, Severe, Profound}
}

// band is a pure-tone-average range in dB HL. The upper bound is
// inclusive; the last band is open-ended.
type band struct {
	min, max float64
	desc     string
}

// categoryBands follows the WHO severity grading used to calibrate the
// threshold table in scorer.go.
var categoryBands = [...]band{
	Normal:   {0, 25, "Hearing within normal limits"},
	Mild:     {26, 40, "Difficulty hearing soft speech"},
	Moderate: {41, 60, "Difficulty hearing conversational speech"},
	Severe:   {61, 80, "Difficulty hearing loud speech"},
	Profound: {81, 120, "May not hear even amplified speech"},
}

// BandFor maps a pure tone average in dB HL to its severity band.
func BandFor(pta float64) Category {
	switch {
	case pta <= 25:
		return Normal
	case pta <= 40:
		return Mild
	case pta <= 60:
		return Moderate
	case pta <= 80:
		return Severe
	default:
		return Profound
	}
}

// BandRange returns the dB HL range and description for a category,
// for discovery endpoints.
func (c Category) BandRange() (min, max float64, desc string) {
	b := categoryBands[c]
	return b.min, b.max, b.desc
}

// Risk is the advisory urgency attached to a result.
type Risk int

const (
	RiskLow Risk = iota
	RiskModerate
	RiskHigh
)

var riskNames = [...]string{"Low", "Moderate", "High"}

func (r Risk) String() string {
	if r < RiskLow || r > RiskHigh {
		return fmt.Sprintf("Risk(%d)", int(r))
	}
	return riskNames[r]
}

// RiskFor derives the risk level from the severity class.
func RiskFor(c Category) Risk {
	switch c {
	case Normal:
		return RiskLow
	case Mild, Moderate:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// Gender is the demographic encoding used by the classifier features.
// The numeric values match the encoding the model was trained with.
type Gender int

const (
	Male Gender = iota
	Female
	Other
)

var genderNames = [...]string{"Male", "Female", "Other"}

func (g Gender) String() string {
	if g < Male || g > Other {
		return fmt.Sprintf("Gender(%d)", int(g))
	}
	return genderNames[g]
}

// ParseGender converts a label such as "female" to its Gender.
func ParseGender(s string) (Gender, error) {
	for i, name := range genderNames {
		if strings.EqualFold(s, name) {
			return Gender(i), nil
		}
	}
	return 0, fmt.Errorf("unknown gender %q", s)
}
