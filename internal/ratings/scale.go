package ratings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/spotility/internal/models"
	"github.com/desertthunder/spotility/internal/shared"
)

const (
	MinRating     = models.MinRating
	MaxRating     = models.MaxRating
	DefaultRating = 3.0
)

var labels = []struct {
	name  string
	value float64
}{
	{"bad", 1},
	{"meh", 2},
	{"ok", 3},
	{"good", 4},
	{"great", 5},
}

// Parse converts user input into a rating. Input is either a label or a number within range.
func Parse(input string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return 0, fmt.Errorf("%w: empty rating", shared.ErrInvalidRating)
	}

	for _, l := range labels {
		if l.name == s {
			return l.value, nil
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number or one of %s", shared.ErrInvalidRating, input, Labels())
	}

	if err := Validate(v); err != nil {
		return 0, err
	}
	return v, nil
}

// Validate reports whether v lies within [MinRating, MaxRating].
func Validate(v float64) error { return models.ValidateRating(v) }

// Label returns the label for v, or its decimal form when v has no label.
func Label(v float64) string {
	for _, l := range labels {
		if l.value == v {
			return l.name
		}
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Labels lists the accepted rating labels, worst first.
func Labels() string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = fmt.Sprintf("%s (%v)", l.name, l.value)
	}
	return strings.Join(names, ", ")
}
