package sentiment

import (
	"fmt"
	"strings"

	"github.com/ay5710/cinesense/internal/datastore"
	"github.com/ay5710/cinesense/internal/errors"
)

// aspectScale maps per-aspect sentiment labels to their numeric value.
// Anything outside the scale, including "NA", maps to a null value.
var aspectScale = map[string]int{
	"very negative": -2,
	"negative":      -1,
	"neutral":       0,
	"positive":      1,
	"very positive": 2,
}

// overallScale maps the final verdict label to its numeric value.
var overallScale = map[string]int{
	"terrible":                   -2,
	"bad despite some qualities": -1,
	"average":                    0,
	"good despite minor flaws":   1,
	"excellent":                  2,
}

// MapAnswer turns the parsed tuples into a sentiment row for reviewID. The
// first five tuples carry the aspect verdict in their last field, the sixth
// carries the overall verdict.
func MapAnswer(reviewID string, tuples [][]string) (*datastore.Sentiment, error) {
	if len(tuples) < 6 {
		return nil, errors.New(fmt.Errorf("expected 6 tuples, got %d", len(tuples))).
			Component("sentiment").
			Category(errors.CategoryParsing).
			Build()
	}

	values := make([]*int, 6)
	for i := 0; i < 5; i++ {
		if len(tuples[i]) < 2 {
			return nil, errors.New(fmt.Errorf("aspect tuple %d has %d fields", i, len(tuples[i]))).
				Component("sentiment").
				Category(errors.CategoryParsing).
				Build()
		}
		label := normalizeLabel(tuples[i][len(tuples[i])-1])
		if v, ok := aspectScale[label]; ok {
			values[i] = &v
		}
	}

	overall := tuples[5]
	if len(overall) < 2 {
		return nil, errors.New(fmt.Errorf("overall tuple has %d fields", len(overall))).
			Component("sentiment").
			Category(errors.CategoryParsing).
			Build()
	}
	if v, ok := overallScale[normalizeLabel(overall[len(overall)-1])]; ok {
		values[5] = &v
	}

	return &datastore.Sentiment{
		ReviewID: reviewID,
		Story:    values[0],
		Acting:   values[1],
		Visuals:  values[2],
		Sounds:   values[3],
		Values:   values[4],
		Overall:  values[5],
	}, nil
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
