// Package criteria decides whether a fetched record qualifies for a passport.
package criteria

import "strings"

// Reason explains why a record did not match.
type Reason string

const (
	NoMatchingType Reason = "NO_MATCHING_TYPE"
	NoMatchingMove Reason = "NO_MATCHING_MOVE"
)

// Outcome is either Matched or NotMatched.
type Outcome interface {
	isOutcome()
}

// Matched carries the record's tags that hit the allow-sets, in record order.
type Matched struct {
	Types []string
	Moves []string
}

// NotMatched carries the first failing check.
type NotMatched struct {
	Reason Reason
}

func (Matched) isOutcome()    {}
func (NotMatched) isOutcome() {}

// Record is the subset of a fetched record the rule looks at.
type Record interface {
	TypeTags() []string
	MoveTags() []string
}

var (
	allowedTypes = []string{"electric", "fire", "psychic"}
	allowedMoves = []string{"thunder-shock", "quick-attack", "electro-ball", "thunder-wave"}

	typeSet = toSet(allowedTypes)
	moveSet = toSet(allowedMoves)
)

// AllowedTypes returns a copy of the type allow-set.
func AllowedTypes() []string { return append([]string(nil), allowedTypes...) }

// AllowedMoves returns a copy of the move allow-set.
func AllowedMoves() []string { return append([]string(nil), allowedMoves...) }

// Evaluate applies the matching rule. The type check runs first, so a record
// failing both checks reports NoMatchingType.
func Evaluate(r Record) Outcome {
	types := intersect(r.TypeTags(), typeSet)
	if len(types) == 0 {
		return NotMatched{Reason: NoMatchingType}
	}
	moves := intersect(r.MoveTags(), moveSet)
	if len(moves) == 0 {
		return NotMatched{Reason: NoMatchingMove}
	}
	return Matched{Types: types, Moves: moves}
}

func intersect(tags []string, allowed map[string]struct{}) []string {
	var out []string
	for _, t := range tags {
		t = strings.ToLower(t)
		if _, ok := allowed[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func toSet(vals []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}
