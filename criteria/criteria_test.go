package criteria

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type rec struct {
	types []string
	moves []string
}

func (r rec) TypeTags() []string { return r.types }
func (r rec) MoveTags() []string { return r.moves }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		in   rec
		want Outcome
	}{
		{
			name: "pikachu matches",
			in:   rec{types: []string{"electric"}, moves: []string{"thunder-shock", "tackle"}},
			want: Matched{Types: []string{"electric"}, Moves: []string{"thunder-shock"}},
		},
		{
			name: "no type regardless of moves",
			in:   rec{types: []string{"grass", "poison"}, moves: []string{"thunder-shock"}},
			want: NotMatched{Reason: NoMatchingType},
		},
		{
			name: "both fail reports type",
			in:   rec{types: []string{"grass"}, moves: []string{"vine-whip"}},
			want: NotMatched{Reason: NoMatchingType},
		},
		{
			name: "type ok move missing",
			in:   rec{types: []string{"fire"}, moves: []string{"ember", "scratch"}},
			want: NotMatched{Reason: NoMatchingMove},
		},
		{
			name: "empty tags",
			in:   rec{},
			want: NotMatched{Reason: NoMatchingType},
		},
		{
			name: "case insensitive",
			in:   rec{types: []string{"FIRE"}, moves: []string{"THUNDER-SHOCK"}},
			want: Matched{Types: []string{"fire"}, Moves: []string{"thunder-shock"}},
		},
		{
			name: "keeps record order",
			in: rec{
				types: []string{"psychic", "normal", "Electric"},
				moves: []string{"thunder-wave", "tackle", "quick-attack", "electro-ball"},
			},
			want: Matched{
				Types: []string{"psychic", "electric"},
				Moves: []string{"thunder-wave", "quick-attack", "electro-ball"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_UpperAndLowerAgree(t *testing.T) {
	upper := Evaluate(rec{types: []string{"FIRE"}, moves: []string{"THUNDER-SHOCK"}})
	lower := Evaluate(rec{types: []string{"fire"}, moves: []string{"thunder-shock"}})
	assert.Equal(t, lower, upper)
}

func TestEvaluate_Concurrent(t *testing.T) {
	r := rec{types: []string{"electric"}, moves: []string{"quick-attack"}}
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := Evaluate(r).(Matched); !ok {
				t.Errorf("Evaluate() did not match")
			}
		}()
	}
	wg.Wait()
}

func TestAllowedSetsAreCopies(t *testing.T) {
	types := AllowedTypes()
	types[0] = "water"
	assert.Equal(t, "electric", AllowedTypes()[0])

	moves := AllowedMoves()
	moves[0] = "splash"
	assert.Equal(t, "thunder-shock", AllowedMoves()[0])
}
