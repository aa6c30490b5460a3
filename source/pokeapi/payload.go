package pokeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pokemon-investigator/investigation"
)

type namedRef struct {
	Name *string `json:"name"`
}

type typeSlot struct {
	Type *namedRef `json:"type"`
}

type moveSlot struct {
	Move *namedRef `json:"move"`
}

// payload mirrors the part of /pokemon/{name} we depend on. Numbers are
// integers upstream, so a fractional value fails decoding. Pointers let
// validation tell missing or null fields apart from zero values.
type payload struct {
	ID             *int        `json:"id"`
	Name           *string     `json:"name"`
	BaseExperience *int        `json:"base_experience"`
	Height         *int        `json:"height"`
	Types          *[]typeSlot `json:"types"`
	Moves          *[]moveSlot `json:"moves"`
}

func decodeRecord(body []byte) (investigation.Record, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return investigation.Record{}, fmt.Errorf("decode payload: %w", err)
	}
	if err := p.validate(); err != nil {
		return investigation.Record{}, err
	}

	rec := investigation.Record{
		ID:     *p.ID,
		Name:   *p.Name,
		Height: *p.Height,
		Types:  make([]string, 0, len(*p.Types)),
		Moves:  make([]string, 0, len(*p.Moves)),
	}
	if p.BaseExperience != nil {
		rec.BaseExperience = *p.BaseExperience
	}
	for _, t := range *p.Types {
		rec.Types = append(rec.Types, *t.Type.Name)
	}
	for _, m := range *p.Moves {
		rec.Moves = append(rec.Moves, *m.Move.Name)
	}
	return rec, nil
}

func (p payload) validate() error {
	var issues []string
	switch {
	case p.ID == nil:
		issues = append(issues, "id: required")
	case *p.ID <= 0:
		issues = append(issues, fmt.Sprintf("id: must be positive, got %d", *p.ID))
	}
	if p.Name == nil {
		issues = append(issues, "name: required")
	}
	if p.Height == nil {
		issues = append(issues, "height: required")
	}
	if p.Types == nil {
		issues = append(issues, "types: required")
	} else {
		for i, t := range *p.Types {
			if t.Type == nil || t.Type.Name == nil {
				issues = append(issues, fmt.Sprintf("types[%d].type.name: required", i))
			}
		}
	}
	if p.Moves == nil {
		issues = append(issues, "moves: required")
	} else {
		for i, m := range *p.Moves {
			if m.Move == nil || m.Move.Name == nil {
				issues = append(issues, fmt.Sprintf("moves[%d].move.name: required", i))
			}
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return errors.New(strings.Join(issues, "; "))
}
