package ui

import (
	"errors"
	"fmt"
)

// ErrNoAnswer is returned by Scripted when it runs out of answers.
var ErrNoAnswer = errors.New("no scripted answer left")

// Scripted replays prepared answers in order. Text answers still go through
// the validator, so a rejected answer surfaces as an error.
type Scripted struct {
	Selections [][]string
	Texts      []string
	Secrets    []string
	Confirms   []bool

	// Asked records every label, in order.
	Asked []string
}

// SelectMany returns the next selection.
func (s *Scripted) SelectMany(label string, items []string) ([]string, error) {
	s.Asked = append(s.Asked, label)
	if len(s.Selections) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAnswer, label)
	}
	answer := s.Selections[0]
	s.Selections = s.Selections[1:]
	for _, a := range answer {
		if !contains(items, a) {
			return nil, fmt.Errorf("%q is not one of the choices for %s", a, label)
		}
	}
	return answer, nil
}

// Text returns the next text answer, or defaultValue for an empty one.
func (s *Scripted) Text(label, defaultValue string, validate func(string) error) (string, error) {
	s.Asked = append(s.Asked, label)
	if len(s.Texts) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoAnswer, label)
	}
	answer := s.Texts[0]
	s.Texts = s.Texts[1:]
	if answer == "" {
		answer = defaultValue
	}
	if validate != nil {
		if err := validate(answer); err != nil {
			return "", err
		}
	}
	return answer, nil
}

// Secret returns the next secret answer.
func (s *Scripted) Secret(label string) (string, error) {
	s.Asked = append(s.Asked, label)
	if len(s.Secrets) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoAnswer, label)
	}
	answer := s.Secrets[0]
	s.Secrets = s.Secrets[1:]
	return answer, nil
}

// Confirm returns the next confirmation.
func (s *Scripted) Confirm(label string, defaultYes bool) (bool, error) {
	s.Asked = append(s.Asked, label)
	if len(s.Confirms) == 0 {
		return false, fmt.Errorf("%w: %s", ErrNoAnswer, label)
	}
	answer := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return answer, nil
}

func contains(items []string, item string) bool {
	for _, i := range items {
		if i == item {
			return true
		}
	}
	return false
}
