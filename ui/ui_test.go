package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripted(t *testing.T) {
	s := &Scripted{
		Selections: [][]string{{"b"}},
		Texts:      []string{"", "bad"},
		Secrets:    []string{"pw"},
		Confirms:   []bool{true},
	}

	selected, err := s.SelectMany("pick", []string{"a", "b"})
	require.Nil(t, err)
	assert.Equal(t, []string{"b"}, selected)

	text, err := s.Text("first", "fallback", nil)
	require.Nil(t, err)
	assert.Equal(t, "fallback", text)

	_, err = s.Text("second", "", func(v string) error {
		if v == "bad" {
			return errors.New("rejected")
		}
		return nil
	})
	assert.EqualError(t, err, "rejected")

	secret, err := s.Secret("pw")
	require.Nil(t, err)
	assert.Equal(t, "pw", secret)

	ok, err := s.Confirm("go", false)
	require.Nil(t, err)
	assert.True(t, ok)

	_, err = s.Confirm("again", false)
	assert.True(t, errors.Is(err, ErrNoAnswer))
	assert.Equal(t, []string{"pick", "first", "second", "pw", "go", "again"}, s.Asked)
}

func TestScripted_UnknownChoice(t *testing.T) {
	s := &Scripted{Selections: [][]string{{"z"}}}
	_, err := s.SelectMany("pick", []string{"a"})
	assert.NotNil(t, err)
}

func TestBars(t *testing.T) {
	out := &bytes.Buffer{}
	bar := Bars{Out: out}.Bytes(10, "file.tif")
	n, err := bar.Write([]byte("0123456789"))
	require.Nil(t, err)
	assert.Equal(t, 10, n)
	assert.Nil(t, bar.Finish())
	assert.Contains(t, out.String(), "file.tif")

	counter := Silent{}.Count(2, "tasks")
	assert.Nil(t, counter.Add(1))
	assert.Nil(t, counter.Finish())
}

func TestPromptErr(t *testing.T) {
	assert.True(t, errors.Is(promptErr(promptui.ErrInterrupt), ErrCancelled))
	assert.True(t, errors.Is(promptErr(promptui.ErrEOF), ErrCancelled))
	other := errors.New("boom")
	assert.Equal(t, other, promptErr(other))
}
