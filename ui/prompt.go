package ui

import (
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
)

// ErrCancelled is returned when the user interrupts a prompt.
var ErrCancelled = errors.New("prompt cancelled")

// Prompter asks the questions of an interactive run.
type Prompter interface {
	SelectMany(label string, items []string) ([]string, error)
	Text(label, defaultValue string, validate func(string) error) (string, error)
	Secret(label string) (string, error)
	Confirm(label string, defaultYes bool) (bool, error)
}

const doneItem = "Done"

// Terminal is a Prompter on a terminal. Zero values use os.Stdin and os.Stdout.
type Terminal struct {
	In  io.ReadCloser
	Out io.WriteCloser
}

// SelectMany toggles items on and off until the user picks "Done".
func (t Terminal) SelectMany(label string, items []string) ([]string, error) {
	chosen := make([]bool, len(items))
	cursor := 0
	for {
		lines := make([]string, 0, len(items)+1)
		lines = append(lines, doneItem)
		for i, item := range items {
			mark := "[ ]"
			if chosen[i] {
				mark = "[x]"
			}
			lines = append(lines, mark+" "+item)
		}
		prompt := promptui.Select{
			Label:        label + " (enter toggles)",
			Items:        lines,
			Size:         len(lines),
			CursorPos:    cursor,
			HideSelected: true,
			Stdin:        t.In,
			Stdout:       t.Out,
		}
		index, _, err := prompt.Run()
		if err != nil {
			return nil, promptErr(err)
		}
		if index == 0 {
			break
		}
		chosen[index-1] = !chosen[index-1]
		cursor = index
	}

	var selected []string
	for i, item := range items {
		if chosen[i] {
			selected = append(selected, item)
		}
	}
	return selected, nil
}

// Text asks for a line of input, re-asking until validate accepts it.
func (t Terminal) Text(label, defaultValue string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   defaultValue,
		AllowEdit: true,
		Validate:  validate,
		Stdin:     t.In,
		Stdout:    t.Out,
	}
	value, err := prompt.Run()
	if err != nil {
		return "", promptErr(err)
	}
	return value, nil
}

// Secret asks for a value without echoing it.
func (t Terminal) Secret(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:  label,
		Mask:   '*',
		Stdin:  t.In,
		Stdout: t.Out,
	}
	value, err := prompt.Run()
	if err != nil {
		return "", promptErr(err)
	}
	return value, nil
}

// Confirm asks a yes/no question.
func (t Terminal) Confirm(label string, defaultYes bool) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     t.In,
		Stdout:    t.Out,
	}
	if defaultYes {
		prompt.Default = "y"
	}
	_, err := prompt.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	default:
		return false, promptErr(err)
	}
}

func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}
