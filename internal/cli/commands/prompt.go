package commands

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when input is needed but stdin is not a terminal
var ErrNotInteractive = errors.New("input required in non-interactive mode")

// Prompter asks the user for input
type Prompter interface {
	Input(label, defaultValue string) (string, error)
	Password(label string) (string, error)
	Select(label string, items []string) (int, error)
	Confirm(label string) (bool, error)
}

// TerminalPrompter prompts on the controlling terminal
type TerminalPrompter struct{}

// NewTerminalPrompter creates a terminal prompter
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

func interactive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

func (p *TerminalPrompter) Input(label, defaultValue string) (string, error) {
	if !interactive() {
		return "", fmt.Errorf("%w: %s", ErrNotInteractive, label)
	}

	prompt := promptui.Prompt{
		Label:   label,
		Default: defaultValue,
	}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("input cancelled: %w", err)
	}
	return value, nil
}

func (p *TerminalPrompter) Password(label string) (string, error) {
	if !interactive() {
		return "", fmt.Errorf("%w: %s", ErrNotInteractive, label)
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func (p *TerminalPrompter) Select(label string, items []string) (int, error) {
	if !interactive() {
		return 0, fmt.Errorf("%w: %s", ErrNotInteractive, label)
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ . | cyan }}",
		Inactive: "  {{ . }}",
		Selected: "{{ . | green }}",
	}

	prompt := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("selection cancelled: %w", err)
	}
	return index, nil
}

func (p *TerminalPrompter) Confirm(label string) (bool, error) {
	if !interactive() {
		return false, fmt.Errorf("%w: %s", ErrNotInteractive, label)
	}

	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation cancelled: %w", err)
	}
	return true, nil
}
