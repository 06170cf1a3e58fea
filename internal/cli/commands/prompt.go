package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// Prompter asks the user for input
type Prompter interface {
	// Secret reads a value without echoing it
	Secret(label string) (string, error)
	// Line reads one line of visible input
	Line(label string) (string, error)
}

// ErrNonInteractive is returned when input is needed but stdin is not a terminal
var ErrNonInteractive = fmt.Errorf("input required in non-interactive mode")

// TerminalPrompter reads from the controlling terminal
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalPrompter prompts on stderr and reads stdin
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TerminalPrompter) Secret(label string) (string, error) {
	// Check if stdin is a terminal (not piped)
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, strings.ToLower(label))
	}

	fmt.Fprintf(p.Out, "%s: ", label)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(p.Out) // New line after hidden input
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(value), nil
}

func (p *TerminalPrompter) Line(label string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, strings.ToLower(label))
	}

	fmt.Fprintf(p.Out, "%s: ", label)
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}
