// Package prompt implements the interactive questions asked by the
// initializer: free text, masked secrets, single choice and yes/no toggles.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ErrAborted is returned when input ends before a question is answered.
var ErrAborted = errors.New("prompt aborted")

// Prompter asks the user questions. Implementations block until answered.
type Prompter interface {
	// Text asks for a line of text. An empty answer yields initial.
	// validate, when non-nil, is re-run until it returns nil.
	Text(message, initial string, validate func(string) error) (string, error)
	// Password asks for a secret without echoing it.
	Password(message string) (string, error)
	// Select asks for one of choices and returns it. Empty picks the first.
	Select(message string, choices []string) (string, error)
	// Toggle asks a yes/no question. Empty answers yield initial.
	Toggle(message string, initial bool) (bool, error)
}

// Terminal is a Prompter reading lines from in and writing questions to out.
// Password input is masked when in is a terminal.
type Terminal struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	masked bool
}

var (
	questionMark = color.New(color.FgCyan, color.Bold).SprintFunc()
	hint         = color.New(color.Faint).SprintFunc()
	warning      = color.New(color.FgRed).SprintFunc()
)

// NewTerminal creates a Terminal prompter on the process stdin/stdout.
func NewTerminal() *Terminal {
	fd := int(os.Stdin.Fd())
	t := NewReader(os.Stdin, os.Stdout)
	t.fd = fd
	t.masked = term.IsTerminal(fd)
	return t
}

// NewReader creates a Terminal prompter over arbitrary streams. Passwords are
// read as plain lines.
func NewReader(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out, fd: -1}
}

func (t *Terminal) ask(message, suffix string) {
	if suffix != "" {
		fmt.Fprintf(t.out, "%s %s %s ", questionMark("?"), message, hint(suffix))
		return
	}
	fmt.Fprintf(t.out, "%s %s ", questionMark("?"), message)
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Text implements Prompter.
func (t *Terminal) Text(message, initial string, validate func(string) error) (string, error) {
	suffix := ""
	if initial != "" {
		suffix = "(" + initial + ")"
	}
	for {
		t.ask(message, suffix)
		answer, err := t.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = initial
		}
		if validate != nil {
			if verr := validate(answer); verr != nil {
				fmt.Fprintln(t.out, warning(verr.Error()))
				continue
			}
		}
		return answer, nil
	}
}

// Password implements Prompter. Input already buffered by earlier prompts
// (typed ahead or pasted) is consumed as the answer, unmasked, so it is not
// replayed into the next question.
func (t *Terminal) Password(message string) (string, error) {
	t.ask(message, "")
	if !t.masked || t.in.Buffered() > 0 {
		return t.readLine()
	}

	secret, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// Select implements Prompter.
func (t *Terminal) Select(message string, choices []string) (string, error) {
	if len(choices) == 0 {
		return "", errors.New("select: no choices")
	}
	for {
		fmt.Fprintf(t.out, "%s %s\n", questionMark("?"), message)
		for i, c := range choices {
			fmt.Fprintf(t.out, "  %d) %s\n", i+1, c)
		}
		t.ask("Choose", "(1-"+strconv.Itoa(len(choices))+")")

		answer, err := t.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" {
			return choices[0], nil
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(choices) {
			return choices[n-1], nil
		}
		for _, c := range choices {
			if strings.EqualFold(c, answer) {
				return c, nil
			}
		}
		fmt.Fprintln(t.out, warning("Please pick one of the listed options."))
	}
}

// Toggle implements Prompter.
func (t *Terminal) Toggle(message string, initial bool) (bool, error) {
	suffix := "(y/N)"
	if initial {
		suffix = "(Y/n)"
	}
	for {
		t.ask(message, suffix)
		answer, err := t.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return initial, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(t.out, warning("Please answer yes or no."))
	}
}
