package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var errPromptAborted = errors.New("prompt aborted")

// Asker collects the demo's answers.
type Asker interface {
	Select(message string, choices []string) (string, error)
	Text(message string) (string, error)
}

// lineAsker reads answers line by line.
type lineAsker struct {
	in  *bufio.Reader
	out io.Writer
}

func newLineAsker(in io.Reader, out io.Writer) *lineAsker {
	return &lineAsker{in: bufio.NewReader(in), out: out}
}

var questionMark = color.New(color.FgCyan, color.Bold).SprintFunc()

func (a *lineAsker) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", errPromptAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *lineAsker) Select(message string, choices []string) (string, error) {
	for {
		fmt.Fprintf(a.out, "%s %s\n", questionMark("?"), message)
		for i, c := range choices {
			fmt.Fprintf(a.out, "  %d) %s\n", i+1, c)
		}
		fmt.Fprintf(a.out, "  Choose (1-%d): ", len(choices))

		answer, err := a.readLine()
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
	}
}

func (a *lineAsker) Text(message string) (string, error) {
	for {
		fmt.Fprintf(a.out, "%s %s ", questionMark("?"), message)
		answer, err := a.readLine()
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
	}
}
