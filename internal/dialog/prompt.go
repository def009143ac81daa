package dialog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	fileStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// Prompter asks questions on a terminal, one line per answer
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the trimmed answer. io.EOF is returned
// only when the input ends before any answer was typed.
func (p *Prompter) Ask(question string) (string, error) {
	fmt.Fprint(p.out, promptStyle.Render(question)+" ")
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		fmt.Fprintln(p.out)
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AskDefault asks with def shown in brackets; an empty answer yields def
func (p *Prompter) AskDefault(question, def string) (string, error) {
	if def != "" {
		question += " " + hintStyle.Render("["+def+"]")
	}
	answer, err := p.Ask(question + ":")
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Problem reports an invalid answer before the question is repeated
func (p *Prompter) Problem(format string, args ...interface{}) {
	fmt.Fprintln(p.out, errStyle.Render(fmt.Sprintf(format, args...)))
}

// Show prints text in a frame, used to echo a configuration file
func (p *Prompter) Show(title, text string) {
	fmt.Fprintln(p.out, hintStyle.Render(title))
	fmt.Fprintln(p.out, fileStyle.Render(strings.TrimRight(text, "\n")))
}
