package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"tracker/internal/core"
	"tracker/internal/export"
	"tracker/internal/services"
)

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(prompt string) (bool, error)
}

// linePrompter reads the answer as one line. Only "y" and "yes" accept; end
// of input declines.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *linePrompter) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// resolve runs c if the user agrees. It reports whether the action ran.
func resolve(ctx context.Context, p Prompter, c *services.Confirmation, assumeYes bool) (bool, error) {
	if !assumeYes {
		ok, err := p.Confirm(c.Prompt)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, c.Confirm(ctx)
}

// Alert turns an error into the message shown to the user.
func Alert(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid amount!"
	case errors.Is(err, core.ErrMissingType), errors.Is(err, core.ErrInvalidType):
		return "Please select a transaction type!"
	case errors.Is(err, core.ErrMissingDate), errors.Is(err, core.ErrInvalidDate):
		return "Please select a date!"
	case errors.Is(err, services.ErrEmptyName):
		return "Please enter your name!"
	case errors.Is(err, export.ErrNothingToExport):
		return "No transactions to export!"
	case errors.Is(err, services.ErrNotLoggedIn):
		return "Please login first: tracker login NAME"
	default:
		return "Error: " + err.Error()
	}
}
