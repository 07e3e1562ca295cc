package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/pogona-hunter/arena-form/pkg/types"
)

// ConfirmationResult represents the result of a confirmation prompt
type ConfirmationResult struct {
	Approved bool
	TimedOut bool
	Error    error
}

// Confirmer handles user confirmation prompts
type Confirmer struct {
	config types.Confirmation
	in     io.Reader
	out    io.Writer
}

// Option configures a Confirmer
type Option func(*Confirmer)

// WithIO replaces stdin and stderr as the prompt's input and output
func WithIO(in io.Reader, out io.Writer) Option {
	return func(c *Confirmer) {
		c.in = in
		c.out = out
	}
}

// NewConfirmer creates a new confirmer with the given configuration
func NewConfirmer(config types.Confirmation, opts ...Option) *Confirmer {
	c := &Confirmer{
		config: config,
		in:     os.Stdin,
		out:    os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Confirm prompts the user for confirmation with the given message
func (c *Confirmer) Confirm(ctx context.Context, message string) *ConfirmationResult {
	// In batch mode, with auto-approve or without a terminal, skip confirmation
	if !c.IsInteractive() {
		return &ConfirmationResult{
			Approved: !c.config.DefaultDeny, // Respect default deny even in batch mode
		}
	}

	return c.promptUser(ctx, message)
}

// ConfirmOverwrite asks before replacing an existing file. Files that do
// not exist yet are approved without asking.
func (c *Confirmer) ConfirmOverwrite(ctx context.Context, path string) *ConfirmationResult {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &ConfirmationResult{Approved: true}
	}
	return c.Confirm(ctx, fmt.Sprintf("%s already exists. Overwrite?", path))
}

// promptUser handles the interactive confirmation prompt
func (c *Confirmer) promptUser(ctx context.Context, message string) *ConfirmationResult {
	var promptCtx context.Context
	var cancel context.CancelFunc

	if c.config.Timeout > 0 {
		promptCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
	} else {
		promptCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	responseChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	timeoutMsg := ""
	if c.config.Timeout > 0 {
		timeoutMsg = fmt.Sprintf(" (%v)", c.config.Timeout)
	}

	defaultHint := "[Y/n]"
	if c.config.DefaultDeny {
		defaultHint = "[y/N]"
	}

	fmt.Fprintf(c.out, "%s %s%s ", message, defaultHint, timeoutMsg)

	// Read user input
	go func() {
		reader := bufio.NewReader(c.in)
		response, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || response == "") {
			errorChan <- fmt.Errorf("failed to read user input: %w", err)
			return
		}
		responseChan <- strings.TrimSpace(response)
	}()

	select {
	case <-promptCtx.Done():
		fmt.Fprintln(c.out, "\nTimeout - using default response")
		return &ConfirmationResult{
			Approved: !c.config.DefaultDeny,
			TimedOut: true,
		}

	case err := <-errorChan:
		return &ConfirmationResult{
			Approved: false,
			Error:    err,
		}

	case response := <-responseChan:
		return &ConfirmationResult{
			Approved: c.parseResponse(response),
		}
	}
}

// parseResponse parses the user's response to determine approval
func (c *Confirmer) parseResponse(response string) bool {
	response = strings.ToLower(strings.TrimSpace(response))

	// Empty response uses default
	if response == "" {
		return !c.config.DefaultDeny
	}

	switch response {
	case "y", "yes", "true", "1":
		return true
	case "n", "no", "false", "0":
		return false
	default:
		// Invalid response uses default
		fmt.Fprintf(c.out, "Invalid response '%s', using default\n", response)
		return !c.config.DefaultDeny
	}
}

// DisplayWarning displays a warning message to the user
func (c *Confirmer) DisplayWarning(message string) {
	fmt.Fprintf(c.out, "WARNING: %s\n", message)
}

// DisplayInfo displays an informational message to the user
func (c *Confirmer) DisplayInfo(message string) {
	fmt.Fprintf(c.out, "INFO: %s\n", message)
}

// DisplayError displays an error message to the user
func (c *Confirmer) DisplayError(message string) {
	fmt.Fprintf(c.out, "ERROR: %s\n", message)
}

// DisplaySuccess displays a success message to the user
func (c *Confirmer) DisplaySuccess(message string) {
	fmt.Fprintf(c.out, "SUCCESS: %s\n", message)
}

// IsInteractive reports whether prompts are shown. Prompts need a
// terminal when reading from a file such as stdin.
func (c *Confirmer) IsInteractive() bool {
	if c.config.BatchMode || c.config.AutoApprove {
		return false
	}
	if f, ok := c.in.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return true
}
