// Package host provides the desktop-side collaborators the explorer and the command
// service talk to: clipboard, terminal, user messages and the collapse signal.
package host

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/amromran102/gitlab-registry-explorer/internal/contextutil"
)

// Clipboard writes text to the system clipboard.
type Clipboard struct {
	write func(string) error
}

// NewClipboard creates a Clipboard backed by the system clipboard.
func NewClipboard() *Clipboard {
	return &Clipboard{write: clipboard.WriteAll}
}

// Write copies text to the clipboard.
func (c *Clipboard) Write(ctx context.Context, text string) error {
	if err := c.write(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "copied to clipboard", "length", len(text))
	return nil
}
