package share

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/mmynk/clubhouse/internal/models"
)

// Clipboard is the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// SystemClipboard uses the platform clipboard (pbcopy, xclip, wl-copy or
// the Windows API).
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// ClipboardAvailable reports whether a clipboard utility was found.
func ClipboardAvailable() bool {
	return !clipboard.Unsupported
}

// CopyToken puts the pasteable code for snap on cb and returns it.
func CopyToken(cb Clipboard, snap models.Snapshot) (string, error) {
	token, err := Token(snap)
	if err != nil {
		return "", err
	}
	if err := cb.WriteAll(token); err != nil {
		return "", fmt.Errorf("copy to clipboard: %w", err)
	}
	return token, nil
}

// CopyLink puts a share link for snap on cb and returns it.
func CopyLink(cb Clipboard, base string, snap models.Snapshot) (string, error) {
	link, err := Link(base, snap)
	if err != nil {
		return "", err
	}
	if err := cb.WriteAll(link); err != nil {
		return "", fmt.Errorf("copy to clipboard: %w", err)
	}
	return link, nil
}
