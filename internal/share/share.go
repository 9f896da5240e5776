// Package share turns snapshots into things people can pass around (a JSON
// file, a pasteable code, a link) and brings them back in.
package share

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmynk/clubhouse/internal/models"
	"github.com/mmynk/clubhouse/internal/snapshot"
)

// ImportMarker prefixes the token in a link's fragment.
const ImportMarker = "import="

// LongLinkThreshold is the length past which chat apps commonly cut links
// short. Links longer than this still work but are better sent as a file.
const LongLinkThreshold = 2000

var (
	// ErrNoImport means the URL carries no import fragment.
	ErrNoImport = errors.New("link has no import data")
	// ErrNotClubFile means a file is not a club data export.
	ErrNotClubFile = errors.New("not a club data file")
)

// Importer applies a snapshot. *importer.Engine implements it.
type Importer interface {
	Import(ctx context.Context, p models.PartialSnapshot) error
}

// FileName is the dated name used for exported files.
func FileName(t time.Time) string {
	return "club_data_" + t.Format("2006-01-02") + ".json"
}

// WriteFile writes snap as indented UTF-8 JSON.
func WriteFile(w io.Writer, snap models.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap.Normalize()); err != nil {
		return fmt.Errorf("write club file: %w", err)
	}
	return nil
}

// ExportFile writes snap into dir under FileName(now) and returns the path.
func ExportFile(dir string, snap models.Snapshot, now time.Time) (string, error) {
	path := filepath.Join(dir, FileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := WriteFile(f, snap); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

// ReadFile parses an exported file. Collections missing from the file are
// absent in the result.
func ReadFile(r io.Reader) (models.PartialSnapshot, error) {
	var p models.PartialSnapshot
	data, err := io.ReadAll(r)
	if err != nil {
		return p, fmt.Errorf("read club file: %w", err)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(data) == 0 || data[0] != '{' {
		return p, ErrNotClubFile
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return models.PartialSnapshot{}, fmt.Errorf("%w: %v", ErrNotClubFile, err)
	}
	return p, nil
}

// Token returns the pasteable code for snap.
func Token(snap models.Snapshot) (string, error) {
	return snapshot.Encode(snap)
}

// Link returns base with its fragment replaced by the import marker and the
// token for snap.
func Link(base string, snap models.Snapshot) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse app url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("app url %q must be absolute", base)
	}
	token, err := Token(snap)
	if err != nil {
		return "", err
	}
	u.Fragment, u.RawFragment = "", ""
	return u.String() + "#" + ImportMarker + token, nil
}

// IsLong reports whether link is long enough that messaging apps may
// truncate it.
func IsLong(link string) bool {
	return len(link) > LongLinkThreshold
}

// Inbound is a link that has been read. CleanURL is the link without its
// fragment and is set whether or not the data could be decoded.
type Inbound struct {
	Snapshot models.PartialSnapshot
	CleanURL string
}

// BrokenLinkError means the link had import data that could not be read.
type BrokenLinkError struct {
	Err *snapshot.DecodeError
}

func (e *BrokenLinkError) Error() string {
	return "shared link is broken: " + e.Err.Error()
}

func (e *BrokenLinkError) Unwrap() error { return e.Err }

// Guidance tells the user what to do about the broken link.
func (e *BrokenLinkError) Guidance() string {
	return e.Err.Guidance()
}

// ParseLink reads the import fragment from raw. A link cut inside a percent
// escape is still cleaned and reported as broken.
func ParseLink(raw string) (Inbound, error) {
	raw = strings.TrimSpace(raw)
	base, fragment, found := strings.Cut(raw, "#")
	if !found || !strings.HasPrefix(fragment, ImportMarker) {
		return Inbound{CleanURL: raw}, ErrNoImport
	}

	in := Inbound{CleanURL: base}
	token, err := url.PathUnescape(strings.TrimPrefix(fragment, ImportMarker))
	if err != nil {
		return in, &BrokenLinkError{Err: &snapshot.DecodeError{Kind: snapshot.KindCorrupt, Err: err}}
	}

	p, err := snapshot.Decode(token)
	if err != nil {
		var decodeErr *snapshot.DecodeError
		if errors.As(err, &decodeErr) {
			return in, &BrokenLinkError{Err: decodeErr}
		}
		return in, err
	}
	in.Snapshot = p
	return in, nil
}
