package share

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mmynk/clubhouse/internal/models"
	"github.com/mmynk/clubhouse/internal/snapshot"
)

// Preview summarises an incoming snapshot for the confirmation step.
// Collections missing from the snapshot report -1.
type Preview struct {
	Source    string
	Members   int
	Outings   int
	Scores    int
	Fees      int
	Carryover *int64
	UpdatedAt time.Time
}

// NewPreview describes p.
func NewPreview(source string, p models.PartialSnapshot) Preview {
	pv := Preview{Source: source, Carryover: p.Carryover}
	pv.Members, pv.Outings, pv.Scores, pv.Fees = p.Counts()
	if ts := p.Timestamp(); ts > 0 {
		pv.UpdatedAt = time.UnixMilli(ts)
	}
	return pv
}

func (p Preview) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Import from %s will replace:", p.Source)
	part := func(name string, n int) {
		if n >= 0 {
			fmt.Fprintf(&b, "\n  %-9s %d", name, n)
		}
	}
	part("members", p.Members)
	part("outings", p.Outings)
	part("scores", p.Scores)
	part("fees", p.Fees)
	if p.Carryover != nil {
		fmt.Fprintf(&b, "\n  %-9s %d", "carryover", *p.Carryover)
	}
	if !p.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "\nData saved %s.", p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

// Confirmer asks the user before local data is overwritten.
type Confirmer interface {
	ConfirmImport(ctx context.Context, p Preview) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Preview) (bool, error)

func (f ConfirmFunc) ConfirmImport(ctx context.Context, p Preview) (bool, error) {
	return f(ctx, p)
}

// AlwaysConfirm accepts every import, for non-interactive use.
var AlwaysConfirm = ConfirmFunc(func(context.Context, Preview) (bool, error) { return true, nil })

// ImportLink reads raw, asks c, and imports on approval. The returned
// Inbound carries the cleaned URL in every outcome. Declining writes
// nothing and is not an error.
func ImportLink(ctx context.Context, raw string, imp Importer, c Confirmer) (in Inbound, imported bool, err error) {
	in, err = ParseLink(raw)
	if err != nil {
		return in, false, err
	}
	imported, err = confirmAndImport(ctx, NewPreview("shared link", in.Snapshot), in.Snapshot, imp, c)
	return in, imported, err
}

// ImportToken is ImportLink for a bare pasted code.
func ImportToken(ctx context.Context, token string, imp Importer, c Confirmer) (bool, error) {
	p, err := snapshot.Decode(token)
	if err != nil {
		return false, err
	}
	return confirmAndImport(ctx, NewPreview("pasted code", p), p, imp, c)
}

// ImportFile reads an exported file, asks c, and imports on approval. The
// file is JSON, so the token codec is not involved.
func ImportFile(ctx context.Context, r io.Reader, imp Importer, c Confirmer) (bool, error) {
	p, err := ReadFile(r)
	if err != nil {
		return false, err
	}
	return confirmAndImport(ctx, NewPreview("file", p), p, imp, c)
}

func confirmAndImport(ctx context.Context, pv Preview, p models.PartialSnapshot, imp Importer, c Confirmer) (bool, error) {
	ok, err := c.ConfirmImport(ctx, pv)
	if err != nil {
		return false, fmt.Errorf("confirm import: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := imp.Import(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}
