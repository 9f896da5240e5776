package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mmynk/clubhouse/internal/share"
	"github.com/mmynk/clubhouse/internal/snapshot"
)

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlags("export", a)
	dir := fs.String("dir", ".", "directory to write into")
	if err := parse(fs, args); err != nil {
		return err
	}
	path, err := share.ExportFile(*dir, a.builder.Build(ctx), a.now())
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, path)
	return nil
}

func runToken(ctx context.Context, a *app, args []string) error {
	fs := newFlags("token", a)
	copyOut := fs.Bool("copy", false, "also copy to the clipboard")
	if err := parse(fs, args); err != nil {
		return err
	}
	snap := a.builder.Build(ctx)

	var (
		token string
		err   error
	)
	if *copyOut {
		token, err = share.CopyToken(a.clip, snap)
	} else {
		token, err = share.Token(snap)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	return nil
}

func runLink(ctx context.Context, a *app, args []string) error {
	fs := newFlags("link", a)
	base := fs.String("base", "", "app URL (default app_url from config)")
	copyOut := fs.Bool("copy", false, "also copy to the clipboard")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *base == "" {
		*base = a.cfg.AppURL
	}
	if *base == "" {
		return errors.New("no app URL: pass -base or set app_url in the config")
	}
	snap := a.builder.Build(ctx)

	var (
		link string
		err  error
	)
	if *copyOut {
		link, err = share.CopyLink(a.clip, *base, snap)
	} else {
		link, err = share.Link(*base, snap)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, link)
	if share.IsLong(link) {
		fmt.Fprintf(a.errOut, "warning: this link is %d characters long and chat apps may cut it short; send the file from `clubhouse export` instead\n", len(link))
	}
	return nil
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := newFlags("import", a)
	token := fs.String("token", "", "pasted share code")
	file := fs.String("file", "", "exported JSON file")
	link := fs.String("link", "", "share link")
	fromClipboard := fs.Bool("clipboard", false, "read a code or link from the clipboard")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}

	sources := 0
	for _, set := range []bool{*token != "", *file != "", *link != "", *fromClipboard} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return usageErr(a, "import (-token CODE | -file PATH | -link URL | -clipboard) [-yes]")
	}

	var confirmer share.Confirmer = share.AlwaysConfirm
	if !*yes {
		confirmer = &promptConfirmer{in: bufio.NewReader(a.stdin), out: a.errOut}
	}

	if *fromClipboard {
		text, err := a.clip.ReadAll()
		if err != nil {
			return fmt.Errorf("read clipboard: %w", err)
		}
		text = strings.TrimSpace(text)
		if strings.Contains(text, "#"+share.ImportMarker) {
			*link = text
		} else {
			*token = text
		}
	}

	var (
		imported bool
		err      error
	)
	switch {
	case *file != "":
		f, openErr := os.Open(*file)
		if openErr != nil {
			return fmt.Errorf("open import file: %w", openErr)
		}
		defer f.Close()
		imported, err = share.ImportFile(ctx, f, a.engine, confirmer)
	case *link != "":
		var in share.Inbound
		in, imported, err = share.ImportLink(ctx, *link, a.engine, confirmer)
		if in.CleanURL != "" && in.CleanURL != *link {
			fmt.Fprintf(a.errOut, "app: %s\n", in.CleanURL)
		}
	default:
		imported, err = share.ImportToken(ctx, *token, a.engine, confirmer)
	}

	if err != nil {
		return explainImportError(err)
	}
	if imported {
		fmt.Fprintln(a.out, "Imported.")
	} else {
		fmt.Fprintln(a.out, "Import cancelled; nothing was changed.")
	}
	return nil
}

// explainImportError adds what the user can do about a broken code or link.
func explainImportError(err error) error {
	var broken *share.BrokenLinkError
	if errors.As(err, &broken) {
		return fmt.Errorf("%w\n%s", err, broken.Guidance())
	}
	var decodeErr *snapshot.DecodeError
	if errors.As(err, &decodeErr) {
		return fmt.Errorf("%w\n%s", err, decodeErr.Guidance())
	}
	return err
}

// promptConfirmer asks on the terminal. Anything but y or yes declines.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *promptConfirmer) ConfirmImport(_ context.Context, pv share.Preview) (bool, error) {
	fmt.Fprintf(p.out, "%s\nReplace local data? [y/N] ", pv)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
