package cli

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mmynk/clubhouse/internal/ledger"
	"github.com/mmynk/clubhouse/internal/models"
)

func runDashboard(ctx context.Context, a *app, args []string) error {
	fs := newFlags("dashboard", a)
	if err := parse(fs, args); err != nil {
		return err
	}

	d := a.svc.Dashboard(ctx)
	fmt.Fprintf(a.out, "Members        %d\n", d.Members)
	fmt.Fprintf(a.out, "Average score  %.1f\n", d.AverageScore)
	fmt.Fprintf(a.out, "Club balance   %s\n", won(d.Ledger.Balance))
	fmt.Fprintf(a.out, "Unpaid fees    %d\n", d.UnpaidCount)

	if len(d.Upcoming) > 0 {
		fmt.Fprintln(a.out, "\nUpcoming outings")
		for _, o := range d.Upcoming {
			fmt.Fprintf(a.out, "  %s  %s @ %s (%d going)\n", o.Date, o.Title, o.CourseName, len(o.Participants))
		}
	}
	if len(d.Leaderboard) > 0 {
		fmt.Fprintln(a.out, "\nBest rounds")
		for i, st := range d.Leaderboard {
			fmt.Fprintf(a.out, "  %d. %s %d (%s)\n", i+1, displayName(st.Name, st.Nickname), st.Score.TotalScore, st.Score.Date)
		}
	}
	if len(d.Trend) > 0 {
		fmt.Fprintf(a.out, "\nRecent trend   %s\n", joinInts(d.Trend))
	}
	if len(d.RecentPhotos) > 0 {
		fmt.Fprintf(a.out, "Recent photos  %d\n", len(d.RecentPhotos))
	}
	return nil
}

func runMember(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	switch sub {
	case "list":
		w := table(a)
		fmt.Fprintln(w, "ID\tNAME\tHANDICAP\tANNUAL TARGET")
		for _, m := range a.svc.ListMembers(ctx) {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.ID, displayName(m.Name, m.Nickname), m.Handicap, won(m.AnnualFeeTarget))
		}
		return w.Flush()

	case "add", "update":
		fs := newFlags("member "+sub, a)
		id := fs.String("id", "", "member id (update only)")
		name := fs.String("name", "", "display name")
		nick := fs.String("nick", "", "nickname")
		handicap := fs.Int("handicap", -1, "handicap 0-72")
		target := fs.Int64("target", -1, "annual fee target")
		avatar := fs.String("avatar", "", "avatar URL")
		if err := parse(fs, args); err != nil {
			return err
		}

		var m models.Member
		if sub == "update" {
			existing, err := a.svc.GetMember(ctx, *id)
			if err != nil {
				return err
			}
			m = existing
		}
		set := setFlags(fs)
		if set["name"] {
			m.Name = *name
		}
		if set["nick"] {
			m.Nickname = *nick
		}
		if set["handicap"] {
			m.Handicap = *handicap
		}
		if set["target"] {
			m.AnnualFeeTarget = *target
		}
		if set["avatar"] {
			m.Avatar = *avatar
		}

		var err error
		if sub == "add" {
			m, err = a.svc.AddMember(ctx, m)
		} else {
			m, err = a.svc.UpdateMember(ctx, m)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s\n", m.ID, m.Name)
		return nil

	case "rm":
		if len(args) != 1 {
			return usageErr(a, "member rm <id>")
		}
		return a.svc.DeleteMember(ctx, args[0])

	default:
		return unknownSub(a, "member", sub, "list", "add", "update", "rm")
	}
}

func runOuting(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	switch sub {
	case "list":
		members := models.IndexMembers(a.svc.ListMembers(ctx))
		w := table(a)
		fmt.Fprintln(w, "ID\tDATE\tTITLE\tCOURSE\tSTATUS\tROSTER")
		for _, o := range a.svc.ListOutings(ctx) {
			names := make([]string, 0, len(o.Roster()))
			for _, id := range o.Roster() {
				names = append(names, members.Name(id))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", o.ID, o.Date, o.Title, o.CourseName, o.Status, strings.Join(names, ", "))
		}
		return w.Flush()

	case "add", "update":
		fs := newFlags("outing "+sub, a)
		id := fs.String("id", "", "outing id (update only)")
		title := fs.String("title", "", "title")
		date := fs.String("date", "", "date, YYYY-MM-DD")
		course := fs.String("course", "", "course name")
		location := fs.String("location", "", "location")
		status := fs.String("status", "", "upcoming, completed or cancelled")
		lunch := fs.String("lunch", "", "lunch place")
		lunchTime := fs.String("lunch-time", "", "lunch time")
		dinner := fs.String("dinner", "", "dinner place")
		dinnerTime := fs.String("dinner-time", "", "dinner time")
		if err := parse(fs, args); err != nil {
			return err
		}

		var o models.Outing
		if sub == "update" {
			found := false
			for _, existing := range a.svc.ListOutings(ctx) {
				if existing.ID == *id {
					o, found = existing, true
					break
				}
			}
			if !found {
				return fmt.Errorf("outing %q not found", *id)
			}
		}
		set := setFlags(fs)
		assign := map[string]*string{
			"title": &o.Title, "date": &o.Date, "course": &o.CourseName, "location": &o.Location,
			"lunch": &o.LunchLocation, "lunch-time": &o.LunchTime,
			"dinner": &o.DinnerLocation, "dinner-time": &o.DinnerTime,
		}
		values := map[string]string{
			"title": *title, "date": *date, "course": *course, "location": *location,
			"lunch": *lunch, "lunch-time": *lunchTime, "dinner": *dinner, "dinner-time": *dinnerTime,
		}
		for name, dst := range assign {
			if set[name] {
				*dst = values[name]
			}
		}
		if set["status"] {
			o.Status = models.OutingStatus(*status)
		}

		var err error
		if sub == "add" {
			o, err = a.svc.AddOuting(ctx, o)
		} else {
			o, err = a.svc.UpdateOuting(ctx, o)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s\n", o.ID, o.Title)
		return nil

	case "join":
		if len(args) != 2 {
			return usageErr(a, "outing join <outing-id> <member-id>")
		}
		joined, err := a.svc.ToggleParticipant(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if joined {
			fmt.Fprintln(a.out, "joined")
		} else {
			fmt.Fprintln(a.out, "left")
		}
		return nil

	case "groups":
		if len(args) < 1 {
			return usageErr(a, "outing groups <outing-id> [name@tee=id,id ...]")
		}
		groups, err := parseGroups(args[1:])
		if err != nil {
			return err
		}
		return a.svc.SetGroups(ctx, args[0], groups)

	case "rm":
		if len(args) != 1 {
			return usageErr(a, "outing rm <id>")
		}
		return a.svc.DeleteOuting(ctx, args[0])

	default:
		return unknownSub(a, "outing", sub, "list", "add", "update", "join", "groups", "rm")
	}
}

// parseGroups reads groups written as "Name@08:10=id1,id2". The tee time is
// optional and entries starting with "+" are guests.
func parseGroups(specs []string) ([]models.Group, error) {
	groups := make([]models.Group, 0, len(specs))
	for _, spec := range specs {
		head, list, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("group %q: want name=id,id", spec)
		}
		g := models.Group{MemberIDs: []string{}}
		g.Name, g.TeeTime, _ = strings.Cut(head, "@")
		for _, id := range strings.Split(list, ",") {
			id = strings.TrimSpace(id)
			switch {
			case id == "":
			case strings.HasPrefix(id, "+"):
				g.Guests = append(g.Guests, strings.TrimPrefix(id, "+"))
			default:
				g.MemberIDs = append(g.MemberIDs, id)
			}
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func runScore(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	switch sub {
	case "list":
		members := models.IndexMembers(a.svc.ListMembers(ctx))
		w := table(a)
		fmt.Fprintln(w, "ID\tDATE\tMEMBER\tTOTAL\tOUTING\tPHOTO")
		for _, sc := range a.svc.ListScores(ctx) {
			photo := ""
			if sc.HasPhoto() {
				photo = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", sc.ID, sc.Date, members.Name(sc.MemberID), sc.TotalScore, sc.OutingID, photo)
		}
		return w.Flush()

	case "add":
		fs := newFlags("score add", a)
		member := fs.String("member", "", "member id")
		outing := fs.String("outing", models.ExternalOutingID, "outing id")
		total := fs.Int("total", 0, "gross strokes")
		putts := fs.Int("putts", -1, "putts")
		fairways := fs.Int("fairways", -1, "fairways hit")
		date := fs.String("date", "", "date, YYYY-MM-DD (default today)")
		photo := fs.String("photo", "", "scorecard or group photo file")
		if err := parse(fs, args); err != nil {
			return err
		}

		sc := models.RoundScore{MemberID: *member, OutingID: *outing, TotalScore: *total, Date: *date}
		if *putts >= 0 {
			sc.Putts = putts
		}
		if *fairways >= 0 {
			sc.FairwaysHit = fairways
		}
		if *photo != "" {
			uri, err := dataURI(*photo)
			if err != nil {
				return err
			}
			sc.ImageURL = uri
		}
		sc, err := a.svc.AddScore(ctx, sc)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %d\n", sc.ID, sc.TotalScore)
		return nil

	case "board":
		fs := newFlags("score board", a)
		period := fs.String("month", a.now().Format("2006-01"), "month as YYYY-MM, or a year as YYYY")
		limit := fs.Int("n", 10, "rounds to show, 0 for all")
		if err := parse(fs, args); err != nil {
			return err
		}
		year, month, err := parsePeriod(*period)
		if err != nil {
			return err
		}
		w := table(a)
		fmt.Fprintln(w, "RANK\tMEMBER\tTOTAL\tDATE")
		for i, st := range a.svc.MonthlyLeaderboard(ctx, year, month, *limit) {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i+1, displayName(st.Name, st.Nickname), st.Score.TotalScore, st.Score.Date)
		}
		return w.Flush()

	case "rm":
		if len(args) != 1 {
			return usageErr(a, "score rm <id>")
		}
		return a.svc.DeleteScore(ctx, args[0])

	default:
		return unknownSub(a, "score", sub, "list", "add", "board", "rm")
	}
}

// parsePeriod reads "2024-06" as June 2024 and "2024" as the whole year
// (month zero).
func parsePeriod(s string) (int, time.Month, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01", s); err == nil {
		return t.Year(), t.Month(), nil
	}
	if t, err := time.Parse("2006", s); err == nil {
		return t.Year(), 0, nil
	}
	return 0, 0, fmt.Errorf("period %q: want YYYY-MM or YYYY", s)
}

// dataURI inlines an image file the way the web client stores photos.
func dataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if typ == "" {
		typ = http.DetectContentType(data)
	}
	if !strings.HasPrefix(typ, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, typ)
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func runFee(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	switch sub {
	case "list":
		fs := newFlags("fee list", a)
		filter := fs.String("filter", "all", "all, paid or unpaid")
		search := fs.String("search", "", "member name or nickname")
		if err := parse(fs, args); err != nil {
			return err
		}
		status, err := ledger.ParseStatusFilter(*filter)
		if err != nil {
			return err
		}
		members := a.svc.ListMembers(ctx)
		fees := ledger.Search(ledger.Filter(a.svc.ListFees(ctx), status), members, *search)
		idx := models.IndexMembers(members)

		w := table(a)
		fmt.Fprintln(w, "ID\tDATE\tMEMBER\tPURPOSE\tAMOUNT\tSTATUS")
		for _, f := range fees {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", f.ID, f.Date, idx.Name(f.MemberID), f.Purpose, won(f.Amount), f.Status)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		s := ledger.Summarize(a.svc.ListFees(ctx), a.svc.Carryover(ctx))
		fmt.Fprintf(a.out, "\ncollected %s  unpaid %s  carryover %s  balance %s\n",
			won(s.Collected), won(s.Unpaid), won(s.Carryover), won(s.Balance))
		return nil

	case "progress":
		w := table(a)
		fmt.Fprintln(w, "MEMBER\tPAID\tTARGET\tREMAINING\t%")
		for _, p := range ledger.MemberProgress(a.svc.ListMembers(ctx), a.svc.ListFees(ctx)) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", displayName(p.Name, p.Nickname), won(p.Paid), won(p.Target), won(p.Remaining), p.Percent())
		}
		return w.Flush()

	case "add":
		fs := newFlags("fee add", a)
		member := fs.String("member", "", "member id")
		amount := fs.Int64("amount", 0, "amount")
		purpose := fs.String("purpose", "annual dues", "purpose")
		paid := fs.Bool("paid", false, "already paid")
		date := fs.String("date", "", "date, YYYY-MM-DD (default today)")
		memo := fs.String("memo", "", "memo")
		if err := parse(fs, args); err != nil {
			return err
		}
		f := models.FeeRecord{MemberID: *member, Amount: *amount, Purpose: *purpose, Date: *date, Memo: *memo, Status: models.FeeUnpaid}
		if *paid {
			f.Status = models.FeePaid
		}
		f, err := a.svc.AddFee(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s %s\n", f.ID, won(f.Amount), f.Status)
		return nil

	case "toggle":
		if len(args) != 1 {
			return usageErr(a, "fee toggle <id>")
		}
		status, err := a.svc.ToggleFee(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, status)
		return nil

	case "rm":
		if len(args) != 1 {
			return usageErr(a, "fee rm <id>")
		}
		return a.svc.DeleteFee(ctx, args[0])

	case "carryover":
		if len(args) == 0 {
			fmt.Fprintln(a.out, won(a.svc.Carryover(ctx)))
			return nil
		}
		amount, err := strconv.ParseInt(strings.ReplaceAll(args[0], ",", ""), 10, 64)
		if err != nil {
			return fmt.Errorf("carryover %q is not a whole number", args[0])
		}
		return a.svc.SetCarryover(ctx, amount)

	default:
		return unknownSub(a, "fee", sub, "list", "progress", "add", "toggle", "rm", "carryover")
	}
}

func table(a *app) *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

// setFlags names the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func displayName(name, nickname string) string {
	if nickname == "" {
		return name
	}
	return name + " (" + nickname + ")"
}

// won formats an amount with thousands separators.
func won(n int64) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	s := strconv.FormatInt(n, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " → ")
}

func usageErr(a *app, usage string) error {
	fmt.Fprintf(a.errOut, "usage: clubhouse %s\n", usage)
	return ErrUsage
}
