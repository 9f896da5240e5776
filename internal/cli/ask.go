package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/clubhouse/internal/advice"
)

func runAsk(ctx context.Context, a *app, args []string) error {
	fs := newFlags("ask", a)
	if err := parse(fs, args); err != nil {
		return err
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return usageErr(a, "ask <question>")
	}

	client, err := a.advisor()
	if err != nil {
		return err
	}
	answer, err := client.Advice(ctx, question)
	if err != nil {
		return err
	}
	a.printAnswer(answer)
	return nil
}

func runPlaces(ctx context.Context, a *app, args []string) error {
	fs := newFlags("places", a)
	course := fs.String("course", "", "golf course name (default: the home course)")
	meal := fs.String("meal", "", "meal to plan, e.g. 점심 or 저녁")
	if err := parse(fs, args); err != nil {
		return err
	}

	if strings.TrimSpace(*course) == "" {
		venue, err := advice.HomeVenue()
		if err != nil {
			return err
		}
		*course = venue.Name
	}

	client, err := a.advisor()
	if err != nil {
		return err
	}
	answer, err := client.Places(ctx, *course, strings.TrimSpace(*meal))
	if err != nil {
		return err
	}
	a.printAnswer(answer)
	return nil
}

func (a *app) advisor() (*advice.Client, error) {
	return advice.NewClient(advice.Config{
		BaseURL: a.cfg.Advice.BaseURL,
		APIKey:  a.cfg.Advice.APIKey,
		Model:   a.cfg.Advice.Model,
		Logger:  a.logger,
	})
}

func (a *app) printAnswer(answer advice.Answer) {
	fmt.Fprintln(a.out, answer.Text)
	if len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(a.out, "\nSources:")
	for _, s := range answer.Sources {
		fmt.Fprintf(a.out, "  - %s: %s\n", s.Title, s.Link)
	}
}
