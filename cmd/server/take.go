package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/casanoova/compass/internal/client"
	"github.com/casanoova/compass/internal/models"
	"github.com/casanoova/compass/internal/services"
)

func takeCmd() *cobra.Command {
	var baseURL, lang string
	cmd := &cobra.Command{
		Use:   "take <token>",
		Short: "Answer a survey interactively against a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(baseURL).WithLocale(lang)
			return runTake(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), c, args[0])
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&lang, "lang", "", "preferred label language, e.g. de")
	return cmd
}

var errInputClosed = errors.New("input ended before the survey was submitted")

func describe(d services.Draft) string {
	if d.Polarity == nil || d.Weight == nil {
		return ""
	}
	return fmt.Sprintf(" (current: %s %s)", *d.Polarity, *d.Weight)
}

// runTake drives a Collector from line input: 1/2 picks the adjective, h/l
// the frequency, b goes back one pair.
func runTake(ctx context.Context, in io.Reader, out io.Writer, c *client.Client, token string) error {
	st, err := c.Status(ctx, token)
	if err != nil {
		return err
	}
	if st.Status == models.InviteCompleted {
		fmt.Fprintln(out, "This survey was already completed.")
		if st.Point != nil {
			fmt.Fprintf(out, "Your point: x=%.3f y=%.3f\n", st.Point.X, st.Point.Y)
		}
		return nil
	}

	adjs, err := c.Adjectives(ctx, token)
	if err != nil {
		return err
	}
	byID := make(map[string]services.AdjectiveView, len(adjs))
	ids := make([]string, 0, len(adjs))
	for _, a := range adjs {
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}
	col, err := services.NewCollector(ids, func(ctx context.Context, rs []services.ResponseInput) (services.Point, error) {
		return c.Submit(ctx, token, rs)
	})
	if err != nil {
		return err
	}

	sc := bufio.NewScanner(in)
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return strings.ToLower(strings.TrimSpace(sc.Text())), true
	}

	for {
		id, draft := col.Current()
		adj := byID[id]
		fmt.Fprintf(out, "[%d/%d] 1) %s   2) %s   b) back%s\n> ", col.Index()+1, col.Len(), adj.PositiveAdjective, adj.NegativeAdjective, describe(draft))
		line, ok := next()
		if !ok {
			return errInputClosed
		}
		switch line {
		case "b":
			if !col.Retreat() {
				fmt.Fprintln(out, "Already at the first pair.")
			}
			continue
		case "1":
			col.SetPolarity(models.PolarityPositive)
		case "2":
			col.SetPolarity(models.PolarityNegative)
		default:
			fmt.Fprintln(out, "Choose 1, 2 or b.")
			continue
		}

		fmt.Fprint(out, "How often? h) often   l) sometimes\n> ")
		line, ok = next()
		if !ok {
			return errInputClosed
		}
		switch line {
		case "h":
			col.SetWeight(models.WeightHigh)
		case "l":
			col.SetWeight(models.WeightLow)
		default:
			fmt.Fprintln(out, "Choose h or l.")
			continue
		}

		res, err := col.Advance(ctx)
		if err != nil {
			return err
		}
		if res.Submitted {
			fmt.Fprintf(out, "Submitted. Your point: x=%.3f y=%.3f\n", res.Point.X, res.Point.Y)
			return nil
		}
	}
}
