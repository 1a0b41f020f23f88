package reviews

import (
	"context"
	"fmt"
	"strings"

	"github.com/cine-social/cine-cli/internal/api"
	"github.com/cine-social/cine-cli/internal/auth"
	"github.com/cine-social/cine-cli/internal/config"
	"github.com/cine-social/cine-cli/internal/logging"
	"github.com/urfave/cli/v3"
)

// CmdReview is the "review" command group.
var CmdReview = newCmdReview()

func newCmdReview() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "View or manage reviews of movies and shows",
		Description: `Each user has at most one review per movie or show, rated 1 to 10.
Writing requires a session (run: cine account login).

Examples:
  cine review get movie 550                        List reviews, yours first
  cine review add movie 550 --rating 9 "Tense"     Review a movie
  cine review edit movie 550 --rating 8            Change your rating
  cine review delete movie 550                     Delete your review`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowSubcommandHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show the reviews of a movie or show",
				ArgsUsage: "<movie|show> <ref>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: runReviewGet,
			},
			{
				Name:      "add",
				Usage:     "Review a movie or show",
				ArgsUsage: "<movie|show> <ref> <text>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "rating", Aliases: []string{"r"}, Usage: "Rating from 1 to 10", Required: true},
				},
				Action: runReviewAdd,
			},
			{
				Name:      "edit",
				Usage:     "Change the text or rating of your review",
				ArgsUsage: "<movie|show> <ref> [text]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "rating", Aliases: []string{"r"}, Usage: "New rating from 1 to 10"},
				},
				Action: runReviewEdit,
			},
			{
				Name:      "delete",
				Usage:     "Delete your review",
				ArgsUsage: "<movie|show> <ref>",
				Action:    runReviewDelete,
			},
		},
	}
}

// openBoard builds and loads the board addressed by the first two arguments.
func openBoard(ctx context.Context, cmd *cli.Command, requireLogin bool) (*Board, error) {
	args := cmd.Args()
	if args.Len() < 2 {
		return nil, fmt.Errorf("usage: cine review %s %s", cmd.Name, cmd.ArgsUsage)
	}
	media, err := api.ParseMediaType(args.Get(0))
	if err != nil {
		return nil, err
	}
	ref, err := api.ParseRef(args.Get(1))
	if err != nil {
		return nil, err
	}

	sess, err := auth.LookupSession(requireLogin)
	if err != nil {
		return nil, err
	}
	var (
		user  api.User
		creds api.Credentials
	)
	if sess != nil {
		user, creds = sess.User, sess.Credentials()
	}

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx)

	b := NewBoard(cfg.Client(log), user, creds, media, ref, log)
	if err := b.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch reviews: %w", err)
	}
	return b, nil
}

func runReviewGet(ctx context.Context, cmd *cli.Command) error {
	b, err := openBoard(ctx, cmd, false)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return FormatJSON(cmd.Root().Writer, b.List())
	}
	FormatText(cmd.Root().Writer, b.List())
	return nil
}

func runReviewAdd(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 3 {
		return fmt.Errorf("usage: cine review add --rating <1-10> <movie|show> <ref> <text>")
	}
	in := api.ReviewInput{
		Content: strings.Join(cmd.Args().Slice()[2:], " "),
		Rating:  int(cmd.Int("rating")),
	}
	if err := ValidateReview(in); err != nil {
		return err
	}

	b, err := openBoard(ctx, cmd, true)
	if err != nil {
		return err
	}
	created, err := b.Create(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Review posted: %s (%d/10)\n", created.Review.ID, created.Review.Rating)
	return nil
}

func runReviewEdit(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 3 && !cmd.IsSet("rating") {
		return fmt.Errorf("nothing to edit: pass new text, --rating, or both")
	}

	b, err := openBoard(ctx, cmd, true)
	if err != nil {
		return err
	}
	own, ok := b.Own()
	if !ok {
		return ErrNoReview
	}

	in := api.ReviewInput{Content: own.Review.Content, Rating: own.Review.Rating}
	if cmd.Args().Len() >= 3 {
		in.Content = strings.Join(cmd.Args().Slice()[2:], " ")
	}
	if cmd.IsSet("rating") {
		in.Rating = int(cmd.Int("rating"))
	}

	updated, err := b.Edit(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to edit review: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Review edited: %s (%d/10)\n", updated.Review.ID, updated.Review.Rating)
	return nil
}

func runReviewDelete(ctx context.Context, cmd *cli.Command) error {
	b, err := openBoard(ctx, cmd, true)
	if err != nil {
		return err
	}
	id, err := b.Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Review deleted: %s\n", id)
	return nil
}
