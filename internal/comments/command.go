package comments

import (
	"context"
	"fmt"
	"strings"

	"github.com/cine-social/cine-cli/internal/api"
	"github.com/cine-social/cine-cli/internal/auth"
	"github.com/cine-social/cine-cli/internal/config"
	"github.com/cine-social/cine-cli/internal/logging"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// CmdComment is the "comment" command group.
var CmdComment = newCmdComment()

// newCmdComment builds the command tree. Flags hold parsed values, so each
// run that must start clean gets its own tree.
func newCmdComment() *cli.Command {
	return &cli.Command{
		Name:  "comment",
		Usage: "View or manage comments on movies and shows",
		Description: `Read and write the threaded comment section of a movie or show.

Media is addressed by type and TMDB reference, e.g. "movie 550" or "show 1399".
Replies are fetched on demand: use --expand to open a comment or --all to
open the whole thread. Writing requires a session (run: cine account login).

Examples:
  cine comment get movie 550                       View top-level comments
  cine comment get movie 550 --all --json          Whole thread as JSON
  cine comment add movie 550 "Great film"          Post a comment
  cine comment add --reply-to <id> movie 550 "+1"  Reply to a comment
  cine comment like movie 550 <id>                 Like a comment
  cine comment delete movie 550 <id>               Delete a comment and its replies`,
		Action: fallbackAction,
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show the comments of a movie or show",
				ArgsUsage: "<movie|show> <ref>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "expand",
						Usage: "Expand the comment with this id (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Expand every comment that has replies",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Parallel reply fetches for --all",
						Value: DefaultFetchConcurrency,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
				},
				Action: runCommentGet,
			},
			{
				Name:      "add",
				Usage:     "Post a comment",
				ArgsUsage: "<movie|show> <ref> <text>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "reply-to",
						Usage: "Id of the comment to reply to",
					},
				},
				Action: runCommentAdd,
			},
			{
				Name:      "edit",
				Usage:     "Replace the text of one of your comments",
				ArgsUsage: "<movie|show> <ref> <id> <text>",
				Action:    runCommentEdit,
			},
			{
				Name:      "delete",
				Usage:     "Delete a comment and every reply below it",
				ArgsUsage: "<movie|show> <ref> <id>",
				Action:    runCommentDelete,
			},
			{
				Name:      "like",
				Usage:     "Like a comment",
				ArgsUsage: "<movie|show> <ref> <id>",
				Action:    runCommentLike(true),
			},
			{
				Name:      "unlike",
				Usage:     "Remove your like from a comment",
				ArgsUsage: "<movie|show> <ref> <id>",
				Action:    runCommentLike(false),
			},
		},
	}
}

// target parses the leading <movie|show> <ref> arguments.
func target(cmd *cli.Command) (api.MediaType, int, error) {
	args := cmd.Args()
	if args.Len() < 2 {
		return "", 0, fmt.Errorf("usage: cine comment %s %s", cmd.Name, cmd.ArgsUsage)
	}
	media, err := api.ParseMediaType(args.Get(0))
	if err != nil {
		return "", 0, err
	}
	ref, err := api.ParseRef(args.Get(1))
	if err != nil {
		return "", 0, err
	}
	return media, ref, nil
}

func parseCommentID(s string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid comment id %q: %w", s, err)
	}
	return id.String(), nil
}

// openSection builds and loads the section addressed by the command
// arguments. Without a session the section is read anonymously unless
// requireLogin is set.
func openSection(ctx context.Context, cmd *cli.Command, requireLogin bool, opts ...SectionOption) (*Section, error) {
	media, ref, err := target(cmd)
	if err != nil {
		return nil, err
	}

	var viewer Viewer
	sess, err := auth.LookupSession(requireLogin)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		viewer = Viewer{User: sess.User, Creds: sess.Credentials()}
	}

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx)

	opts = append([]SectionOption{WithSectionLogger(log)}, opts...)
	s := NewSection(cfg.Client(log), viewer, media, ref, opts...)
	if err := s.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	return s, nil
}

// runCommentGet fetches and displays the comment section
func runCommentGet(ctx context.Context, cmd *cli.Command) error {
	var expand []string
	for _, raw := range cmd.StringSlice("expand") {
		id, err := parseCommentID(raw)
		if err != nil {
			return err
		}
		expand = append(expand, id)
	}

	s, err := openSection(ctx, cmd, false, WithFetchConcurrency(int(cmd.Int("concurrency"))))
	if err != nil {
		return err
	}

	if cmd.Bool("all") {
		if err := s.ExpandAll(ctx); err != nil {
			return fmt.Errorf("failed to fetch replies: %w", err)
		}
	}
	for _, id := range expand {
		if err := reveal(ctx, s, id); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		return FormatJSON(cmd.Root().Writer, s.Thread())
	}
	FormatText(cmd.Root().Writer, s.Thread())
	return nil
}

// reveal expands the comment and every ancestor so it shows in the thread.
func reveal(ctx context.Context, s *Section, id string) error {
	if _, err := s.Locate(ctx, id); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for cur := id; cur != ""; {
		if _, ok := seen[cur]; ok {
			break
		}
		seen[cur] = struct{}{}
		if err := s.SetExpanded(ctx, cur, true); err != nil {
			return fmt.Errorf("failed to fetch replies: %w", err)
		}
		dc, _ := s.Get(cur)
		cur = dc.Comment.Parent()
	}
	return nil
}

// runCommentAdd posts a comment or a reply
func runCommentAdd(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 3 {
		return fmt.Errorf("usage: cine comment add [--reply-to <id>] <movie|show> <ref> <text>")
	}
	text := strings.Join(cmd.Args().Slice()[2:], " ")
	if err := ValidateContent(text); err != nil {
		return err
	}

	var parentID string
	if raw := cmd.String("reply-to"); raw != "" {
		id, err := parseCommentID(raw)
		if err != nil {
			return err
		}
		parentID = id
	}

	s, err := openSection(ctx, cmd, true)
	if err != nil {
		return err
	}
	if parentID != "" {
		if _, err := s.Locate(ctx, parentID); err != nil {
			return fmt.Errorf("cannot reply: %w", err)
		}
	}

	created, err := s.Create(ctx, text, parentID)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Comment posted: %s\n", created.Comment.ID)
	return nil
}

// runCommentEdit replaces the content of a comment
func runCommentEdit(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 4 {
		return fmt.Errorf("usage: cine comment edit <movie|show> <ref> <id> <text>")
	}
	id, err := parseCommentID(cmd.Args().Get(2))
	if err != nil {
		return err
	}
	text := strings.Join(cmd.Args().Slice()[3:], " ")
	if err := ValidateContent(text); err != nil {
		return err
	}

	s, err := openSection(ctx, cmd, true)
	if err != nil {
		return err
	}
	if _, err := s.Locate(ctx, id); err != nil {
		return err
	}

	if _, err := s.Edit(ctx, id, text); err != nil {
		return fmt.Errorf("failed to edit comment: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Comment edited: %s\n", id)
	return nil
}

// runCommentDelete deletes a comment with its replies
func runCommentDelete(ctx context.Context, cmd *cli.Command) error {
	s, id, err := locateFromArgs(ctx, cmd)
	if err != nil {
		return err
	}

	removed, err := s.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	w := cmd.Root().Writer
	switch replies := removed - 1; {
	case replies == 1:
		fmt.Fprintf(w, "Comment deleted: %s (and 1 reply)\n", id)
	case replies > 1:
		fmt.Fprintf(w, "Comment deleted: %s (and %d replies)\n", id, replies)
	default:
		fmt.Fprintf(w, "Comment deleted: %s\n", id)
	}
	return nil
}

// runCommentLike sets the viewer's like on a comment to want
func runCommentLike(want bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		s, id, err := locateFromArgs(ctx, cmd)
		if err != nil {
			return err
		}

		w := cmd.Root().Writer
		dc, _ := s.Get(id)
		if dc.LikedByUser != want {
			if dc, err = s.ToggleLike(ctx, id); err != nil {
				return err
			}
		}

		verb := "Unliked"
		if want {
			verb = "Liked"
		}
		fmt.Fprintf(w, "%s %s (%d likes)\n", verb, id, dc.LikesCount)
		return nil
	}
}

// locateFromArgs opens the section and finds the comment named by the third
// argument.
func locateFromArgs(ctx context.Context, cmd *cli.Command) (*Section, string, error) {
	if cmd.Args().Len() < 3 {
		return nil, "", fmt.Errorf("usage: cine comment %s <movie|show> <ref> <id>", cmd.Name)
	}
	id, err := parseCommentID(cmd.Args().Get(2))
	if err != nil {
		return nil, "", err
	}

	s, err := openSection(ctx, cmd, true)
	if err != nil {
		return nil, "", err
	}
	if _, err := s.Locate(ctx, id); err != nil {
		return nil, "", err
	}
	return s, id, nil
}

// fallbackAction shows help when no subcommand is provided
func fallbackAction(ctx context.Context, cmd *cli.Command) error {
	return cli.ShowSubcommandHelp(cmd)
}
