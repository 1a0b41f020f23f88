package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cine-social/cine-cli/internal/api"
	"github.com/cine-social/cine-cli/internal/auth"
	"github.com/cine-social/cine-cli/internal/config"
	"github.com/cine-social/cine-cli/internal/logging"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrSelfFollow is returned when the session user targets itself.
var ErrSelfFollow = errors.New("you cannot follow yourself")

// CmdUser is the "user" command group.
var CmdUser = newCmdUser()

func newCmdUser() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "View profiles and follow users",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowSubcommandHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show a user's profile and counters",
				ArgsUsage: "<user-id|me>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: runUserGet,
			},
			{
				Name:      "follow",
				Usage:     "Follow a user",
				ArgsUsage: "<user-id>",
				Action:    runUserFollow(true),
			},
			{
				Name:      "unfollow",
				Usage:     "Stop following a user",
				ArgsUsage: "<user-id>",
				Action:    runUserFollow(false),
			},
		},
	}
}

// Profile is a user with their counters.
type Profile struct {
	User  api.User      `json:"user"`
	Stats api.UserStats `json:"stats"`
}

// FetchProfile loads the user and their counters in parallel.
func FetchProfile(ctx context.Context, client *api.Client, creds api.Credentials, userID string) (*Profile, error) {
	var p Profile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := client.FetchUser(gctx, creds, userID)
		if err != nil {
			return err
		}
		p.User = *u
		return nil
	})
	g.Go(func() error {
		st, err := client.FetchUserStats(gctx, creds, userID)
		if err != nil {
			return err
		}
		p.Stats = *st
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &p, nil
}

func userArg(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return "", fmt.Errorf("usage: cine user %s %s", cmd.Name, cmd.ArgsUsage)
	}
	return id, nil
}

func newClient(ctx context.Context, cmd *cli.Command) (*api.Client, error) {
	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return nil, err
	}
	return cfg.Client(logging.FromContext(ctx)), nil
}

func runUserGet(ctx context.Context, cmd *cli.Command) error {
	id, err := userArg(cmd)
	if err != nil {
		return err
	}

	sess, err := auth.LookupSession(id == "me")
	if err != nil {
		return err
	}
	var creds api.Credentials
	self := false
	if sess != nil {
		creds = sess.Credentials()
		if id == "me" {
			id = sess.User.ID
		}
		self = id == sess.User.ID
	}

	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}
	p, err := FetchProfile(ctx, client, creds, id)
	if err != nil {
		return fmt.Errorf("failed to fetch user: %w", err)
	}

	w := cmd.Root().Writer
	if cmd.Bool("json") {
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	printProfile(w, p, sess != nil && !self)
	return nil
}

func printProfile(w io.Writer, p *Profile, showFollowed bool) {
	name := "@" + p.User.Username
	if p.User.DisplayName != "" && p.User.DisplayName != p.User.Username {
		name = fmt.Sprintf("%s (@%s)", p.User.DisplayName, p.User.Username)
	}
	fmt.Fprintf(w, "User:       %s\n", name)
	fmt.Fprintf(w, "ID:         %s\n", p.User.ID)
	fmt.Fprintf(w, "Followers:  %d\n", p.Stats.FollowersCount)
	fmt.Fprintf(w, "Following:  %d\n", p.Stats.FollowingCount)
	fmt.Fprintf(w, "Comments:   %d\n", p.Stats.CommentsCount)
	fmt.Fprintf(w, "Reviews:    %d\n", p.Stats.ReviewsCount)
	fmt.Fprintf(w, "Likes:      %d\n", p.Stats.LikesCount)
	fmt.Fprintf(w, "Lists:      %d\n", p.Stats.ListsCount)
	if showFollowed {
		followed := "no"
		if p.Stats.Followed {
			followed = "yes"
		}
		fmt.Fprintf(w, "Followed:   %s\n", followed)
	}
}

// runUserFollow follows the user when follow is set, unfollows otherwise.
func runUserFollow(follow bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id, err := userArg(cmd)
		if err != nil {
			return err
		}
		sess, err := auth.RequireSession()
		if err != nil {
			return err
		}
		if id == sess.User.ID || id == "me" {
			return ErrSelfFollow
		}

		client, err := newClient(ctx, cmd)
		if err != nil {
			return err
		}

		verb := "Following"
		if follow {
			err = client.FollowUser(ctx, sess.Credentials(), id)
		} else {
			verb = "No longer following"
			err = client.UnfollowUser(ctx, sess.Credentials(), id)
		}
		if err != nil {
			logging.FromContext(ctx).Warn("follow change failed", zap.String("user", id), zap.Bool("follow", follow), zap.Error(err))
			return fmt.Errorf("failed to update follow: %w", err)
		}

		fmt.Fprintf(cmd.Root().Writer, "%s %s\n", verb, id)
		return nil
	}
}
