package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cine-social/cine-cli/internal/api"
	"github.com/cine-social/cine-cli/internal/auth"
	"github.com/cine-social/cine-cli/internal/config"
	"github.com/cine-social/cine-cli/internal/logging"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// CmdAccount is the account management subcommand group
var CmdAccount = newCmdAccount()

func newCmdAccount() *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Session and account management",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Login with username and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Account username",
						Required: true,
						Sources:  cli.EnvVars("CINE_USERNAME"),
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Required: true,
						Sources:  cli.EnvVars("CINE_PASSWORD"),
					},
				},
				Action: runAccountLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account and log in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username", Required: true},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Password",
						Required: true,
						Sources:  cli.EnvVars("CINE_PASSWORD"),
					},
					&cli.StringFlag{Name: "display-name", Usage: "Display name (defaults to the username)"},
					&cli.StringFlag{Name: "profile-picture", Usage: "Profile picture URL"},
				},
				Action: runAccountRegister,
			},
			{
				Name:   "logout",
				Usage:  "End the session and delete it locally",
				Action: runAccountLogout,
			},
			{
				Name:   "status",
				Usage:  "Check login status and refresh the session",
				Action: runAccountStatus,
			},
			{
				Name:  "update",
				Usage: "Update account details",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "New username"},
					&cli.StringFlag{Name: "display-name", Usage: "New display name"},
					&cli.StringFlag{Name: "password", Usage: "New password"},
					&cli.StringFlag{Name: "profile-picture", Usage: "New profile picture URL"},
				},
				Action: runAccountUpdate,
			},
			{
				Name:  "delete",
				Usage: "Delete the account and end the session",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "Confirm deletion"},
				},
				Action: runAccountDelete,
			},
		},
	}
}

func newClient(ctx context.Context, cmd *cli.Command) (*api.Client, error) {
	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return nil, err
	}
	return cfg.Client(logging.FromContext(ctx)), nil
}

func runAccountLogin(ctx context.Context, cmd *cli.Command) error {
	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	resp, err := client.Login(ctx, cmd.String("username"), cmd.String("password"))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := auth.PersistSession(auth.FromResponse(resp)); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Logged in as %s\n", describeUser(resp.User))
	return nil
}

func runAccountRegister(ctx context.Context, cmd *cli.Command) error {
	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	in := api.RegisterInput{
		Email:          cmd.String("email"),
		Username:       cmd.String("username"),
		Password:       cmd.String("password"),
		DisplayName:    cmd.String("display-name"),
		ProfilePicture: cmd.String("profile-picture"),
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}

	resp, err := client.Register(ctx, in)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	if err := auth.PersistSession(auth.FromResponse(resp)); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Registered and logged in as %s\n", describeUser(resp.User))
	return nil
}

func runAccountLogout(ctx context.Context, cmd *cli.Command) error {
	sess, err := auth.LoadSessionFile()
	if errors.Is(err, auth.ErrNoSession) {
		fmt.Fprintln(cmd.Root().Writer, "Not logged in")
		return nil
	}
	if err == nil {
		client, cerr := newClient(ctx, cmd)
		if cerr != nil {
			return cerr
		}
		// The local session goes away even if the server cannot be told.
		if lerr := client.Logout(ctx, sess.Credentials()); lerr != nil {
			logging.FromContext(ctx).Warn("server logout failed", zap.Error(lerr))
		}
	}

	if err := auth.WipeSession(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "Logged out")
	return nil
}

func runAccountStatus(ctx context.Context, cmd *cli.Command) error {
	sess, err := auth.RequireSession()
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	resp, err := client.Authenticate(ctx, sess.Credentials())
	if err != nil {
		var ne *api.NetworkError
		if errors.As(err, &ne) && ne.Status == 401 {
			return fmt.Errorf("session rejected by the server, run: cine account login: %w", err)
		}
		return fmt.Errorf("auth failed: %w", err)
	}

	refreshed := auth.FromResponse(resp)
	if err := auth.PersistSession(refreshed); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	w := cmd.Root().Writer
	printUser(w, refreshed.User)
	if !refreshed.Expiration.IsZero() {
		fmt.Fprintf(w, "Expires:  %s\n", refreshed.Expiration.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "API:      %s\n", client.BaseURL())
	return nil
}

func runAccountUpdate(ctx context.Context, cmd *cli.Command) error {
	var patch api.UserPatch
	for name, field := range map[string]**string{
		"username":        &patch.Username,
		"display-name":    &patch.DisplayName,
		"password":        &patch.Password,
		"profile-picture": &patch.ProfilePicture,
	} {
		if cmd.IsSet(name) {
			v := cmd.String(name)
			*field = &v
		}
	}
	if patch.Empty() {
		return fmt.Errorf("nothing to update: pass at least one of --username, --display-name, --password, --profile-picture")
	}

	sess, err := auth.RequireSession()
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	user, err := client.UpdateUser(ctx, sess.Credentials(), patch)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	sess.User = *user
	if err := auth.PersistSession(sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	fmt.Fprintln(cmd.Root().Writer, "Account updated")
	printUser(cmd.Root().Writer, *user)
	return nil
}

func runAccountDelete(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("refusing to delete the account without --yes")
	}

	sess, err := auth.RequireSession()
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	if err := client.DeleteUser(ctx, sess.Credentials()); err != nil {
		return fmt.Errorf("account deletion failed: %w", err)
	}

	if err := auth.WipeSession(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "Deleted account %s\n", describeUser(sess.User))
	return nil
}

func describeUser(u api.User) string {
	if u.DisplayName != "" && u.DisplayName != u.Username {
		return fmt.Sprintf("%s (@%s)", u.DisplayName, u.Username)
	}
	return "@" + u.Username
}

func printUser(w io.Writer, u api.User) {
	fmt.Fprintf(w, "User:     %s\n", describeUser(u))
	fmt.Fprintf(w, "ID:       %s\n", u.ID)
	if u.ProfilePicture != "" {
		fmt.Fprintf(w, "Picture:  %s\n", u.ProfilePicture)
	}
}
