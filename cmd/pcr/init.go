package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zulandar/pcremote/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		configPath string
		platform   string
		userID     string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: "Writes a commented pcremote.yaml for the chosen platform. The bot token is\n" +
			"read from the terminal without echo, or from stdin when it is not a terminal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, initOpts{
				path:     configPath,
				platform: platform,
				userID:   userID,
				force:    force,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultFile, "path of the config file to write")
	cmd.Flags().StringVarP(&platform, "platform", "p", config.PlatformTelegram, "chat platform (telegram, discord, slack)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "platform user id of the operator")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

type initOpts struct {
	path     string
	platform string
	userID   string
	force    bool
}

// readSecret reads the token without echo. Tests swap it out.
var readSecret = func(fd int) ([]byte, error) { return term.ReadPassword(fd) }

// isTerminal reports whether stdin is interactive. Tests swap it out.
var isTerminal = func(fd int) bool { return term.IsTerminal(fd) }

func runInit(cmd *cobra.Command, opts initOpts) error {
	out := cmd.OutOrStdout()

	platform := strings.ToLower(strings.TrimSpace(opts.platform))
	switch platform {
	case config.PlatformTelegram, config.PlatformDiscord, config.PlatformSlack:
	default:
		return fmt.Errorf("unsupported platform %q (telegram, discord, slack)", opts.platform)
	}

	if !opts.force {
		if _, err := os.Stat(opts.path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", opts.path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("check %s: %w", opts.path, err)
		}
	}

	in := bufio.NewReader(cmd.InOrStdin())
	userID := strings.TrimSpace(opts.userID)
	if userID == "" {
		fmt.Fprint(out, "Operator user id: ")
		line, err := readLine(in)
		if err != nil {
			return fmt.Errorf("read user id: %w", err)
		}
		userID = line
	}
	if userID == "" {
		return fmt.Errorf("operator user id is required")
	}

	fmt.Fprintf(out, "%s bot token: ", platform)
	token, err := readToken(in)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		return fmt.Errorf("bot token is required")
	}

	if err := os.WriteFile(opts.path, config.Starter(platform, token, userID), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", opts.path, err)
	}
	fmt.Fprintf(out, "Wrote %s\n", opts.path)
	switch platform {
	case config.PlatformDiscord:
		fmt.Fprintln(out, "Set discord.channel_id before running `pcr start`.")
	case config.PlatformSlack:
		fmt.Fprintln(out, "Set slack.app_token and slack.channel_id before running `pcr start`.")
	}
	fmt.Fprintln(out, "Run `pcr doctor` to verify the setup.")
	return nil
}

// readToken prefers a no-echo terminal read and falls back to a plain line.
func readToken(in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if isTerminal(fd) {
		b, err := readSecret(fd)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
