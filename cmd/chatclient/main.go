// Command chatclient signs in to a chat-auth server and then restores the
// session from its cookies, the way the web frontend does on page load.
//
//	chatclient -url http://localhost:7000 -user a@b.com -password Password123 [-nickname abc] [-keep] [-logout]
//
// With -nickname the account is registered first; otherwise it logs in.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/chat-auth/internal/client"
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:7000", "server base URL")
		userID     = flag.String("user", "", "user id (email)")
		password   = flag.String("password", "", "password")
		nickname   = flag.String("nickname", "", "register with this nickname instead of logging in")
		keepLogged = flag.Bool("keep", true, "ask for token cookies instead of a server session")
		logout     = flag.Bool("logout", false, "log out before exiting")
		timeout    = flag.Duration("timeout", 10*time.Second, "per-request timeout")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), logger, options{
		baseURL:    *baseURL,
		userID:     *userID,
		password:   *password,
		nickname:   *nickname,
		keepLogged: *keepLogged,
		logout:     *logout,
		timeout:    *timeout,
	}); err != nil {
		logger.Error("chatclient failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type options struct {
	baseURL    string
	userID     string
	password   string
	nickname   string
	keepLogged bool
	logout     bool
	timeout    time.Duration
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	if opts.userID == "" || opts.password == "" {
		return fmt.Errorf("-user and -password are required")
	}

	api, err := client.New(client.Config{BaseURL: opts.baseURL, Timeout: opts.timeout})
	if err != nil {
		return err
	}

	var state client.State
	boot := client.NewBootstrapper(api, logger)

	// Fresh jar: nothing to restore yet.
	logger.Info("bootstrap", slog.String("outcome", string(boot.Run(ctx, &state))))

	var res *client.Session
	if opts.nickname != "" {
		state.SetPage(client.PageRegister)
		res, err = api.Register(ctx, opts.userID, opts.password, opts.nickname)
	} else {
		res, err = api.Login(ctx, opts.userID, opts.password, opts.keepLogged)
	}
	if err != nil {
		return err
	}
	logger.Info(res.Message)
	if res.User != nil {
		state.SignIn(*res.User)
	}

	outcome := boot.Run(ctx, &state)
	logger.Info("bootstrap",
		slog.String("outcome", string(outcome)),
		slog.String("page", string(state.Page())),
	)

	status, err := api.CheckSession(ctx)
	if err != nil {
		return err
	}
	logger.Info("server session", slog.Bool("loggedIn", status.LoggedIn))

	if u := state.LoggedUser(); u != nil {
		fmt.Printf("signed in as %s (%s)\n", u.Nickname, u.ID)
	}

	if !opts.logout {
		return nil
	}
	res, err = api.Logout(ctx, opts.userID)
	if err != nil {
		return err
	}
	state.SignOut()
	logger.Info(res.Message, slog.String("page", string(state.Page())))
	return nil
}
