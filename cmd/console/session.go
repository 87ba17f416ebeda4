package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-console/internal/auth"
)

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login", a.out)
	email := fs.String("email", "", "administrator email")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *email == "" {
		var err error
		if *email, err = a.prompt.ask("Email", ""); err != nil {
			return err
		}
	}
	password, err := a.prompt.password("Password")
	if err != nil {
		return err
	}
	if *email == "" || password == "" {
		return errors.New("email and password are required")
	}

	user, err := a.auth.AdminLogin(ctx, *email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", user.Name, user.Role)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if _, ok := a.session.User(); !ok {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) whoami() error {
	record, ok := a.session.Record()
	if !ok {
		return fmt.Errorf("%w: run `fleet-console login` first", auth.ErrNoSession)
	}
	fmt.Fprintf(a.out, "%s <%s>\nrole: %s\n", record.User.Name, record.User.Email, record.User.Role)
	if !record.ExpiresAt.IsZero() {
		state := "expires"
		if record.IsExpired(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(a.out, "session %s %s\n", state, record.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}
