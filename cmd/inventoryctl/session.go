package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/goliatone/go-inventory/components/inventory"
	"github.com/goliatone/go-inventory/components/inventory/commands"
)

type loginCmd struct {
	Email    string `required:"" env:"INVENTORY_EMAIL" help:"Account email."`
	Password string `required:"" env:"INVENTORY_PASSWORD" help:"Account password."`
}

func (cmd *loginCmd) Run(rt *runtime) error {
	var identity inventory.Identity
	if err := rt.app.Login.Execute(rt.ctx, commands.LoginInput{
		Credentials: inventory.Credentials{Email: cmd.Email, Password: cmd.Password},
		Result:      &identity,
	}); err != nil {
		if errors.Is(err, inventory.ErrUnauthenticated) {
			return loginRejected{err: err}
		}
		return err
	}
	return rt.emit(identity, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Signed in as %s\n", describeIdentity(identity))
		return err
	})
}

// loginRejected reports refused credentials with the server message. It does
// not unwrap, so report treats it as a plain failure.
type loginRejected struct {
	err error
}

func (e loginRejected) Error() string {
	return "login failed: " + inventory.MessageOf(e.err)
}

type logoutCmd struct{}

func (cmd *logoutCmd) Run(rt *runtime) error {
	if err := rt.app.Logout.Execute(rt.ctx, commands.LogoutInput{}); err != nil {
		return err
	}
	_, err := fmt.Fprintln(rt.out, "✓ Signed out")
	return err
}

type whoamiCmd struct {
	Refresh bool `help:"Confirm the identity with the server."`
}

func (cmd *whoamiCmd) Run(rt *runtime) error {
	if cmd.Refresh {
		if _, err := rt.app.Session.RefreshIdentity(rt.ctx); err != nil {
			return err
		}
	}
	identity, ok := rt.app.Session.Identity()
	if !ok {
		return &inventory.Error{Kind: inventory.KindUnauthenticated, Op: "whoami", Message: "not signed in"}
	}
	return rt.emit(identity, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, describeIdentity(identity))
		return err
	})
}

func describeIdentity(id inventory.Identity) string {
	label := id.Email
	if id.Name != "" {
		label = fmt.Sprintf("%s <%s>", id.Name, id.Email)
	}
	if id.Role != "" {
		label += " (" + id.Role + ")"
	}
	return label
}
