package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-inventory/components/inventory"
)

// LoginInput carries credentials. Result, when set, receives the identity.
type LoginInput struct {
	Credentials inventory.Credentials `json:"credentials"`
	Result      *inventory.Identity   `json:"-"`
}

type sessionService interface {
	Login(ctx context.Context, creds inventory.Credentials) (inventory.Identity, error)
	Logout(ctx context.Context) error
}

// LoginCommand authenticates and persists the session.
type LoginCommand struct {
	service   sessionService
	telemetry Telemetry
}

// NewLoginCommand creates the command.
func NewLoginCommand(service sessionService, telemetry Telemetry) *LoginCommand {
	return &LoginCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoginInput] = (*LoginCommand)(nil)

// Execute logs in with the provided credentials.
func (c *LoginCommand) Execute(ctx context.Context, msg LoginInput) error {
	if c.service == nil {
		return errors.New("login command requires service")
	}
	identity, err := c.service.Login(ctx, msg.Credentials)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = identity
	}
	c.telemetry.Record(ctx, "inventory.command.login", map[string]any{
		"user_id": identity.ID,
		"email":   identity.Email,
	})
	return nil
}

// LogoutInput ends the current session.
type LogoutInput struct{}

// LogoutCommand clears the session locally and on the server.
type LogoutCommand struct {
	service   sessionService
	telemetry Telemetry
}

// NewLogoutCommand creates the command.
func NewLogoutCommand(service sessionService, telemetry Telemetry) *LogoutCommand {
	return &LogoutCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LogoutInput] = (*LogoutCommand)(nil)

// Execute logs out. Local state is cleared even when the server call fails.
func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutInput) error {
	if c.service == nil {
		return errors.New("logout command requires service")
	}
	err := c.service.Logout(ctx)
	c.telemetry.Record(ctx, "inventory.command.logout", map[string]any{"remote_error": err != nil})
	return err
}
