package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-inventory/components/inventory"
)

// SetThemeInput selects a theme. An empty Theme toggles the current one.
type SetThemeInput struct {
	Theme  inventory.Theme  `json:"theme,omitempty"`
	Result *inventory.Theme `json:"-"`
}

type preferenceService interface {
	SetTheme(ctx context.Context, theme inventory.Theme) error
	ToggleTheme(ctx context.Context) (inventory.Theme, error)
}

// SetThemeCommand persists the theme preference.
type SetThemeCommand struct {
	service   preferenceService
	telemetry Telemetry
}

// NewSetThemeCommand creates the command.
func NewSetThemeCommand(service preferenceService, telemetry Telemetry) *SetThemeCommand {
	return &SetThemeCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetThemeInput] = (*SetThemeCommand)(nil)

// Execute stores or toggles the theme.
func (c *SetThemeCommand) Execute(ctx context.Context, msg SetThemeInput) error {
	if c.service == nil {
		return errors.New("theme command requires service")
	}
	theme := msg.Theme
	if theme == "" {
		toggled, err := c.service.ToggleTheme(ctx)
		if err != nil {
			return err
		}
		theme = toggled
	} else {
		parsed, err := inventory.ParseTheme(string(theme))
		if err != nil {
			return err
		}
		if err := c.service.SetTheme(ctx, parsed); err != nil {
			return err
		}
		theme = parsed
	}
	if msg.Result != nil {
		*msg.Result = theme
	}
	c.telemetry.Record(ctx, "inventory.command.theme", map[string]any{"theme": string(theme)})
	return nil
}
