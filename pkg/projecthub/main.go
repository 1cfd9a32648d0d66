package projecthub

import (
	"context"
	"errors"
	"fmt"
)

// Main parses args, builds the App and executes the selected command.
//
// Configuration comes from flags, PROJECTHUB_* environment variables, an optional YAML file
// given with --config, and a .env file in the working directory, in that order of
// precedence. See Parse for the full list of settings.
//
// Main returns when the command finishes. For run that is when ctx is cancelled and the
// server has shut down.
func Main(ctx context.Context, args []string) error {
	cmd, config, err := Parse(args)
	if errors.Is(err, ErrNoCommand) {
		return nil
	}
	if err != nil {
		return err
	}

	switch c := cmd.(type) {
	case *MigrateCommand:
		return Migrate(ctx, config)
	case *RunCommand:
		app, err := New(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer app.Close()
		return app.Run(ctx, c)
	default:
		return fmt.Errorf("unknown command: %s", cmd.Name())
	}
}
