package projecthub

// Command is a parsed subcommand.
type Command interface {
	Name() string
}

// RunCommand serves the JSON API until the context is cancelled.
type RunCommand struct{}

func (c *RunCommand) Name() string { return "run" }

// MigrateCommand creates or updates the schema of the selected store and exits.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string { return "migrate" }
