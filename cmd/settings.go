package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/thiagokokada/vizjj-go/internal/prefs"
)

// SettingsCmd returns the settings command and its subcommands.
func SettingsCmd() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read or change the UI settings",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print one setting",
				ArgsUsage: "<key>",
				Action:    settingsGetAction,
			},
			{
				Name:      "set",
				Usage:     "Change one setting",
				ArgsUsage: "<key> <value>",
				Action:    settingsSetAction,
			},
			{
				Name:   "list",
				Usage:  "Print every setting",
				Action: settingsListAction,
			},
		},
	}
}

func settingsGetAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("settings get takes one key, got %d arguments", c.NArg())
	}
	store, err := settingsStore(c)
	if err != nil {
		return err
	}
	settings, err := store.Load()
	if err != nil {
		return err
	}
	value, err := settings.Get(c.Args().First())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, value)
	return err
}

func settingsSetAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("settings set takes a key and a value, got %d arguments", c.NArg())
	}
	store, err := settingsStore(c)
	if err != nil {
		return err
	}
	_, err = store.Update(c.Args().Get(0), c.Args().Get(1))
	return err
}

func settingsListAction(c *cli.Context) error {
	store, err := settingsStore(c)
	if err != nil {
		return err
	}
	settings, err := store.Load()
	if err != nil {
		return err
	}
	for _, key := range prefs.Keys() {
		value, err := settings.Get(key)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.App.Writer, "%s = %s\n", key, value); err != nil {
			return err
		}
	}
	return nil
}
