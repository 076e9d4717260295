package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the command table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommands()
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}

// openStore opens the database and seeds the stock commands into a new one.
func openStore() (*store.Store, error) {
	st, err := store.New(cfg.Data.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := st.Commands().Seed(command.DefaultDefinitions()); err != nil {
		st.Close()
		return nil, fmt.Errorf("seed commands: %w", err)
	}
	return st, nil
}

func runCommands() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	defs, err := st.Commands().List()
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ACTION\tGESTURE\tKEYWORDS\tDESCRIPTION")
	fmt.Fprintln(w, "------\t-------\t--------\t-----------")
	for _, d := range defs {
		g := "-"
		if d.Gesture != gesture.None {
			g = d.Gesture.String()
		}
		keywords := strings.Join(d.Keywords, ", ")
		if keywords == "" {
			keywords = "-"
		}
		urgent := ""
		if d.Urgent {
			urgent = " (urgent)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%s\n", d.Action, g, keywords, d.Description, urgent)
	}
	return w.Flush()
}
