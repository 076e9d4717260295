package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <session.jsonl>",
	Short: "Run a recorded session through the recognizer and print the commands it fires",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(ctx context.Context, path string) error {
	steps, err := replay.Load(afero.NewOsFs(), path)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	table, err := st.Commands().Table()
	st.Close()
	if err != nil {
		return fmt.Errorf("load command table: %w", err)
	}

	var events []command.Event
	rec := cfg.Recognition
	player, err := replay.New(replay.Config{
		Engine: app.EngineConfig{
			Table:           table,
			Thresholds:      rec.Thresholds,
			Confidences:     rec.Confidences,
			Mirrored:        rec.Mirrored,
			WakePhrases:     rec.WakePhrases,
			Fillers:         rec.Fillers,
			AwakeWindow:     rec.AwakeWindow,
			ModelReady:      true,
			SpeechSupported: true,
		},
		Settle: rec.Settle,
		Sink:   command.SinkFunc(func(e command.Event) { events = append(events, e) }),
		Logger: zlog,
	})
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(steps),
		progressbar.OptionSetDescription("replaying "+filepath.Base(path)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	err = player.Run(ctx, steps, func(done int) { _ = bar.Set(done) })
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}

	if len(events) == 0 {
		fmt.Println("No commands fired.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "AT\tSOURCE\tACTION\tTRIGGER\tRESPONSE")
	fmt.Fprintln(w, "--\t------\t------\t-------\t--------")
	for _, e := range events {
		action := e.Action
		if action == "" {
			action = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.TriggeredAt.Sub(replay.Epoch), e.Source, action, e.Trigger, e.Response)
	}
	return w.Flush()
}
