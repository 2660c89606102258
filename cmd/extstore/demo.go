package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/extstore/internal/demo"
	"github.com/vango-dev/extstore/pkg/store"
)

func demoCmd(c *cli) *cobra.Command {
	var script string

	cmd := &cobra.Command{
		Use:   "demo [step...]",
		Short: "Run the demo application headless",
		Long: `Mount the demo application without a browser, apply scripted changes
and print which components each change re-rendered.

Steps are key=value pairs:
  first=Ada      type into the first-name input
  last=Lovelace  type into the last-name input
  count=+2       press increment twice (count=-1 presses decrement)
  count=10       set the count directly
  age=36         set the age directly
  json={...}     merge a JSON patch into the record

Examples:
  extstore demo first=Ada last=Lovelace count=+1
  extstore demo --script steps.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var steps []demo.Step
			if script != "" {
				f, err := os.Open(script)
				if err != nil {
					return err
				}
				parsed, err := demo.ParseScript(f)
				f.Close()
				if err != nil {
					return err
				}
				steps = parsed
			}
			for _, arg := range args {
				step, err := demo.ParseStep(arg)
				if err != nil {
					return err
				}
				steps = append(steps, step)
			}

			out := cmd.OutOrStdout()
			r, err := demo.NewRunner(out, demo.InitialState(c.cfg.Initial),
				store.WithLogger(slog.Default()))
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.Run(steps); err != nil {
				return err
			}
			info(out, "%d steps applied", len(steps))
			return nil
		},
	}

	cmd.Flags().StringVarP(&script, "script", "f", "", "Read steps from a file, one per line")
	return cmd
}
