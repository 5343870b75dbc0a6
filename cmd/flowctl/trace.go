package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/trace"
)

func NewTraceCommand() *cli.Command {
	return &cli.Command{
		Name:      "trace",
		Usage:     "Walk a flowchart from its first node and print each step",
		ArgsUsage: "<graph.json>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-steps",
				Usage: "Stop after this many steps",
				Value: 1000,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the frames as JSON",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("missing graph file argument")
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			var g models.Graph
			if err := json.Unmarshal(raw, &g); err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}

			res := trace.Run(g.Nodes, g.Edges, int(command.Int("max-steps")))
			out := command.Root().Writer
			if command.Bool("json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			labels := make(map[string]string, len(g.Nodes))
			for _, n := range g.Nodes {
				labels[n.ID] = n.Data.Label
			}
			for _, f := range res.Frames {
				via := ""
				if f.ActiveEdgeID != nil {
					via = " via " + *f.ActiveEdgeID
				}
				fmt.Fprintf(out, "%4d  %-12s %s%s\n", f.Step, f.ActiveNodeID, labels[f.ActiveNodeID], via)
			}
			if res.Truncated {
				fmt.Fprintf(out, "stopped after %d steps\n", res.Frames[len(res.Frames)-1].Step)
			}
			return nil
		},
	}
}
