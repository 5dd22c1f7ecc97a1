package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/constellation-resilience/internal/logging"
	"github.com/signalsfoundry/constellation-resilience/internal/topology"
)

// matrixFile is one latency matrix as exchanged on disk.
type matrixFile struct {
	Shell    string      `json:"shell"`
	Timeslot int         `json:"timeslot"`
	Matrix   [][]float64 `json:"matrix"`
}

// decodeMatrixFile accepts a single matrix object or an array of them.
func decodeMatrixFile(data []byte) ([]matrixFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var many []matrixFile
		if err := json.Unmarshal(data, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one matrixFile
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []matrixFile{one}, nil
}

func newIngestCmd(a *app) *cobra.Command {
	var shell string
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Load JSON latency matrices into the matrix store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore()
			if err != nil {
				return err
			}
			stored := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				entries, err := decodeMatrixFile(data)
				if err != nil {
					return fmt.Errorf("decode %s: %w", path, err)
				}
				for _, e := range entries {
					if shell != "" {
						e.Shell = shell
					}
					if err := store.Put(ctx, e.Shell, e.Timeslot, topology.Matrix(e.Matrix)); err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					stored++
				}
			}
			a.log.Info(ctx, "ingested latency matrices", logging.Int("count", stored))
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d matrices\n", stored)
			return nil
		},
	}
	cmd.Flags().StringVar(&shell, "shell", "", "override the shell recorded in the files")
	return cmd
}

func newSlotsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "slots SHELL",
		Short: "List the timeslots stored for a shell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			slots, err := store.Slots(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, s := range slots {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newPruneCmd(a *app) *cobra.Command {
	var before int
	cmd := &cobra.Command{
		Use:   "prune SHELL",
		Short: "Delete stored timeslots earlier than --before",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore()
			if err != nil {
				return err
			}
			slots, err := store.Slots(ctx, args[0])
			if err != nil {
				return err
			}
			removed := 0
			for _, s := range slots {
				if s >= before {
					break
				}
				if err := store.Delete(ctx, args[0], s); err != nil {
					return err
				}
				removed++
			}
			a.log.Info(ctx, "pruned timeslots", logging.String("shell", args[0]), logging.Int("removed", removed))
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d timeslots\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&before, "before", 0, "delete slots strictly before this one")
	_ = cmd.MarkFlagRequired("before")
	return cmd
}
