package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"amoebotsim.ai/internal/persistence/indexdb"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Query the sqlite run index",
	}
	cmd.PersistentFlags().String("db", "./data/index.db", "Path to the index database")
	cmd.AddCommand(newRunsListCmd(), newRunsSnapshotsCmd())
	return cmd
}

func openIndex(cmd *cobra.Command) (*indexdb.SQLiteIndex, error) {
	path, _ := cmd.Flags().GetString("db")
	idx, err := indexdb.OpenSQLiteRead(path)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return idx, nil
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			idx, err := openIndex(cmd)
			if err != nil {
				return err
			}
			defer idx.Close()

			runs, err := idx.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}
			for _, r := range runs {
				fmt.Printf("%s  sim=%s seed=%d created=%s\n", r.RunID, r.SimID, r.Seed, r.CreatedAt)
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded")
			}
			return nil
		},
	}
}

func newRunsSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots <run-id>",
		Short: "List the saves recorded for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			idx, err := openIndex(cmd)
			if err != nil {
				return err
			}
			defer idx.Close()

			snaps, err := idx.ListSnapshots(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(snaps)
			}
			for _, sn := range snaps {
				fmt.Printf("round=%d particles=%d path=%s\n", sn.Round, sn.Particles, sn.Path)
			}
			if len(snaps) == 0 {
				fmt.Println("no snapshots recorded for run", args[0])
			}
			return nil
		},
	}
}
