package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"amoebotsim.ai/internal/persistence/snapshot"
)

func newSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save file operations",
	}
	cmd.AddCommand(newSaveInspectCmd())
	return cmd
}

func newSaveInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <path>",
		Short: "Print the header and contents summary of a save file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			full, _ := cmd.Flags().GetBool("full")

			path := args[0]
			if !full {
				header, err := snapshot.PeekHeader(path)
				if err != nil {
					return fmt.Errorf("peek header: %w", err)
				}
				if jsonOut {
					return json.NewEncoder(os.Stdout).Encode(header)
				}
				fmt.Printf("save v%d sim=%s round=%d\n", header.Version, header.SimID, header.Round)
				return nil
			}

			save, err := snapshot.ReadSave(path)
			if err != nil {
				return fmt.Errorf("read save: %w", err)
			}
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(save)
			}
			fmt.Printf("save v%d sim=%s round=%d seed=%d pins_per_edge=%d particles=%d\n",
				save.Header.Version, save.Header.SimID, save.Header.Round,
				save.Seed, save.PinsPerEdge, len(save.Particles))
			for _, p := range save.Particles {
				shape := "contracted"
				if p.HeadDir >= 0 {
					shape = fmt.Sprintf("expanded head_dir=%d", p.HeadDir)
				}
				fmt.Printf("  %s tail=(%d,%d) %s attrs=%d\n", p.ID, p.TailX, p.TailY, shape, len(p.Attrs))
			}
			return nil
		},
	}
	cmd.Flags().Bool("full", false, "Decode the whole body, not just the header")
	return cmd
}
