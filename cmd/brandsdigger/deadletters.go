package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/brands-digger/internal/db"
	"github.com/suPer8Hu/brands-digger/internal/deadletter"
)

var deadLettersLimit int

var deadLettersCmd = &cobra.Command{
	Use:   "dead-letters",
	Short: "Print the most recently stored dead letters as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := setup(cmd)
		gdb, err := db.Open(db.DriverFor(cfg.DBDSN), cfg.DBDSN)
		if err != nil {
			return err
		}
		repo := deadletter.NewRepo(gdb)
		if err := repo.Migrate(); err != nil {
			return err
		}
		entries, err := repo.ListRecent(cmd.Context(), deadLettersLimit)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

func init() {
	deadLettersCmd.Flags().IntVar(&deadLettersLimit, "limit", 20, "number of entries (max 100)")
}
