package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"i4.energy/across/watchible/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal <path>",
	Short: "Print the cycles recorded in a journal",
	Long:  `Decode a CBOR cycle journal and print one JSON document per cycle on stdout.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	// Records before a truncated tail are still printed.
	records, readErr := journal.ReadAll(args[0])

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return readErr
}
