package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/localchain"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Update submitted changes with the notebooks that committed them",
	Run:   syncRun,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func syncRun(cmd *cobra.Command, args []string) {
	store, err := openStore()
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if err := store.SetNotaryHost(url); err != nil {
		log.Fatal(err)
	}

	rows, err := store.WithStatus(localchain.SubmittedToNotary)
	if err != nil {
		log.Fatal(err)
	}

	for _, row := range rows {
		if row.NotaryID != ledger.NotaryID(notaryID) {
			continue
		}

		ap, err := latest(row.Account())
		switch {
		case errors.Is(err, errNoTip):
			continue

		case err != nil:
			log.Fatal(err)
		}

		// The notebook has not closed yet.
		if ap.Tip.ChangeNumber < row.ChangeNumber {
			continue
		}

		event := localchain.NotebookClosed
		if ap.Tip.ChangeNumber > row.ChangeNumber {
			event = localchain.Superseded
		}

		proof := ap.Proof
		updated, err := store.Apply(row.Account(), row.ChangeNumber, event, func(r *localchain.BalanceChangeRow) {
			if event == localchain.NotebookClosed {
				r.NotebookNumber = proof.NotebookNumber
				r.Proof = &proof
			}
		})
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("%s change %d: %s\n", row.Account(), row.ChangeNumber, updated.Status)
	}
}
