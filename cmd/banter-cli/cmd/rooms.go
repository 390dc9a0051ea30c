package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/banterhq/banter/internal/config"
	"github.com/banterhq/banter/internal/database"
	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the rooms in the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg := config.New()
		db, err := database.NewDB(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer db.Close(ctx)

		store := database.NewSurrealRoomStore(db)
		rooms, err := store.FindAll(ctx)
		if err != nil {
			return fmt.Errorf("list rooms: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tOWNER\tMEMBERS\tBANNED\tMESSAGES")
		for _, r := range rooms {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
				r.Name, r.Author, len(r.UsersInRoom), len(r.BannedUsersFromRoom), len(r.ChatHistory))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(roomsCmd)
}
