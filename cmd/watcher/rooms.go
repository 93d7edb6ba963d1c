package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the rooms visible to the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newParticipant(cmd.Context())
		if err != nil {
			return err
		}
		defer p.Close()

		rooms, err := p.rooms.ListRooms(cmd.Context(), p.user)
		if err != nil {
			return fmt.Errorf("failed to list rooms: %w", err)
		}

		if len(rooms) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No rooms yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tVISIBILITY\tMEMBERS\tVIDEO")
		for _, r := range rooms {
			visibility := "public"
			if r.IsPrivate {
				visibility = "private"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.Id, r.Name, visibility, len(r.Users), r.ActiveVideoId)
		}

		return w.Flush()
	},
}
