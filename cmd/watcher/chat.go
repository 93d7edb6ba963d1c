package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sharetube/watchparty/internal/service/room"
)

var chatCmd = &cobra.Command{
	Use:   "chat ROOM_ID MESSAGE...",
	Short: "Post one chat message to a room the account is a member of",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newParticipant(cmd.Context())
		if err != nil {
			return err
		}
		defer p.Close()

		message, err := p.rooms.PostMessage(cmd.Context(), &room.PostMessageParams{
			RoomId: args[0],
			Sender: p.user,
			Text:   strings.Join(args[1:], " "),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", message.Id)
		return nil
	},
}
