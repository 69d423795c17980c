package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:     "join [room id]",
	Aliases: []string{"j"},
	Short:   "Join an existing room",
	Long: `Join a room by its id.

Examples:
  roomtd join 1a2b3c4d -u bob`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagUsername == "" {
			return errors.New("a username is required (-u)")
		}
		return joinRoom(args[0], flagUsername)
	},
}

func joinRoom(roomID, username string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := connect(cfg)
	if err != nil {
		return err
	}
	defer conn.close()

	conn.client.JoinRoom(roomID, username)

	select {
	case p := <-conn.handler.RoomJoined:
		fmt.Printf("\n🎉 Joined %q (%s)\n", p.Room.Name, p.Room.ID)
		return runRoom(conn, p.Room, username)
	case msg := <-conn.handler.Errors:
		return fmt.Errorf("join room: %s", msg)
	case <-conn.closed:
		return errors.New("connection to server lost")
	case <-time.After(serverTimeout):
		return errors.New("timeout waiting for the server")
	}
}
