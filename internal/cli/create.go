package cli

import (
	"errors"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/Rajput-xv/room-T-D/internal/clientcfg"
)

const serverTimeout = 15 * time.Second

var createCmd = &cobra.Command{
	Use:     "create [room name]",
	Aliases: []string{"c"},
	Short:   "Create a room and host a game",
	Long: `Create a new room on the server and wait for players to join.

Examples:
  roomtd create "friday night" -u alice
  roomtd create "friday night" -u alice --server ws://example.com/ws`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagUsername == "" {
			return errors.New("a username is required (-u)")
		}
		return createRoom(args[0], flagUsername)
	},
}

func createRoom(roomName, username string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := connect(cfg)
	if err != nil {
		return err
	}
	defer conn.close()

	conn.client.CreateRoom(roomName, username)

	select {
	case p := <-conn.handler.RoomCreated:
		displayRoomInfo(p.RoomID, p.RoomName, cfg)
		return runRoom(conn, p.Room, p.Room.Host)
	case msg := <-conn.handler.Errors:
		return fmt.Errorf("create room: %s", msg)
	case <-conn.closed:
		return errors.New("connection to server lost")
	case <-time.After(serverTimeout):
		return errors.New("timeout waiting for the server")
	}
}

func displayRoomInfo(roomID, roomName string, cfg *clientcfg.Config) {
	link := cfg.RoomLink(roomID)
	fmt.Printf("\n🎉 Room %q is up!\n", roomName)
	fmt.Printf("   Room ID:   %s\n", roomID)
	fmt.Printf("   Join link: %s\n\n", link)

	if qr, err := qrcode.New(link, qrcode.Low); err == nil {
		fmt.Println(qr.ToSmallString(false))
	}
	fmt.Println("Share the room ID or scan the code to join.")
}
