package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"ls"},
	Short:   "List rooms with open seats",
	Args:    cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRooms()
	},
}

func listRooms() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := connect(cfg)
	if err != nil {
		return err
	}
	defer conn.close()

	conn.client.RequestAvailableRooms()

	select {
	case p := <-conn.handler.AvailableRooms:
		if len(p.Rooms) == 0 {
			fmt.Println("No open rooms right now. Create one with: roomtd create")
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Room ID", "Name", "Host", "Players", "Status"})
		for _, room := range p.Rooms {
			t.AppendRow(table.Row{
				room.ID,
				room.Name,
				room.Host,
				fmt.Sprintf("%d/%d", len(room.Members), room.MaxMembers),
				room.Status,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil

	case msg := <-conn.handler.Errors:
		return fmt.Errorf("list rooms: %s", msg)
	case <-conn.closed:
		return errors.New("connection to server lost")
	case <-time.After(serverTimeout):
		return errors.New("timeout waiting for the server")
	}
}
