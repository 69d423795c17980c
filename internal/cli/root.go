// Package cli is the command tree of the roomtd client.
package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Rajput-xv/room-T-D/internal/clientcfg"
)

var (
	flagServer   string
	flagUsername string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var rootCmd = &cobra.Command{
	Use:   "roomtd",
	Short: "Play truth-or-dare rooms from the terminal",
	Long: `roomtd is a command-line client for multiplayer truth-or-dare rooms.
It connects to a room server over websocket and links up with the other
players over WebRTC for voice and video.`,
}

// Execute runs the root command. Called by main.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagServer, "server", "", "websocket URL of the room server (env: ROOMTD_SERVER_URL)")
	pf.StringVarP(&flagUsername, "username", "u", "", "display name to play under")
	pf.StringVar(&flagSTUN, "stun", "", "STUN server (env: STUN_SERVER)")
	pf.StringVar(&flagTURN, "turn", "", "TURN server (env: TURN_SERVER)")
	pf.StringVar(&flagTURNUser, "turn-user", "", "TURN username (env: TURN_USERNAME)")
	pf.StringVar(&flagTURNPass, "turn-pass", "", "TURN password (env: TURN_PASSWORD)")
	pf.BoolVar(&flagRelay, "relay", false, "force media through the TURN relay")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(roomsCmd)
}

func loadConfig() (*clientcfg.Config, error) {
	return clientcfg.Load(clientcfg.Options{
		ServerURL:  flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
}
