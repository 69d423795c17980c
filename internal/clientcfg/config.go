// Package clientcfg resolves the CLI's configuration from flags, environment
// variables and defaults, in that order.
package clientcfg

import (
	"fmt"
	"os"
	"strings"
)

const (
	DefaultServerURL = "ws://localhost:8080/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
)

// Config holds everything the client needs to reach the server and its peers.
type Config struct {
	// ServerURL is the websocket endpoint of the game server.
	ServerURL string

	// ICE servers for the peer mesh.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN candidates only.
	ForceRelay bool
}

// Options carries CLI flag overrides into Load.
type Options struct {
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Load resolves each value as flag > environment > default.
func Load(opts Options) (*Config, error) {
	serverURL := firstOf(opts.ServerURL, os.Getenv("ROOMTD_SERVER_URL"), DefaultServerURL)
	if !strings.HasPrefix(serverURL, "ws://") && !strings.HasPrefix(serverURL, "wss://") {
		return nil, fmt.Errorf("server url must start with ws:// or wss://: %s", serverURL)
	}

	cfg := &Config{
		ServerURL:  serverURL,
		STUNServer: firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
		TURNServer: firstOf(opts.TURNServer, os.Getenv("TURN_SERVER")),
		TURNUser:   firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME")),
		TURNPass:   firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD")),
		ForceRelay: opts.ForceRelay,
	}

	if cfg.ForceRelay && cfg.TURNServer == "" {
		return nil, fmt.Errorf("cannot force relay mode without a TURN server configured")
	}
	return cfg, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// RoomLink returns the browser URL for a room id, derived from the server
// endpoint.
func (c *Config) RoomLink(roomID string) string {
	base := strings.TrimSuffix(c.ServerURL, "/ws")
	base = strings.Replace(base, "wss://", "https://", 1)
	base = strings.Replace(base, "ws://", "http://", 1)
	return fmt.Sprintf("%s/r/%s", base, roomID)
}

// STUNServers returns the STUN urls for the ICE configuration.
func (c *Config) STUNServers() []string {
	return []string{c.STUNServer}
}

// TURNServers returns the TURN urls, or nil when no TURN server is set.
func (c *Config) TURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// TURNCredentials returns the TURN username and password.
func (c *Config) TURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
