package clientcfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ROOMTD_SERVER_URL", "")
	t.Setenv("STUN_SERVER", "")
	t.Setenv("TURN_SERVER", "")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, DefaultSTUN, cfg.STUNServer)
	assert.Empty(t, cfg.TURNServer)
	assert.False(t, cfg.ForceRelay)
}

func TestLoadFlagBeatsEnv(t *testing.T) {
	t.Setenv("ROOMTD_SERVER_URL", "ws://env.example:9000/ws")
	t.Setenv("STUN_SERVER", "stun:env.example:3478")

	cfg, err := Load(Options{
		ServerURL:  "wss://flag.example/ws",
		STUNServer: "stun:flag.example:3478",
	})
	require.NoError(t, err)

	assert.Equal(t, "wss://flag.example/ws", cfg.ServerURL)
	assert.Equal(t, "stun:flag.example:3478", cfg.STUNServer)
}

func TestLoadEnvBeatsDefault(t *testing.T) {
	t.Setenv("ROOMTD_SERVER_URL", "ws://env.example:9000/ws")
	t.Setenv("TURN_SERVER", "turn:env.example")
	t.Setenv("TURN_USERNAME", "alice")
	t.Setenv("TURN_PASSWORD", "hunter2")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "ws://env.example:9000/ws", cfg.ServerURL)
	assert.Equal(t, "turn:env.example", cfg.TURNServer)

	user, pass := cfg.TURNCredentials()
	assert.Equal(t, "alice", user)
	assert.Equal(t, "hunter2", pass)
}

func TestLoadRejectsBadScheme(t *testing.T) {
	_, err := Load(Options{ServerURL: "http://example.com/ws"})
	assert.Error(t, err)
}

func TestLoadRejectsRelayWithoutTURN(t *testing.T) {
	_, err := Load(Options{ForceRelay: true})
	assert.Error(t, err)

	cfg, err := Load(Options{ForceRelay: true, TURNServer: "turn:relay.example"})
	require.NoError(t, err)
	assert.True(t, cfg.ForceRelay)
}

func TestRoomLink(t *testing.T) {
	t.Parallel()
	tests := []struct {
		server string
		want   string
	}{
		{"ws://localhost:8080/ws", "http://localhost:8080/r/abc12345"},
		{"wss://play.example.com/ws", "https://play.example.com/r/abc12345"},
	}
	for _, tc := range tests {
		cfg := &Config{ServerURL: tc.server}
		assert.Equal(t, tc.want, cfg.RoomLink("abc12345"))
	}
}

func TestTURNServers(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	assert.Nil(t, cfg.TURNServers())

	cfg.TURNServer = "turn:relay.example"
	assert.Equal(t, []string{
		"turn:relay.example:3478?transport=udp",
		"turn:relay.example:3478?transport=tcp",
	}, cfg.TURNServers())
}
