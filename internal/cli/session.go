package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rajput-xv/room-T-D/internal/client"
	"github.com/Rajput-xv/room-T-D/internal/clientcfg"
	"github.com/Rajput-xv/room-T-D/internal/game"
	"github.com/Rajput-xv/room-T-D/internal/peer"
)

// activityEvery is how often the client refreshes its presence so the
// server's inactivity sweep leaves it alone.
const activityEvery = 30 * time.Second

type connection struct {
	client  *client.Client
	handler *client.Handler
	cfg     *clientcfg.Config

	// closed fires when the server connection is gone.
	closed chan struct{}
}

func connect(cfg *clientcfg.Config) (*connection, error) {
	c := client.New(cfg.ServerURL)
	if err := c.Connect(); err != nil {
		return nil, err
	}

	h := client.NewHandler(c)
	conn := &connection{client: c, handler: h, cfg: cfg, closed: make(chan struct{})}
	go func() {
		h.Start()
		close(conn.closed)
	}()
	return conn, nil
}

func (c *connection) close() {
	c.client.Close()
}

// runRoom is the interactive loop for a seated member: it drives the peer
// mesh from membership events, relays WebRTC signals, prints game events and
// reads commands and chat from stdin.
func runRoom(conn *connection, room *game.Room, username string) error {
	self := room.Member(username)
	if self == nil {
		return fmt.Errorf("not a member of room %s", room.ID)
	}

	media, err := peer.Acquire()
	if err != nil {
		return err
	}

	orch := peer.NewOrchestrator(conn.cfg, media, conn.client)
	orch.Bind(self.ConnID, room.ID)
	defer orch.Close()

	if err := orch.SyncMembers(room.Members); err != nil {
		fmt.Println("⚠️  peer setup:", err)
	}

	printMembers(room.Members)
	printHelp()

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	ticker := time.NewTicker(activityEvery)
	defer ticker.Stop()

	h := conn.handler
	for {
		select {
		case <-ticker.C:
			conn.client.UpdateActivity(room.ID)

		case line, ok := <-lines:
			if !ok {
				conn.client.LeaveRoom()
				return nil
			}
			if quit := handleInput(conn, orch, room.ID, username, line); quit {
				conn.client.LeaveRoom()
				return nil
			}

		case p := <-h.MemberJoined:
			fmt.Printf("👋 %s joined the room\n", p.Username)
			if err := orch.SyncMembers(p.Members); err != nil {
				fmt.Println("⚠️  peer setup:", err)
			}

		case p := <-h.MemberLeft:
			fmt.Printf("🚪 %s left the room\n", p.Username)
			if err := orch.SyncMembers(p.Members); err != nil {
				fmt.Println("⚠️  peer setup:", err)
			}

		case p := <-h.MemberKicked:
			fmt.Printf("⏰ %s was removed: %s\n", p.Username, p.Reason)

		case p := <-h.Kicked:
			fmt.Printf("⏰ You were removed from the room: %s\n", p.Reason)
			return nil

		case p := <-h.RoomEnded:
			fmt.Println("🏁", p.Message)
			return nil

		case p := <-h.GameStarted:
			fmt.Printf("🎮 Game started! %s goes first.\n", p.GameState.CurrentPlayer)

		case p := <-h.ChoiceMade:
			fmt.Printf("🎯 %s chose %s. Time to spin!\n", p.Username, p.Choice)

		case <-h.WheelSpinning:
			fmt.Println("🎡 The wheel is spinning...")

		case p := <-h.WheelStopped:
			fmt.Printf("🎡 The wheel stopped on %d!\n", p.Result)
			fmt.Printf("📜 %s: %s\n", strings.ToUpper(string(p.Type)), p.Content)

		case p := <-h.TurnChanged:
			fmt.Printf("➡️  It is %s's turn\n", p.CurrentPlayer)

		case p := <-h.Chat:
			fmt.Printf("[%s] %s: %s\n", p.Timestamp.Format("15:04"), p.Username, p.Message)

		case p := <-h.Prompt:
			if p.Question != "" {
				fmt.Println("❓", p.Question)
			} else {
				fmt.Println("🔥", p.Task)
			}

		case p := <-h.MediaToggled:
			state := "off"
			if p.Enabled {
				state = "on"
			}
			fmt.Printf("🎛️  %s turned %s %s\n", p.Username, mediaName(p.Event), state)

		case sig := <-h.Signals:
			if err := orch.HandleSignal(sig.Kind, sig.From, sig.Payload); err != nil {
				fmt.Println("⚠️  peer signal:", err)
			}

		case msg := <-h.Errors:
			fmt.Println("❌", msg)

		case <-conn.closed:
			return errors.New("connection to server lost")
		}
	}
}

// handleInput interprets one stdin line. Lines starting with / are commands;
// anything else is chat. Returns true when the user wants to leave.
func handleInput(conn *connection, orch *peer.Orchestrator, roomID, username, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	conn.client.UpdateActivity(roomID)

	if !strings.HasPrefix(line, "/") {
		conn.client.SendChat(roomID, username, line)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/start":
		conn.client.StartGame(roomID)
	case "/truth":
		conn.client.Choose(roomID, game.ChoiceTruth)
	case "/dare":
		conn.client.Choose(roomID, game.ChoiceDare)
	case "/spin":
		conn.client.SpinWheel(roomID)
	case "/next":
		conn.client.NextTurn(roomID)
	case "/question":
		conn.client.SelectTruth(roomID)
	case "/task":
		conn.client.SelectDare(roomID)
	case "/end":
		conn.client.EndRoom(roomID)
	case "/mic", "/cam", "/audio":
		if len(fields) != 2 || (fields[1] != "on" && fields[1] != "off") {
			fmt.Printf("usage: %s on|off\n", fields[0])
			return false
		}
		conn.client.ToggleMedia(roomID, toggleChannel(fields[0]), fields[1] == "on")
	case "/peers":
		fmt.Println("🔗 connected peers:", orch.Peers())
	case "/leave", "/quit":
		return true
	case "/help":
		printHelp()
	default:
		fmt.Println("unknown command:", fields[0])
	}
	return false
}

func toggleChannel(cmd string) game.MediaChannel {
	switch cmd {
	case "/mic":
		return game.ChannelMic
	case "/cam":
		return game.ChannelVideo
	default:
		return game.ChannelAudio
	}
}

func mediaName(event string) string {
	switch {
	case strings.Contains(event, "mic"):
		return "their microphone"
	case strings.Contains(event, "video"):
		return "their camera"
	default:
		return "their audio"
	}
}

func printMembers(members []game.Member) {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Username
	}
	fmt.Printf("👥 In the room: %s\n", strings.Join(names, ", "))
}

func printHelp() {
	fmt.Println(`Commands:
  /start          start the game (host)
  /truth, /dare   choose on your turn
  /spin           spin the wheel
  /next           pass the turn
  /question       draw a free truth question
  /task           draw a free dare
  /mic on|off     toggle microphone
  /cam on|off     toggle camera
  /audio on|off   toggle incoming audio
  /peers          list connected peers
  /end            end the room (host)
  /leave          leave the room
anything else is sent as chat`)
}
