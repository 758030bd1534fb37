package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"gridlands.gg/internal/protocol"
)

func main() {
	var (
		url       = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		principal = flag.String("principal", "acct:bot", "principal identity")
		playerID  = flag.String("player", "", "resume an existing player id")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Principal:       *principal,
		PlayerID:        *playerID,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 8},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{
		conn:   conn,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var wel protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &wel); err != nil {
				continue
			}
			b.welcome(&wel)

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			b.handleState(&st)
		}
	}
}

type bot struct {
	conn   *websocket.Conn
	logger *log.Logger
	rng    *rand.Rand

	playerID   string
	gridWidth  int
	gridHeight int

	lastJoinTick uint64
}

func (b *bot) welcome(w *protocol.WelcomeMsg) {
	b.playerID = w.PlayerID
	b.gridWidth = w.World.GridWidth
	b.gridHeight = w.World.GridHeight
	b.logger.Printf("WELCOME player_id=%s tick=%d health=%d joined=%v grid=%dx%d",
		w.PlayerID, w.Tick, w.Health, w.Joined, w.World.GridWidth, w.World.GridHeight)
}

func (b *bot) handleState(st *protocol.StateMsg) {
	for _, ev := range st.Events {
		if ev["t"] == "ACTION_RESULT" && ev["ok"] == false {
			b.logger.Printf("rejected ref=%v code=%v message=%v", ev["ref"], ev["code"], ev["message"])
		}
	}

	if !st.Active {
		return
	}

	if !st.Self.Joined {
		// A full or inactive world rejects JOIN; retry slowly.
		if b.lastJoinTick != 0 && st.Tick-b.lastJoinTick < 10 {
			return
		}
		b.lastJoinTick = st.Tick
		b.send(st.Tick, protocol.CommandReq{
			ID:   fmt.Sprintf("c_join_%d", st.Tick),
			Type: protocol.CmdJoin,
		})
		return
	}

	if st.Tick < st.Self.CooldownReadyTick {
		return
	}
	pos := st.Self.Pos
	if pos == nil {
		return
	}

	// Standing on a deposit: harvest before wandering off.
	for _, c := range st.Cells {
		if c.Pos != *pos {
			continue
		}
		if c.TokenDeposit > 0 {
			b.send(st.Tick, protocol.CommandReq{
				ID:   fmt.Sprintf("c_collect_%d", st.Tick),
				Type: protocol.CmdCollectTokens,
			})
			return
		}
		if c.HealthDeposit > 0 {
			b.send(st.Tick, protocol.CommandReq{
				ID:   fmt.Sprintf("c_collect_%d", st.Tick),
				Type: protocol.CmdCollectHealth,
			})
			return
		}
	}

	// Wander every few ticks rather than burning health each step.
	if st.Tick%8 != 0 {
		return
	}
	if dir := b.pickMove(*pos); dir != "" {
		b.send(st.Tick, protocol.CommandReq{
			ID:        fmt.Sprintf("c_move_%d", st.Tick),
			Type:      protocol.CmdMove,
			Direction: dir,
		})
	}
}

// pickMove random-walks but never into a wall.
func (b *bot) pickMove(pos [2]int) string {
	type step struct {
		dir string
		dx  int
		dy  int
	}
	steps := []step{
		{protocol.DirUp, 0, -1},
		{protocol.DirDown, 0, 1},
		{protocol.DirLeft, -1, 0},
		{protocol.DirRight, 1, 0},
	}
	b.rng.Shuffle(len(steps), func(i, j int) { steps[i], steps[j] = steps[j], steps[i] })
	for _, s := range steps {
		x, y := pos[0]+s.dx, pos[1]+s.dy
		if x < 0 || y < 0 || x >= b.gridWidth || y >= b.gridHeight {
			continue
		}
		return s.dir
	}
	return ""
}

func (b *bot) send(tick uint64, cmds ...protocol.CommandReq) {
	msg := protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		PlayerID:        b.playerID,
		Commands:        cmds,
	}
	if err := b.conn.WriteJSON(msg); err != nil {
		b.logger.Printf("send CMD: %v", err)
	}
}
