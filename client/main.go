package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeHeartbeat    = 1
	MsgTypeCreateRoom   = 101
	MsgTypeJoinRoom     = 102
	MsgTypeLeaveRoom    = 103
	MsgTypePlayerAction = 201
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	join := flag.String("join", "", "room id to join instead of creating one (empty joins any)")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	// Heartbeat keeps the server-side read deadline fresh.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := send(c, MsgTypeHeartbeat, nil); err != nil {
					return
				}
			}
		}
	}()

	if isFlagSet("join") {
		req, _ := json.Marshal(map[string]string{"room_id": *join})
		log.Println("Sending Join Room request...")
		if err := send(c, MsgTypeJoinRoom, req); err != nil {
			log.Println("Write error:", err)
			return
		}
	} else {
		log.Println("Sending Create Room request...")
		if err := send(c, MsgTypeCreateRoom, []byte{}); err != nil {
			log.Println("Write error:", err)
			return
		}
	}

	log.Println("Client started. Type 'tap' and press Enter to score, 'leave' to leave the room.")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			text = strings.TrimSpace(text)

			switch text {
			case "tap":
				actionData, _ := json.Marshal(map[string]string{"type": "tap"})
				if err := send(c, MsgTypePlayerAction, actionData); err != nil {
					log.Println("Write error:", err)
					return
				}
				log.Println("-> SENT: tap action")
			case "leave":
				if err := send(c, MsgTypeLeaveRoom, nil); err != nil {
					log.Println("Write error:", err)
					return
				}
				log.Println("-> SENT: leave room")
			}
		}
	}
}

// isFlagSet reports whether the named flag appeared on the command line.
func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
