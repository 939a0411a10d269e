package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type startGame struct {
	Topic  string `json:"topic"`
	TabooA string `json:"tabooA"`
	TabooB string `json:"tabooB"`
}

// send formats and sends a command envelope to the arena server.
func send(c *websocket.Conn, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.WriteJSON(envelope{Event: event, Data: data})
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:3000", Path: "/ws"}
	if len(os.Args) > 1 {
		u.Host = os.Args[1]
	}
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
			var env envelope
			if err := c.ReadJSON(&env); err != nil {
				log.Printf("Read failed: %v", err)
				return
			}
			printEvent(env)
		}
	}()

	// Command loop: start <topic> | <tabooA> | <tabooB>
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "start ") {
				fmt.Println(`usage: start <topic> | <tabooA> | <tabooB>`)
				continue
			}
			parts := strings.Split(strings.TrimPrefix(line, "start "), "|")
			if len(parts) != 3 {
				fmt.Println(`usage: start <topic> | <tabooA> | <tabooB>`)
				continue
			}
			cmd := startGame{
				Topic:  strings.TrimSpace(parts[0]),
				TabooA: strings.TrimSpace(parts[1]),
				TabooB: strings.TrimSpace(parts[2]),
			}
			if err := send(c, "startGame", cmd); err != nil {
				log.Printf("Send failed: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupted, closing connection")
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

func printEvent(env envelope) {
	switch env.Event {
	case "turnProgress":
		var p struct {
			Content string `json:"content"`
		}
		json.Unmarshal(env.Data, &p)
		fmt.Print(p.Content)
	case "turnComplete":
		var p struct {
			Player    string `json:"player"`
			Model     string `json:"model"`
			NextModel string `json:"nextModel"`
		}
		json.Unmarshal(env.Data, &p)
		fmt.Printf("\n--- %s (%s) done, next up %s ---\n", p.Player, p.Model, p.NextModel)
	case "gameOver":
		var p struct {
			Winner string `json:"winner"`
			Reason string `json:"reason"`
		}
		json.Unmarshal(env.Data, &p)
		fmt.Printf("\n=== GAME OVER: %s wins (%s) ===\n", p.Winner, p.Reason)
	default:
		fmt.Printf("[%s] %s\n", env.Event, string(env.Data))
	}
}
