// Command feedwatch connects to the server's live feed and prints each
// notification outcome as it happens.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	ws "github.com/Priya8975/incident-subscriptions/internal/websocket"
)

var eventCount atomic.Int64

func main() {
	addr := "localhost:8080"
	if a := os.Getenv("SERVER_ADDR"); a != "" {
		addr = a
	}
	url := "ws://" + strings.TrimPrefix(addr, "http://") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", url, err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	log.Printf("Watching %s", url)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("feed closed after %d events: %v", eventCount.Load(), err)
			return
		}

		var event ws.DeliveryEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("skipping malformed event: %v", err)
			continue
		}
		printEvent(event)
	}
}

func printEvent(e ws.DeliveryEvent) {
	count := eventCount.Add(1)
	line := fmt.Sprintf("[#%d] %s incident=%d subscriber=%d status=%d id=%s",
		count,
		e.Type,
		e.IncidentID,
		e.SubscriberID,
		e.Status,
		truncate(e.NotificationID, 8),
	)
	if e.Error != "" {
		line += " error=" + e.Error
	}
	fmt.Println(line)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
