// Package status broadcasts progress of long-running parse and export
// jobs to every connected websocket viewer. The last update is replayed
// to clients that connect mid-job.
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	INFO = iota
	WARNING
	ERROR
	PROGRESS
)

const (
	pingPeriod    = time.Second * 30
	writeDeadline = time.Second * 40
)

type update struct {
	Message  string
	Time     time.Time
	Level    int
	Progress float32
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		unsubscribe(s)
		s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write error: %v", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws ping error: %v", err)
				return
			}
		}
	}
}

// Subscribe attaches the connection to the broadcast and immediately
// replays the most recent update.
func Subscribe(conn *websocket.Conn) {
	s := &subscriber{conn: conn, send: make(chan []byte, 32)}

	globalLock.Lock()
	subscribers[s] = true
	last := lastUpdate
	globalLock.Unlock()

	go s.writePump()
	if last != nil {
		s.send <- last
	}
}

func unsubscribe(s *subscriber) {
	globalLock.Lock()
	defer globalLock.Unlock()
	delete(subscribers, s)
}

var broadcast = make(chan *update, 16)
var subscribers = make(map[*subscriber]bool)
var globalLock sync.Mutex
var lastUpdate []byte

func init() {
	go func() {
		for u := range broadcast {
			data, err := json.Marshal(u)
			if err != nil {
				panic(err)
			}
			globalLock.Lock()
			lastUpdate = data
			for s := range subscribers {
				select {
				case s.send <- data:
				default: // slow client, drop the update
				}
			}
			globalLock.Unlock()
		}
	}()
}

func push(msg string, level int, progress float32) {
	if math.IsNaN(float64(progress)) || math.IsInf(float64(progress), 0) {
		progress = 0
	}
	broadcast <- &update{
		Message:  msg,
		Time:     time.Now(),
		Level:    level,
		Progress: progress,
	}
}

func Info(format string, a ...interface{}) {
	push(fmt.Sprintf(format, a...), INFO, 0.0)
}

func Warning(format string, a ...interface{}) {
	push(fmt.Sprintf(format, a...), WARNING, 0.0)
}

func Error(format string, a ...interface{}) {
	push(fmt.Sprintf(format, a...), ERROR, 0.0)
}

func Progress(progress float32, format string, a ...interface{}) {
	push(fmt.Sprintf(format, a...), PROGRESS, progress)
}
