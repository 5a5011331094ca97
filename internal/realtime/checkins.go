package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"backend-pameran/internal/models"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
)

const (
	writeWait = 5 * time.Second

	// clientBuffer is how many frames a dashboard may fall behind before
	// it is dropped.
	clientBuffer = 16
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type subscription struct {
	exhibitionID int64
	conn         Conn
	// left, when set, receives the dropped client's finished channel (nil
	// if it was not subscribed).
	left chan<- chan struct{}
}

// client is one dashboard. Only its writer goroutine touches conn; the hub
// hands it frames through send and closes send to let it go.
type client struct {
	conn     Conn
	send     chan []byte
	finished chan struct{}
}

// CheckinHub fans recorded check-ins out to the dashboards watching the
// exhibition they belong to. All room state is owned by the Run goroutine,
// which never blocks on a socket.
type CheckinHub struct {
	register   chan subscription
	unregister chan subscription
	broadcast  chan models.CheckinEvent
	done       chan struct{}
	stopped    chan struct{}

	rooms   map[int64]map[Conn]*client
	writers sync.WaitGroup
	log     *zerolog.Logger
}

func NewCheckinHub(log *zerolog.Logger) *CheckinHub {
	return &CheckinHub{
		register:   make(chan subscription),
		unregister: make(chan subscription),
		broadcast:  make(chan models.CheckinEvent, 64),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		rooms:      make(map[int64]map[Conn]*client),
		log:        log,
	}
}

func (h *CheckinHub) Run() {
	defer close(h.stopped)

	for {
		select {
		case s := <-h.register:
			room, ok := h.rooms[s.exhibitionID]
			if !ok {
				room = make(map[Conn]*client)
				h.rooms[s.exhibitionID] = room
			}
			if _, ok := room[s.conn]; ok {
				continue
			}
			c := &client{conn: s.conn, send: make(chan []byte, clientBuffer), finished: make(chan struct{})}
			room[s.conn] = c
			h.writers.Add(1)
			go h.write(s.exhibitionID, c)
			h.log.Debug().Int64("exhibition_id", s.exhibitionID).Int("clients", len(room)).Msg("feed client joined")

		case s := <-h.unregister:
			c := h.drop(s.exhibitionID, s.conn)
			if s.left != nil {
				var finished chan struct{}
				if c != nil {
					finished = c.finished
				}
				s.left <- finished
			}

		case ev := <-h.broadcast:
			h.send(ev)

		case <-h.done:
			for id, room := range h.rooms {
				for _, c := range room {
					close(c.send)
				}
				delete(h.rooms, id)
			}
			h.writers.Wait()
			return
		}
	}
}

func (h *CheckinHub) send(ev models.CheckinEvent) {
	room := h.rooms[ev.ExhibitionID]
	if len(room) == 0 {
		return
	}

	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode check-in event")
		return
	}

	for conn, c := range room {
		select {
		case c.send <- msg:
		default:
			h.log.Warn().Int64("exhibition_id", ev.ExhibitionID).Msg("feed client too slow, dropping")
			h.drop(ev.ExhibitionID, conn)
		}
	}
}

func (h *CheckinHub) drop(exhibitionID int64, conn Conn) *client {
	room, ok := h.rooms[exhibitionID]
	if !ok {
		return nil
	}
	c, ok := room[conn]
	if !ok {
		return nil
	}
	delete(room, conn)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, exhibitionID)
	}
	return c
}

// write delivers frames to one connection until the hub closes its send
// channel. After a failed write it asks the hub to drop the client and
// discards whatever is still queued.
func (h *CheckinHub) write(exhibitionID int64, c *client) {
	defer h.writers.Done()
	defer close(c.finished)
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug().Err(err).Int64("exhibition_id", exhibitionID).Msg("feed write failed, dropping client")
			select {
			case h.unregister <- subscription{exhibitionID: exhibitionID, conn: c.conn}:
			case <-h.done:
			}
			for range c.send {
			}
			return
		}
	}
}

// Join subscribes c to an exhibition. It reports false once the hub is
// stopped.
func (h *CheckinHub) Join(exhibitionID int64, c Conn) bool {
	select {
	case h.register <- subscription{exhibitionID: exhibitionID, conn: c}:
		return true
	case <-h.done:
		return false
	}
}

// Leave unsubscribes c and returns once nothing will write to it again.
func (h *CheckinHub) Leave(exhibitionID int64, c Conn) {
	left := make(chan chan struct{}, 1)
	select {
	case h.unregister <- subscription{exhibitionID: exhibitionID, conn: c, left: left}:
		if finished := <-left; finished != nil {
			<-finished
		}
	case <-h.done:
	}
}

// BroadcastCheckin queues ev for delivery. It never blocks a scan: when the
// queue is full the event is dropped for the live feed only.
func (h *CheckinHub) BroadcastCheckin(ev models.CheckinEvent) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	default:
		h.log.Warn().Int64("exhibition_id", ev.ExhibitionID).Msg("feed queue full, event dropped")
	}
}

// Stop closes every connection and waits for Run to return.
func (h *CheckinHub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
	<-h.stopped
}
