package routes

import (
	"log"
	"net/http"

	"staynest-server/chatsync"
	"staynest-server/models"
	"staynest-server/realtime"
	"staynest-server/storage"
	"staynest-server/utils"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// feedCommand is what a connected client sends over the socket. Message
// creation stays on HTTP; the socket only controls which feed is mounted.
type feedCommand struct {
	Action         string `json:"action"` // switch, resync
	ConversationID uint   `json:"conversationID"`
}

type feedSnapshot struct {
	Type           string             `json:"type"`
	ConversationID uint               `json:"conversationID"`
	Messages       []chatsync.Message `json:"messages"`
}

type feedError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// feedConn is the write side of a socket connection.
type feedConn interface {
	WriteJSON(v interface{}) error
}

// feedWriter serializes socket writes. gorilla/websocket supports at most
// one concurrent writer, and both the command loop and the event forwarder
// produce payloads, so everything funnels through one writing goroutine.
type feedWriter struct {
	out  chan interface{}
	quit chan struct{}
}

func newFeedWriter() *feedWriter {
	return &feedWriter{
		out:  make(chan interface{}, 16),
		quit: make(chan struct{}),
	}
}

// run performs every write until stop is called or a write fails. The only
// goroutine that touches the connection's write side.
func (w *feedWriter) run(conn feedConn) {
	for {
		select {
		case v := <-w.out:
			if err := conn.WriteJSON(v); err != nil {
				log.Println("error writing feed payload:", err)
				return
			}
		case <-w.quit:
			return
		}
	}
}

// send queues one payload; once the writer has stopped it is dropped.
func (w *feedWriter) send(v interface{}) {
	select {
	case w.out <- v:
	case <-w.quit:
	}
}

func (w *feedWriter) stop() {
	close(w.quit)
}

// conversationHistory loads the canonical message list for the merge path.
func conversationHistory(conversationID uint) ([]chatsync.Message, error) {
	var rows []models.Message
	if err := storage.DB.Where("conversation_id = ?", conversationID).
		Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	history := make([]chatsync.Message, 0, len(rows))
	for _, m := range rows {
		history = append(history, chatsync.Message{
			ID:             m.ID,
			ClientKey:      m.ClientKey,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			Content:        m.Content,
			IsVerified:     m.IsVerified,
		})
	}
	return history, nil
}

// MessageFeed upgrades to a websocket and streams message inserts for the
// mounted conversation. The client mounts with ?conversationID=, may switch
// threads without reconnecting, and receives a full snapshot after every
// mount or resync.
func MessageFeed(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	conversationID, err := ctx.URLParamInt("conversationID")
	if err != nil || conversationID <= 0 {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}
	if _, ok := isParticipant(uint(conversationID), claims.ID); !ok {
		ctx.StopWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(ctx.ResponseWriter(), ctx.Request(), nil)
	if err != nil {
		log.Println("error upgrading feed connection:", err)
		return
	}
	defer conn.Close()

	writer := newFeedWriter()
	defer writer.stop()
	go writer.run(conn)

	session, err := realtime.NewSession(Feed, conversationHistory, uint(conversationID), claims.ID)
	if err != nil {
		writer.send(feedError{Type: "error", Message: "failed to load history"})
		// stay mounted; the client may ask for a resync
	}
	defer session.Close()

	writer.send(snapshotOf(session, uint(conversationID)))

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			feed := session.Feed()
			ev, ok := <-feed
			if !ok {
				// Subscription replaced by a switch, or session closed
				select {
				case <-done:
					return
				default:
					continue
				}
			}
			session.Apply(ev)
			writer.send(ev)
		}
	}()

	for {
		var cmd feedCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		switch cmd.Action {
		case "switch":
			if cmd.ConversationID == 0 {
				continue
			}
			if _, ok := isParticipant(cmd.ConversationID, claims.ID); !ok {
				writer.send(feedError{Type: "error", Message: "not a participant"})
				continue
			}
			if err := session.Switch(cmd.ConversationID); err != nil {
				writer.send(feedError{Type: "error", Message: "failed to load history"})
				continue
			}
			writer.send(snapshotOf(session, cmd.ConversationID))
		case "resync":
			if err := session.Resync(); err != nil {
				writer.send(feedError{Type: "error", Message: "failed to load history"})
				continue
			}
			writer.send(snapshotOf(session, 0))
		}
	}
}

func snapshotOf(session *realtime.Session, conversationID uint) feedSnapshot {
	return feedSnapshot{
		Type:           "snapshot",
		ConversationID: conversationID,
		Messages:       session.Messages(),
	}
}
