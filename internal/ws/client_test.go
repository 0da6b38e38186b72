package ws

import (
	"encoding/json"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/database"
	"github.com/campusgigs/campusgigs-backend/internal/models"
	"github.com/campusgigs/campusgigs-backend/internal/services"
)

// fakeSocket feeds inbound frames from a channel and records outbound text
// frames, standing in for a *websocket.Conn.
type fakeSocket struct {
	in        chan []byte
	out       chan []byte
	closeOnce sync.Once
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{in: make(chan []byte, 16), out: make(chan []byte, 16)}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	frame, ok := <-s.in
	if !ok {
		return 0, nil, io.EOF
	}
	return websocket.TextMessage, frame, nil
}

func (s *fakeSocket) WriteMessage(messageType int, data []byte) error {
	if messageType == websocket.TextMessage {
		s.out <- data
	}
	return nil
}

func (s *fakeSocket) SetReadDeadline(time.Time) error  { return nil }
func (s *fakeSocket) SetWriteDeadline(time.Time) error { return nil }
func (s *fakeSocket) SetPongHandler(func(string) error) {}

func (s *fakeSocket) Close() error {
	s.closeOnce.Do(func() { close(s.in) })
	return nil
}

func (s *fakeSocket) push(t *testing.T, frame interface{}) {
	t.Helper()
	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	s.in <- raw
}

func (s *fakeSocket) next(t *testing.T) Envelope {
	t.Helper()
	select {
	case raw := <-s.out:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outbound frame")
		return Envelope{}
	}
}

type chatFixture struct {
	db        *gorm.DB
	chat      *services.ChatService
	hub       *Hub
	responder *AssistantResponder
	employer  models.User
	seeker    models.User
	conv      models.Conversation
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	f := &chatFixture{
		db:       db,
		chat:     services.NewChatService(db),
		hub:      NewHub(),
		employer: models.User{Email: "owner@shop.test", DisplayName: "Shop", Role: models.RoleEmployer},
		seeker:   models.User{Email: "sam@student.test", DisplayName: "Sam", Role: models.RoleSeeker},
	}
	require.NoError(t, db.Create(&f.employer).Error)
	require.NoError(t, db.Create(&f.seeker).Error)
	f.conv = models.Conversation{EmployerID: f.employer.ID, StudentID: f.seeker.ID}
	require.NoError(t, db.Create(&f.conv).Error)
	return f
}

func (f *chatFixture) connect(t *testing.T, user models.User) (*Client, *fakeSocket) {
	t.Helper()
	sock := newFakeSocket()
	client := NewClient(f.hub, f.chat, f.responder, auth.Identity{UserID: user.ID, Role: user.Role}, sock)
	go client.Start()
	require.Eventually(t, func() bool { return f.hub.Online(user.ID) }, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() { sock.Close() })
	return client, sock
}

func TestPushPathDeliversToRecipient(t *testing.T) {
	f := newChatFixture(t)
	_, senderSock := f.connect(t, f.employer)
	_, recipientSock := f.connect(t, f.seeker)

	senderSock.push(t, map[string]interface{}{
		"type":            "message",
		"conversation_id": f.conv.ID,
		"content":         "shift starts at 9",
	})

	ack := senderSock.next(t)
	assert.Equal(t, "ack", ack.Type)

	delivered := recipientSock.next(t)
	require.Equal(t, "message", delivered.Type)
	var msg models.Message
	require.NoError(t, json.Unmarshal(delivered.Data, &msg))
	assert.Equal(t, "shift starts at 9", msg.Content)
	assert.Equal(t, f.employer.ID, msg.SenderID)

	var count int64
	require.NoError(t, f.db.Model(&models.Message{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPushPathPersistsWhenRecipientOffline(t *testing.T) {
	f := newChatFixture(t)
	_, senderSock := f.connect(t, f.employer)

	senderSock.push(t, map[string]interface{}{
		"type":            "message",
		"conversation_id": f.conv.ID,
		"content":         "are you coming in today?",
	})

	// The sender still gets an ack; the message waits in the store for the
	// recipient's next poll or reconnect.
	assert.Equal(t, "ack", senderSock.next(t).Type)

	var msg models.Message
	require.NoError(t, f.db.Where("conversation_id = ?", f.conv.ID).First(&msg).Error)
	assert.Equal(t, f.seeker.ID, msg.RecipientID)
	var conv models.Conversation
	require.NoError(t, f.db.First(&conv, f.conv.ID).Error)
	assert.Equal(t, 1, conv.StudentUnread)
}

func TestPushPathRejectsNonParticipant(t *testing.T) {
	f := newChatFixture(t)
	outsider := models.User{Email: "out@student.test", DisplayName: "Out", Role: models.RoleSeeker}
	require.NoError(t, f.db.Create(&outsider).Error)
	_, sock := f.connect(t, outsider)

	sock.push(t, map[string]interface{}{
		"type":            "message",
		"conversation_id": f.conv.ID,
		"content":         "let me in",
	})
	env := sock.next(t)
	assert.Equal(t, "error", env.Type)
	assert.NotEmpty(t, env.Error)

	var count int64
	require.NoError(t, f.db.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTypingIsBroadcastNotPersisted(t *testing.T) {
	f := newChatFixture(t)
	_, senderSock := f.connect(t, f.seeker)
	_, recipientSock := f.connect(t, f.employer)

	senderSock.push(t, map[string]interface{}{
		"type":            "typing",
		"conversation_id": f.conv.ID,
		"is_typing":       true,
	})

	env := recipientSock.next(t)
	require.Equal(t, "typing", env.Type)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, true, payload["is_typing"])

	var count int64
	require.NoError(t, f.db.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReadFrameAcknowledgesAndNotifies(t *testing.T) {
	f := newChatFixture(t)
	_, employerSock := f.connect(t, f.employer)
	_, seekerSock := f.connect(t, f.seeker)

	employerSock.push(t, map[string]interface{}{
		"type":            "message",
		"conversation_id": f.conv.ID,
		"content":         "ping",
	})
	assert.Equal(t, "ack", employerSock.next(t).Type)
	assert.Equal(t, "message", seekerSock.next(t).Type)

	seekerSock.push(t, map[string]interface{}{
		"type":            "read",
		"conversation_id": f.conv.ID,
	})

	receipt := employerSock.next(t)
	assert.Equal(t, "read", receipt.Type)

	require.Eventually(t, func() bool {
		var conv models.Conversation
		if err := f.db.First(&conv, f.conv.ID).Error; err != nil {
			return false
		}
		return conv.StudentUnread == 0
	}, 2*time.Second, 10*time.Millisecond)
}
