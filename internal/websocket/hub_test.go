package websocket

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/guardianplus/backend/internal/models"
)

type fakeMembers struct {
	ids map[uuid.UUID][]uuid.UUID
}

func (f *fakeMembers) GetMemberIDs(channelID uuid.UUID) ([]uuid.UUID, error) {
	return f.ids[channelID], nil
}

func newTestHub(members MemberSource) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		members: members,
	}
}

func addClient(h *Hub, userID uuid.UUID) *Client {
	c := &Client{userID: userID, send: make(chan []byte, 8)}
	h.clients[userID] = c
	return c
}

func TestSendToUser(t *testing.T) {
	h := newTestHub(nil)
	userID := uuid.New()
	client := addClient(h, userID)

	payload := models.WSMessage{Event: models.EventModerationWarn, Payload: "hi"}
	if err := h.SendToUser(userID, payload); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	select {
	case data := <-client.send:
		var got models.WSMessage
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Failed to unmarshal delivered payload: %v", err)
		}
		if got.Event != models.EventModerationWarn {
			t.Errorf("Expected event %q, got %q", models.EventModerationWarn, got.Event)
		}
	default:
		t.Fatal("Expected payload to be delivered")
	}
}

func TestSendToUser_NotConnected(t *testing.T) {
	h := newTestHub(nil)

	// No client registered; must not error or block
	if err := h.SendToUser(uuid.New(), models.WSMessage{Event: models.EventError}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestSendToChannel_OnlyMembers(t *testing.T) {
	channelID := uuid.New()
	member := uuid.New()
	outsider := uuid.New()

	h := newTestHub(&fakeMembers{ids: map[uuid.UUID][]uuid.UUID{
		channelID: {member},
	}})
	memberClient := addClient(h, member)
	outsiderClient := addClient(h, outsider)

	if err := h.SendToChannel(channelID, models.WSMessage{Event: models.EventModerationNotice}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(memberClient.send) != 1 {
		t.Errorf("Expected member to receive 1 payload, got %d", len(memberClient.send))
	}
	if len(outsiderClient.send) != 0 {
		t.Errorf("Expected outsider to receive nothing, got %d", len(outsiderClient.send))
	}
}

func TestRouteModerationEvent_WarningGoesToUserOnly(t *testing.T) {
	h := newTestHub(nil)
	warned := uuid.New()
	other := uuid.New()
	warnedClient := addClient(h, warned)
	otherClient := addClient(h, other)

	payload, _ := json.Marshal(models.WSMessage{
		Event: models.EventModerationWarn,
		Payload: models.WSWarningPayload{
			UserID: warned,
			Text:   "Your message was removed",
		},
	})

	h.routeModerationEvent(payload)

	if len(warnedClient.send) != 1 {
		t.Errorf("Expected warned user to receive 1 payload, got %d", len(warnedClient.send))
	}
	if len(otherClient.send) != 0 {
		t.Errorf("Expected other user to receive nothing, got %d", len(otherClient.send))
	}
}

func TestRouteModerationEvent_DeletionGoesToChannel(t *testing.T) {
	channelID := uuid.New()
	member := uuid.New()

	h := newTestHub(&fakeMembers{ids: map[uuid.UUID][]uuid.UUID{
		channelID: {member},
	}})
	memberClient := addClient(h, member)

	payload, _ := json.Marshal(models.WSMessage{
		Event: models.EventMessageDeleted,
		Payload: models.WSMessageDeletedPayload{
			MessageID: uuid.New(),
			ChannelID: channelID,
		},
	})

	h.routeModerationEvent(payload)

	if len(memberClient.send) != 1 {
		t.Errorf("Expected channel member to receive deletion event, got %d payloads", len(memberClient.send))
	}
}

func TestRouteMessageEvent(t *testing.T) {
	channelID := uuid.New()
	member := uuid.New()

	h := newTestHub(&fakeMembers{ids: map[uuid.UUID][]uuid.UUID{
		channelID: {member},
	}})
	memberClient := addClient(h, member)

	payload, _ := json.Marshal(models.WSMessage{
		Event: models.EventMessageNew,
		Payload: models.Message{
			ID:        uuid.New(),
			ChannelID: channelID,
			SenderID:  member,
			Body:      "hello",
		},
	})

	h.routeMessageEvent(payload)

	if len(memberClient.send) != 1 {
		t.Errorf("Expected channel member to receive message, got %d payloads", len(memberClient.send))
	}
}

func TestSendToUser_SlowConsumerDropped(t *testing.T) {
	h := newTestHub(nil)
	userID := uuid.New()
	client := &Client{userID: userID, send: make(chan []byte)} // unbuffered, always full
	h.clients[userID] = client

	if err := h.SendToUser(userID, models.WSMessage{Event: models.EventError}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, still := h.clients[userID]; still {
		t.Error("Expected slow consumer to be dropped from the hub")
	}
}
