package mqtt

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/eclipse/paho.golang/paho"
)

type testHandler struct {
	topic string
	got   []*paho.Publish
}

func (th *testHandler) MqttSubscribeTopic() string {
	return th.topic
}

func (th *testHandler) MqttHandle(pub *paho.Publish) {
	th.got = append(th.got, pub)
}

func TestOnPublishRecvDispatch(t *testing.T) {
	garage := &testHandler{topic: "garagekit/garage/set"}
	barn := &testHandler{topic: "garagekit/barn/set"}

	mc := &MqttClient{
		logger:   log.Default(),
		handlers: []MqttHandler{garage, barn},
	}

	recv := mc.onPublishRecv()
	if len(recv) != 1 {
		t.Fatalf("expected 1 publish received callback, got %d", len(recv))
	}

	handled, err := recv[0](paho.PublishReceived{
		Packet: &paho.Publish{Topic: "garagekit/barn/set", Payload: []byte("open")},
	})
	if err != nil {
		t.Errorf("publish received callback returned err: %v", err)
	}
	if !handled {
		t.Error("expected publish on known topic to be handled")
	}
	if len(barn.got) != 1 || len(garage.got) != 0 {
		t.Errorf("dispatch mismatch: barn got %d, garage got %d", len(barn.got), len(garage.got))
	}

	handled, _ = recv[0](paho.PublishReceived{
		Packet: &paho.Publish{Topic: "garagekit/unknown/set", Payload: []byte("open")},
	})
	if handled {
		t.Error("expected publish on unknown topic to be left unhandled")
	}
}

func TestNewMqttClient(t *testing.T) {
	mc, err := NewMqttClient("mqtt://localhost:1883", "garagekit")
	if err != nil {
		t.Fatalf("NewMqttClient returned err: %v", err)
	}

	if len(mc.config.ServerUrls) != 1 {
		t.Fatalf("expected 1 broker url, got %d", len(mc.config.ServerUrls))
	}
	if mc.config.ServerUrls[0].Host != "localhost:1883" {
		t.Errorf("broker host = %s, want localhost:1883", mc.config.ServerUrls[0].Host)
	}
	if mc.config.ClientConfig.ClientID != "garagekit" {
		t.Errorf("client id = %s, want garagekit", mc.config.ClientConfig.ClientID)
	}
}
