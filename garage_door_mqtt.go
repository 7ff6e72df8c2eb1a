package garagekit

import (
	"strings"

	"github.com/brutella/hap/characteristic"
	"github.com/eclipse/paho.golang/paho"

	"github.com/hubertat/garagekit/mqtt"
)

const mqttTopicPrefix = "garagekit"

// SetMqtt attaches the publisher and returns the door as its own command
// handler, mirroring how drivers expose their mqtt surface.
func (gd *GarageDoor) SetMqtt(publisher mqtt.Publisher) []mqtt.MqttHandler {
	gd.publisher = publisher
	return []mqtt.MqttHandler{gd}
}

func (gd *GarageDoor) MqttSubscribeTopic() string {
	return mqttTopicPrefix + "/" + gd.Name + "/set"
}

func (gd *GarageDoor) stateTopic() string {
	return mqttTopicPrefix + "/" + gd.Name + "/state"
}

func (gd *GarageDoor) MqttHandle(pub *paho.Publish) {
	switch strings.ToLower(strings.TrimSpace(string(pub.Payload))) {
	case "open":
		gd.SetTarget(characteristic.TargetDoorStateOpen)
	case "close", "closed":
		gd.SetTarget(characteristic.TargetDoorStateClosed)
	default:
		gd.logger.Warn("unrecognized door command", "topic", pub.Topic, "payload", string(pub.Payload))
	}
}

// publishState is called with the door lock held.
func (gd *GarageDoor) publishState() {
	if gd.publisher == nil {
		return
	}
	err := gd.publisher.Publish(gd.stateTopic(), []byte(describeCurrentState(gd.state.Current)))
	if err != nil {
		gd.logger.Error("failed to publish door state", "err", err)
	}
}
