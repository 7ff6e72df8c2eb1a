package drivers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/hubertat/garagekit/mqtt"
)

const remoteButtonDriverName = "remote_button"
const remoteButtonHttpTimeoutsMs = 3000

// RemoteButton exposes an HTTP endpoint for wall transmitters (or anything
// that can issue a GET) to push button events into the controller. Each
// configured input pin is a virtual button; the door subscribes to its push
// events like to any other input.
type RemoteButton struct {
	Token    string
	HttpAddr string

	inputs []*remoteButtonInput
	ready  bool
	server *http.Server

	serverErr chan error
}

func (rb *RemoteButton) String() string {
	return remoteButtonDriverName
}

func (rb *RemoteButton) IsReady() bool {
	return rb.ready
}

func (rb *RemoteButton) Close() error {
	rb.ready = false
	return rb.server.Close()
}

func (rb *RemoteButton) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	if len(outputs) > 0 {
		return fmt.Errorf("remote button driver has no outputs, got %d requested", len(outputs))
	}

	for _, inPin := range inputs {
		rb.inputs = append(rb.inputs, &remoteButtonInput{pin: inPin})
	}

	handler := httprouter.New()
	handler.GET("/push/:pin_no/event/:event/token/:token", rb.handlePush)

	httpTimeout := remoteButtonHttpTimeoutsMs * time.Millisecond

	rb.server = &http.Server{
		Addr:              rb.HttpAddr,
		Handler:           handler,
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	rb.serverErr = make(chan error, 1)

	rb.ready = true
	go func() {
		rb.serverErr <- rb.server.ListenAndServe()
		rb.ready = false
	}()

	return nil
}

func (rb *RemoteButton) SetMqtt(publisher mqtt.Publisher) (handlers []mqtt.MqttHandler) {
	return
}

func (rb *RemoteButton) GetInput(pin uint16) (DigitalInput, error) {
	for _, in := range rb.inputs {
		if in.pin == pin {
			return in, nil
		}
	}

	return nil, fmt.Errorf("remote button input no: %d not found", pin)
}

func (rb *RemoteButton) GetOutput(pin uint16) (DigitalOutput, error) {
	return nil, fmt.Errorf("remote button driver has no outputs")
}

func (rb *RemoteButton) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range rb.inputs {
		inputs = append(inputs, input.pin)
	}

	return
}

func (rb *RemoteButton) handlePush(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if !strings.EqualFold(p.ByName("token"), rb.Token) {
		http.Error(w, "token mismatch", http.StatusUnauthorized)
		return
	}

	var input *remoteButtonInput
	pinNo, _ := strconv.Atoi(p.ByName("pin_no"))

	for _, in := range rb.inputs {
		if in.pin == uint16(pinNo) {
			input = in
		}
	}

	if input == nil {
		http.Error(w, "pin not found", http.StatusNotFound)
		return
	}

	if input.listener == nil {
		http.Error(w, "no listener subscribed", http.StatusServiceUnavailable)
		return
	}

	switch p.ByName("event") {
	case "single":
		input.listener.FireEvent(PushEventSinglePress)
	case "double":
		input.listener.FireEvent(PushEventDoublePress)
	case "long":
		input.listener.FireEvent(PushEventLongPress)
	default:
		http.Error(w, "unrecognized push event type", http.StatusBadRequest)
	}
}

type remoteButtonInput struct {
	pin      uint16
	listener EventListener
}

func (rbi *remoteButtonInput) GetState() (bool, error) {
	return false, nil
}

func (rbi *remoteButtonInput) SubscribeToPushEvent(listener EventListener) error {
	rbi.listener = listener
	return nil
}
