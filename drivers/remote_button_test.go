package drivers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func makePushParams(pin, event, token string) httprouter.Params {
	return httprouter.Params{
		{Key: "pin_no", Value: pin},
		{Key: "event", Value: event},
		{Key: "token", Value: token},
	}
}

func TestRemoteButtonSetup(t *testing.T) {
	rb := &RemoteButton{Token: "secret", HttpAddr: "127.0.0.1:0"}

	err := rb.Setup(context.Background(), []uint16{4}, []uint16{7})
	if err == nil {
		t.Error("expected error when setting up remote button driver with outputs")
	}

	rb = &RemoteButton{Token: "secret", HttpAddr: "127.0.0.1:0"}
	err = rb.Setup(context.Background(), []uint16{4}, []uint16{})
	if err != nil {
		t.Fatalf("Setup returned err: %v", err)
	}
	defer rb.Close()

	assertBools(t, rb.IsReady(), true)

	inputs, outputs := rb.GetAllIo()
	assertUint16Slices(t, inputs, []uint16{4})
	assertUint16Slices(t, outputs, []uint16{})

	_, err = rb.GetInput(4)
	if err != nil {
		t.Errorf("GetInput returned err: %v", err)
	}

	_, err = rb.GetInput(5)
	if err == nil {
		t.Error("expected error getting unknown input")
	}

	_, err = rb.GetOutput(4)
	if err == nil {
		t.Error("expected error getting output from remote button driver")
	}
}

func TestRemoteButtonHandlePush(t *testing.T) {
	rb := &RemoteButton{Token: "secret", HttpAddr: "127.0.0.1:0"}
	err := rb.Setup(context.Background(), []uint16{4}, []uint16{})
	if err != nil {
		t.Fatalf("Setup returned err: %v", err)
	}
	defer rb.Close()

	listener := &recordingListener{}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/push/4/event/single/token/secret", nil)

	rb.handlePush(w, req, makePushParams("4", "single", "secret"))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("push with no listener: got status %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	input, _ := rb.GetInput(4)
	input.SubscribeToPushEvent(listener)

	w = httptest.NewRecorder()
	rb.handlePush(w, req, makePushParams("4", "single", "not-valid"))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("push with bad token: got status %d, want %d", w.Code, http.StatusUnauthorized)
	}

	w = httptest.NewRecorder()
	rb.handlePush(w, req, makePushParams("9", "single", "secret"))
	if w.Code != http.StatusNotFound {
		t.Errorf("push with unknown pin: got status %d, want %d", w.Code, http.StatusNotFound)
	}

	w = httptest.NewRecorder()
	rb.handlePush(w, req, makePushParams("4", "triple", "secret"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("push with unknown event: got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = httptest.NewRecorder()
	rb.handlePush(w, req, makePushParams("4", "single", "secret"))
	if w.Code != http.StatusOK {
		t.Errorf("valid push: got status %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	rb.handlePush(w, req, makePushParams("4", "long", "secret"))

	if len(listener.events) != 2 {
		t.Fatalf("listener got %d events, want 2", len(listener.events))
	}
	if listener.events[0] != PushEventSinglePress || listener.events[1] != PushEventLongPress {
		t.Errorf("listener got events %v", listener.events)
	}
}
