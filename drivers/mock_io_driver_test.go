package drivers

import (
	"context"
	"testing"
)

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertUint16Slices(t testing.TB, got, want []uint16) {
	t.Helper()

	if len(got) != len(want) {
		t.Errorf("len(got) = %d len(want) = %d", len(got), len(want))
		return
	}

	for key, val := range got {
		if want[key] != val {
			t.Errorf("for key [%d] got: %d want: %d", key, val, want[key])
		}
	}
}

func TestMockInputGetState(t *testing.T) {
	inEnabled := MockInput{State: true}
	inDisabled := MockInput{State: false}

	state, _ := inEnabled.GetState()
	if state != true {
		t.Error("MockInput GetState failed")
	}

	state, _ = inDisabled.GetState()
	if state != false {
		t.Error("MockInput GetState failed")
	}
}

func TestMockOutputSetState(t *testing.T) {
	out := MockOutput{}

	want := true
	out.Set(want)
	got, _ := out.GetState()
	assertBools(t, got, want)

	want = false
	out.Set(want)
	got, _ = out.GetState()
	assertBools(t, got, want)

	want = true
	out.Set(want)
	got, _ = out.GetState()
	assertBools(t, got, want)
}

func TestMockIoSetup(t *testing.T) {
	md := MockIoDriver{}

	want := false
	got := md.IsReady()
	assertBools(t, got, want)

	md.Setup(context.Background(), []uint16{1, 3, 5}, []uint16{2, 4})
	want = true
	got = md.IsReady()
	assertBools(t, got, want)
}

func TestMockIoGetAllIo(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{1, 3, 5}, []uint16{2, 4})
	inputs, outputs := md.GetAllIo()
	assertUint16Slices(t, inputs, []uint16{1, 3, 5})
	assertUint16Slices(t, outputs, []uint16{2, 4})
}

func TestMockGetOutput(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{}, []uint16{3})
	output, err := md.GetOutput(3)
	if err != nil {
		t.Errorf("GetOutput returned err: %v", err)
	}

	want := true
	output.Set(want)
	got, _ := output.GetState()
	assertBools(t, got, want)

	anotherOut, _ := md.GetOutput(3)
	got, _ = anotherOut.GetState()
	assertBools(t, got, want)

	want = false
	output.Set(want)
	got, _ = output.GetState()
	assertBools(t, got, want)
}

type recordingListener struct {
	events []PushEvent
}

func (rl *recordingListener) FireEvent(event PushEvent) {
	rl.events = append(rl.events, event)
}

func TestMockInputPush(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{7}, []uint16{})

	input, err := md.GetInput(7)
	if err != nil {
		t.Fatalf("GetInput returned err: %v", err)
	}

	mockIn := input.(*MockInput)

	err = mockIn.Push(PushEventSinglePress)
	if err == nil {
		t.Error("expected error pushing with no listener subscribed")
	}

	listener := &recordingListener{}
	input.SubscribeToPushEvent(listener)

	err = mockIn.Push(PushEventSinglePress)
	if err != nil {
		t.Errorf("Push returned err: %v", err)
	}
	mockIn.Push(PushEventLongPress)

	if len(listener.events) != 2 {
		t.Fatalf("listener got %d events, want 2", len(listener.events))
	}
	if listener.events[0] != PushEventSinglePress || listener.events[1] != PushEventLongPress {
		t.Errorf("listener got events %v", listener.events)
	}
}
