package garagekit

import (
	"context"
	"testing"

	"github.com/brutella/hap/characteristic"

	"github.com/hubertat/garagekit/drivers"
)

func makeTestKit() *GarageKit {
	return &GarageKit{
		Doors: []*GarageDoor{
			{
				Name:           "garage",
				DriverName:     "mock_driver",
				RelayPin:       5,
				PulseDuration:  "1h",
				DisableHomekit: true,
				ClosedContact:  DoorSensor{Enable: true, Pin: 2},
				ControlBy:      []ControllingDevice{{Pin: 3}},
			},
		},
		FakeDriver: &drivers.MockIoDriver{},
	}
}

func TestGarageKitPinCollection(t *testing.T) {
	gk := makeTestKit()

	assertUint16Slices(t, gk.getInPins("mock_driver"), []uint16{2, 3})
	assertUint16Slices(t, gk.getOutPins("mock_driver"), []uint16{5})

	assertUint16Slices(t, gk.getInPins("gpio"), []uint16{})
	assertUint16Slices(t, gk.getOutPins("gpio"), []uint16{})
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

func TestGarageKitInit(t *testing.T) {
	gk := makeTestKit()
	gk.UseStore(newMemStore())

	err := gk.InitDrivers(context.Background())
	if err != nil {
		t.Fatalf("InitDrivers returned err: %v", err)
	}
	defer gk.Close()

	err = gk.InitIos()
	if err != nil {
		t.Fatalf("InitIos returned err: %v", err)
	}

	err = gk.MatchControllers()
	if err != nil {
		t.Fatalf("MatchControllers returned err: %v", err)
	}

	door := gk.Doors[0]
	relay, _ := gk.FakeDriver.GetOutput(5)

	// wall button push should travel through the driver into the door
	input, _ := gk.FakeDriver.GetInput(3)
	button := input.(*drivers.MockInput)

	err = button.Push(drivers.PushEventSinglePress)
	if err != nil {
		t.Fatalf("Push returned err: %v", err)
	}

	state, _ := relay.GetState()
	assertBools(t, state, true)
	assertInts(t, door.state.Target, characteristic.TargetDoorStateOpen)

	button.Push(drivers.PushEventSinglePress)
	state, _ = relay.GetState()
	assertBools(t, state, false)
}

func TestGarageKitMissingDriver(t *testing.T) {
	gk := makeTestKit()
	gk.Doors[0].DriverName = "gpio"
	gk.UseStore(newMemStore())

	err := gk.InitDrivers(context.Background())
	if err == nil {
		t.Error("expected error when door references driver that is not set up")
	}
}

func TestGarageKitHkAccessories(t *testing.T) {
	gk := makeTestKit()
	gk.Doors[0].DisableHomekit = false
	gk.UseStore(newMemStore())

	err := gk.InitDrivers(context.Background())
	if err != nil {
		t.Fatalf("InitDrivers returned err: %v", err)
	}
	defer gk.Close()

	err = gk.InitIos()
	if err != nil {
		t.Fatalf("InitIos returned err: %v", err)
	}

	accessories := gk.GetHkAccessories("1.0.0")
	if len(accessories) != 1 {
		t.Fatalf("expected 1 accessory, got %d", len(accessories))
	}
	if accessories[0].Id != gk.Doors[0].GetUniqueId() {
		t.Error("accessory id should match door unique id")
	}
}
