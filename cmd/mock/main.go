package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/hubertat/garagekit"
	"github.com/hubertat/garagekit/drivers"
)

var (
	Version string
	Build   string
)

func main() {
	var err error

	log.Println("garagekit started")
	log.Println("mock instance for testing purposes, should work without hardware")

	syncDuration := 250 * time.Millisecond
	log.Println("syncDuration is ", syncDuration)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gk := &garagekit.GarageKit{}

	gk.HkPin = "88008800"
	gk.HkDirectory = "./mock_homekit"

	gk.Doors = append(gk.Doors, &garagekit.GarageDoor{
		Name:          "fake garage",
		DriverName:    "mock_driver",
		RelayPin:      1,
		PulseDuration: "5s",
		ClosedContact: garagekit.DoorSensor{Enable: true, Pin: 2},
		ControlBy:     []garagekit.ControllingDevice{{Pin: 3}},
	})
	gk.FakeDriver = &drivers.MockIoDriver{}

	log.Println("will init garagekit drivers...")
	err = gk.InitDrivers(ctx)
	defer gk.Close()
	if err != nil {
		panic(err)
	}
	log.Println("will init garagekit IOs...")
	err = gk.InitIos()
	if err != nil {
		panic(err)
	}

	log.Printf("drivers OK!\nwill try to MatchControllers:\n")
	err = gk.MatchControllers()
	if err != nil {
		log.Printf("Matching Controllers returned error: %v\n we will proceed...", err)
	} else {
		log.Println("MatchControllers OK!")
	}

	gk.FakeDriver.MonitorStateChanges(os.Stdout)

	gk.PrintIoStatus(os.Stdout)

	log.Println("starting mock with HomeKit service")

	go gk.StartTicker(syncDuration)

	log.Fatal(gk.StartHomeKit(context.Background(), "mock: "+Version))

}
