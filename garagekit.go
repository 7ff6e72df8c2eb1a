package garagekit

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	dnslog "github.com/brutella/dnssd/log"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	hklog "github.com/brutella/hap/log"
	"github.com/pkg/errors"

	"github.com/hubertat/garagekit/drivers"
	"github.com/hubertat/garagekit/monitor"
	"github.com/hubertat/garagekit/mqtt"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeName = "garagekit"
const homeKitBridgeAuthor = "github.com/hubertat"

type GarageKit struct {
	Name string

	Doors []*GarageDoor

	HkPin       string
	HkDirectory string
	HkAddress   string
	HkDebug     bool

	MqttBroker string

	Influx *monitor.InfluxRecorder

	Mcp23017     *drivers.McpIO
	Gpio         *drivers.GpIO
	RemoteButton *drivers.RemoteButton
	FakeDriver   *drivers.MockIoDriver

	ioDrivers  map[string]drivers.IoDriver
	mqttClient *mqtt.MqttClient
	store      hap.Store
	ticker     *time.Ticker
}

type IO interface {
	Init(driver drivers.IoDriver) error
	GetDriverName() string
	Sync() error
}

type HkThing interface {
	GetHk() *accessory.A
	GetUniqueId() uint64
	Sync() error
}

// ControllingDevice points at an input pin whose push events should drive
// the door, e.g. a wall transmitter received by the RemoteButton driver.
type ControllingDevice struct {
	Pin        uint16
	DriverName string
}

func (gk *GarageKit) getInPins(driverName string) (pins []uint16) {
	for _, door := range gk.Doors {
		if door.ClosedContact.Enable && strings.EqualFold(door.DriverName, driverName) {
			pins = append(pins, door.ClosedContact.Pin)
		}
		if door.Obstruction.Enable && strings.EqualFold(door.DriverName, driverName) {
			pins = append(pins, door.Obstruction.Pin)
		}
		for _, controller := range door.ControlBy {
			controllerDriver := door.DriverName
			if len(controller.DriverName) > 0 {
				controllerDriver = controller.DriverName
			}
			if strings.EqualFold(controllerDriver, driverName) {
				pins = append(pins, controller.Pin)
			}
		}
	}

	return
}

func (gk *GarageKit) getOutPins(driverName string) (pins []uint16) {
	for _, door := range gk.Doors {
		if strings.EqualFold(door.DriverName, driverName) {
			pins = append(pins, door.RelayPin)
		}
	}

	return
}

func (gk *GarageKit) getIos() []IO {
	ios := []IO{}
	for _, door := range gk.Doors {
		ios = append(ios, door)
	}

	return ios
}

func (gk *GarageKit) getHkThings() (things []HkThing) {
	for _, door := range gk.Doors {
		things = append(things, door)
	}

	return
}

// UseStore overrides the accessory store, before InitIos or StartHomeKit
// create the default filesystem one.
func (gk *GarageKit) UseStore(store hap.Store) {
	gk.store = store
}

// Store returns the accessory store, creating the filesystem store on first
// use. Door state shares this store with the HomeKit pairing data, so a
// factory reset (removing the directory) purges both.
func (gk *GarageKit) Store() hap.Store {
	if gk.store == nil {
		directory := gk.HkDirectory
		if len(directory) < 1 {
			directory = defaultHomeKitDirectory
		}
		gk.store = hap.NewFsStore(directory)
	}

	return gk.store
}

func (gk *GarageKit) InitDrivers(ctx context.Context) error {
	gk.ioDrivers = make(map[string]drivers.IoDriver)

	if gk.Gpio != nil {
		gk.ioDrivers[gk.Gpio.String()] = gk.Gpio
	}

	if gk.Mcp23017 != nil {
		gk.ioDrivers[gk.Mcp23017.String()] = gk.Mcp23017
	}

	if gk.RemoteButton != nil {
		gk.ioDrivers[gk.RemoteButton.String()] = gk.RemoteButton
	}

	if gk.FakeDriver != nil {
		gk.ioDrivers[gk.FakeDriver.String()] = gk.FakeDriver
	}

	for _, driver := range gk.ioDrivers {
		err := driver.Setup(ctx, gk.getInPins(driver.String()), gk.getOutPins(driver.String()))
		if err != nil {
			return errors.Wrapf(err, "failed to setup %s driver", driver)
		}
	}

	for _, io := range gk.getIos() {
		_, driverFound := gk.ioDrivers[io.GetDriverName()]
		if !driverFound {
			return errors.Errorf("driver %s not set up", io.GetDriverName())
		}
	}

	return nil
}

func (gk *GarageKit) InitIos() error {
	states := newStateStore(gk.Store(), log.Default())

	if gk.Influx != nil {
		err := gk.Influx.Setup()
		if err != nil {
			return errors.Wrap(err, "failed to setup influx recorder")
		}
	}

	for _, door := range gk.Doors {
		door.UseStateStore(states)
		if gk.Influx != nil {
			door.SetRecorder(gk.Influx)
		}
	}

	for _, io := range gk.getIos() {
		err := io.Init(gk.ioDrivers[io.GetDriverName()])
		if err != nil {
			return errors.Wrapf(err, "failed to init io")
		}
	}

	return nil
}

// MatchControllers subscribes every door to the push events of its
// configured controlling inputs.
func (gk *GarageKit) MatchControllers() error {
	for _, door := range gk.Doors {
		for _, controller := range door.GetControllers() {
			driverName := door.GetDriverName()
			if len(controller.DriverName) > 0 {
				driverName = controller.DriverName
			}
			driver, driverReady := gk.ioDrivers[driverName]
			if !driverReady {
				return errors.Errorf("matching controller failed, driver (%s) not present or not ready", driverName)
			}

			input, err := driver.GetInput(controller.Pin)
			if err != nil {
				return errors.Wrapf(err, "matching controller failed for door %s", door.Name)
			}

			err = input.SubscribeToPushEvent(door)
			if err != nil {
				return errors.Wrapf(err, "matching controller failed for door %s", door.Name)
			}
		}
	}

	return nil
}

func (gk *GarageKit) GetHkAccessories(firmwareVersion string) (acc []*accessory.A) {
	acc = []*accessory.A{}

	for _, th := range gk.getHkThings() {
		accessory := th.GetHk()
		if accessory != nil {
			if accessory.Info != nil && accessory.Info.FirmwareRevision != nil {
				accessory.Info.FirmwareRevision.SetValue(firmwareVersion)
			}
			accessory.Id = th.GetUniqueId()
			acc = append(acc, accessory)
		}
	}

	return
}

func (gk *GarageKit) StartTicker(interval time.Duration) {

	gk.ticker = time.NewTicker(interval)

	for {
		select {
		case <-gk.ticker.C:
			{
				for _, io := range gk.getIos() {
					err := io.Sync()
					if err != nil {
						log.Printf("Received error(s) from syncing io:\n%v", err)
					}
				}
			}
		}
	}
}

func (gk *GarageKit) Close() (err error) {
	if gk.ticker != nil {
		gk.ticker.Stop()
	}

	for _, driver := range gk.ioDrivers {
		if driver != nil {
			closeErr := driver.Close()
			if closeErr != nil {
				if err == nil {
					err = closeErr
				} else {
					err = errors.Wrap(closeErr, err.Error())
				}
			}
		}
	}

	if gk.Influx != nil {
		closeErr := gk.Influx.Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}

	return
}

func (gk *GarageKit) PrintIoStatus(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "=== active io drivers ===")
	for driverName, driver := range gk.ioDrivers {
		fmt.Fprintln(writer, "________")
		fmt.Fprintf(writer, "| driver: %s\n", driverName)
		inputs, outputs := driver.GetAllIo()
		fmt.Fprintf(writer, "| in pins: ")
		for _, inpin := range inputs {
			fmt.Fprintf(writer, "%d, ", inpin)
		}
		fmt.Fprintf(writer, "\n| out pins: ")
		for _, outpin := range outputs {
			fmt.Fprintf(writer, "%d, ", outpin)
		}
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, "--------")
	}
	fmt.Fprintln(writer, "-----------------------------")
	fmt.Fprintln(writer)
}

func (gk *GarageKit) StartHomeKit(ctx context.Context, firmwareVersion string) error {
	hkName := gk.Name
	if len(hkName) < 1 {
		hkName = homeKitBridgeName
	}
	bridge := accessory.NewBridge(accessory.Info{
		Name:         hkName,
		Manufacturer: homeKitBridgeAuthor,
		Firmware:     firmwareVersion,
	})

	hkServer, err := hap.NewServer(gk.Store(), bridge.A, gk.GetHkAccessories(firmwareVersion)...)
	if err != nil {
		return errors.Wrap(err, "failed to create HomeKit server")
	}
	hkServer.Pin = gk.HkPin
	if len(gk.HkAddress) > 0 {
		hkServer.Addr = gk.HkAddress
	}

	if gk.HkDebug {
		hklog.Debug.Enable()
		dnslog.Debug.Enable()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-c
		// Stop delivering signals.
		signal.Stop(c)
		// Cancel the context to stop the server.
		cancel()
	}()

	return hkServer.ListenAndServe(ctx)
}

func (gk *GarageKit) InitMqtt() (err error) {
	if len(gk.MqttBroker) == 0 {
		err = errors.New("mqtt broker not set")
		return
	}

	mc, err := mqtt.NewMqttClient(gk.MqttBroker, gk.Name)
	if err != nil {
		err = errors.Wrap(err, "failed to create mqtt client")
		return
	}

	gk.mqttClient = mc

	mqttHandlers := []mqtt.MqttHandler{}
	for _, driver := range gk.ioDrivers {
		mqttHandlers = append(mqttHandlers, driver.SetMqtt(mc)...)
	}
	for _, door := range gk.Doors {
		mqttHandlers = append(mqttHandlers, door.SetMqtt(mc)...)
	}

	err = mc.Connect(mqttHandlers)
	if err != nil {
		err = errors.Wrap(err, "failed to connect to mqtt broker")
	}

	return
}
