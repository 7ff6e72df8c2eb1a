package garagekit

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/garagekit/drivers"
	"github.com/hubertat/garagekit/mqtt"
)

const defaultPulseDuration = 5 * time.Second

// StateRecorder receives door state transitions, e.g. for time-series storage.
type StateRecorder interface {
	RecordDoorState(door string, current, target int, obstructed bool) error
}

// DoorSensor configures an optional digital input of the door's driver.
type DoorSensor struct {
	Enable bool
	Pin    uint16
}

// GarageDoor drives a garage opener through its remote-control input: the
// relay output is wired across the remote button, so "opening" means holding
// the contact closed for PulseDuration and then releasing it. Without a
// closed-contact sensor the reported door state simply follows the signal,
// exactly like a dumb remote; with one, Sync corrects CurrentDoorState from
// what the door actually did.
type GarageDoor struct {
	Name           string
	DriverName     string
	RelayPin       uint16
	PulseDuration  string
	DisableHomekit bool

	ClosedContact DoorSensor
	Obstruction   DoorSensor

	ControlBy []ControllingDevice

	state  doorState
	states *stateStore

	relay            drivers.DigitalOutput
	closedInput      drivers.DigitalInput
	obstructionInput drivers.DigitalInput
	driver           drivers.IoDriver

	pulseLength time.Duration
	pulseTimer  *time.Timer
	pulseActive bool
	pulseFired  chan struct{}

	recorder  StateRecorder
	publisher mqtt.Publisher

	hk     *accessory.A
	opener *service.GarageDoorOpener

	logger *log.Logger
	lock   sync.Mutex
}

func (gd *GarageDoor) GetDriverName() string {
	return gd.DriverName
}

func (gd *GarageDoor) GetControllers() []ControllingDevice {
	return gd.ControlBy
}

func (gd *GarageDoor) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("GarageDoor_" + gd.Name))
	return hash.Sum64()
}

func (gd *GarageDoor) UseStateStore(states *stateStore) {
	gd.states = states
}

func (gd *GarageDoor) SetRecorder(recorder StateRecorder) {
	gd.recorder = recorder
}

func (gd *GarageDoor) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), gd.DriverName) {
		return fmt.Errorf("Init failed, mismatched or incorrect driver")
	}

	if !driver.IsReady() {
		return fmt.Errorf("Init failed, driver not ready")
	}

	if gd.states == nil {
		return fmt.Errorf("Init failed, state store not attached")
	}

	gd.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "GarageDoor " + gd.Name + ":",
		Level:  log.GetLevel(),
	})

	var err error

	gd.driver = driver
	gd.relay, err = driver.GetOutput(gd.RelayPin)
	if err != nil {
		return errors.Wrap(err, "Init failed")
	}

	if gd.ClosedContact.Enable {
		gd.closedInput, err = driver.GetInput(gd.ClosedContact.Pin)
		if err != nil {
			return errors.Wrap(err, "Init failed on closed contact input")
		}
	}

	if gd.Obstruction.Enable {
		gd.obstructionInput, err = driver.GetInput(gd.Obstruction.Pin)
		if err != nil {
			return errors.Wrap(err, "Init failed on obstruction input")
		}
	}

	gd.pulseLength = defaultPulseDuration
	if len(gd.PulseDuration) > 0 {
		parsed, err := time.ParseDuration(gd.PulseDuration)
		if err != nil {
			return errors.Wrap(err, "Init failed, bad PulseDuration")
		}
		gd.pulseLength = parsed
	}

	// The relay is released after restart, so whatever state was persisted,
	// the opener is not being signalled: report closed and keep only the
	// obstruction flag from the stored record.
	gd.state = gd.states.load(gd.Name)
	gd.state.Current = characteristic.CurrentDoorStateClosed
	gd.state.Target = characteristic.TargetDoorStateClosed
	gd.states.save(gd.Name, gd.state)

	err = gd.relay.Set(false)
	if err != nil {
		return errors.Wrap(err, "Init failed on releasing relay")
	}

	gd.pulseFired = make(chan struct{}, 1)
	go gd.pulseWorker()

	if gd.DisableHomekit {
		return nil
	}

	info := accessory.Info{
		Name:         gd.Name,
		SerialNumber: fmt.Sprintf("door:%s:%02d", gd.DriverName, gd.RelayPin),
		Model:        "GarageDoor1,1",
	}
	gd.hk = accessory.New(info, accessory.TypeGarageDoorOpener)

	gd.opener = service.NewGarageDoorOpener()
	gd.hk.AddS(gd.opener.S)

	gd.opener.CurrentDoorState.SetValue(gd.state.Current)
	gd.opener.TargetDoorState.SetValue(gd.state.Target)
	gd.opener.ObstructionDetected.SetValue(gd.state.Obstructed)

	gd.opener.TargetDoorState.OnValueRemoteUpdate(gd.SetTarget)
	gd.opener.CurrentDoorState.C.ValueRequestFunc = gd.readCurrentState
	gd.opener.TargetDoorState.C.ValueRequestFunc = gd.readTargetState
	gd.opener.ObstructionDetected.C.ValueRequestFunc = gd.readObstruction

	gd.hk.Info.Identify.OnValueRemoteUpdate(func(bool) {
		gd.logger.Info("identify requested")
	})

	return nil
}

func (gd *GarageDoor) readCurrentState(_ *http.Request) (interface{}, int) {
	gd.lock.Lock()
	defer gd.lock.Unlock()

	gd.logger.Info("current door state read", "state", describeCurrentState(gd.state.Current))
	return gd.state.Current, 0
}

func (gd *GarageDoor) readTargetState(_ *http.Request) (interface{}, int) {
	gd.lock.Lock()
	defer gd.lock.Unlock()

	gd.logger.Info("target door state read", "state", describeTargetState(gd.state.Target))
	return gd.state.Target, 0
}

func (gd *GarageDoor) readObstruction(_ *http.Request) (interface{}, int) {
	gd.lock.Lock()
	defer gd.lock.Unlock()

	gd.logger.Info("obstruction detected read", "obstructed", gd.state.Obstructed)
	return gd.state.Obstructed, 0
}

// SetTarget handles a target door state write, from HomeKit or any other
// control path. Writing Open energizes the relay and arms the one-shot
// release timer; writing Closed releases the relay immediately.
func (gd *GarageDoor) SetTarget(target int) {
	gd.lock.Lock()
	defer gd.lock.Unlock()

	if target == gd.state.Target {
		return
	}

	gd.logger.Info("target door state write", "state", describeTargetState(target))

	gd.state.Target = target
	gd.state.Current = target
	gd.states.save(gd.Name, gd.state)
	gd.notifyDoorStates()
	gd.publishState()
	gd.recordState()

	switch target {
	case characteristic.TargetDoorStateOpen:
		gd.setRelay(true)
		gd.armPulse()
	case characteristic.TargetDoorStateClosed:
		gd.setRelay(false)
	}
}

func (gd *GarageDoor) Toggle() {
	gd.lock.Lock()
	target := gd.state.Target
	gd.lock.Unlock()

	if target == characteristic.TargetDoorStateOpen {
		gd.SetTarget(characteristic.TargetDoorStateClosed)
	} else {
		gd.SetTarget(characteristic.TargetDoorStateOpen)
	}
}

// FireEvent makes the door clickable from buttons: a single press toggles,
// a long press always closes.
func (gd *GarageDoor) FireEvent(event drivers.PushEvent) {
	switch event {
	case drivers.PushEventSinglePress:
		gd.Toggle()
	case drivers.PushEventLongPress:
		gd.SetTarget(characteristic.TargetDoorStateClosed)
	default:
		gd.logger.Debug("ignoring push event", "event", int(event))
	}
}

func (gd *GarageDoor) armPulse() {
	if gd.pulseTimer != nil {
		gd.pulseTimer.Stop()
	}
	gd.pulseActive = true
	gd.pulseTimer = time.AfterFunc(gd.pulseLength, func() {
		// runs on the timer goroutine; hand off and return, the way an
		// isr would notify a task
		select {
		case gd.pulseFired <- struct{}{}:
		default:
		}
	})
}

func (gd *GarageDoor) pulseWorker() {
	for range gd.pulseFired {
		gd.releasePulse()
	}
}

func (gd *GarageDoor) releasePulse() {
	gd.lock.Lock()
	defer gd.lock.Unlock()

	if gd.pulseTimer != nil {
		gd.pulseTimer.Stop()
	}
	gd.pulseActive = false

	if gd.state.Target != characteristic.TargetDoorStateOpen {
		return
	}

	gd.logger.Info("cutting opener remote signal")

	gd.state.Target = characteristic.TargetDoorStateClosed
	gd.state.Current = characteristic.CurrentDoorStateClosed
	gd.states.save(gd.Name, gd.state)
	gd.setRelay(false)
	gd.notifyDoorStates()
	gd.publishState()
	gd.recordState()
}

func (gd *GarageDoor) Sync() error {
	gd.lock.Lock()
	defer gd.lock.Unlock()

	changed := false

	if gd.closedInput != nil {
		contact, err := gd.closedInput.GetState()
		if err != nil {
			return errors.Wrap(err, "Sync failed")
		}
		current := gd.currentFromContact(contact)
		if current != gd.state.Current {
			gd.logger.Info("current door state changed", "state", describeCurrentState(current))
			gd.state.Current = current
			changed = true
			if gd.opener != nil {
				gd.opener.CurrentDoorState.SetValue(current)
			}
		}
	}

	if gd.obstructionInput != nil {
		obstructed, err := gd.obstructionInput.GetState()
		if err != nil {
			return errors.Wrap(err, "Sync failed")
		}
		if obstructed != gd.state.Obstructed {
			gd.logger.Warn("obstruction state changed", "obstructed", obstructed)
			gd.state.Obstructed = obstructed
			changed = true
			if gd.opener != nil {
				gd.opener.ObstructionDetected.SetValue(obstructed)
			}
		}
	}

	if changed {
		gd.states.save(gd.Name, gd.state)
		gd.publishState()
		gd.recordState()
	}

	return nil
}

// currentFromContact maps the reed switch reading to a door state:
// contact closed means the door sits fully closed, otherwise it is either
// still moving on an active pulse or standing open.
func (gd *GarageDoor) currentFromContact(contact bool) int {
	if contact {
		return characteristic.CurrentDoorStateClosed
	}
	if gd.pulseActive {
		return characteristic.CurrentDoorStateOpening
	}
	return characteristic.CurrentDoorStateOpen
}

func (gd *GarageDoor) setRelay(state bool) {
	err := gd.relay.Set(state)
	if err != nil {
		gd.logger.Error("failed to set relay output", "err", err)
	}
}

// notifyDoorStates pushes both door state characteristics; hap raises the
// changed events towards paired controllers on its own.
func (gd *GarageDoor) notifyDoorStates() {
	if gd.opener == nil {
		return
	}
	gd.opener.TargetDoorState.SetValue(gd.state.Target)
	gd.opener.CurrentDoorState.SetValue(gd.state.Current)
}

func (gd *GarageDoor) recordState() {
	if gd.recorder == nil {
		return
	}
	err := gd.recorder.RecordDoorState(gd.Name, gd.state.Current, gd.state.Target, gd.state.Obstructed)
	if err != nil {
		gd.logger.Error("failed to record door state", "err", err)
	}
}

func (gd *GarageDoor) GetHk() *accessory.A {
	return gd.hk
}

func describeCurrentState(state int) string {
	switch state {
	case characteristic.CurrentDoorStateOpen:
		return "open"
	case characteristic.CurrentDoorStateClosed:
		return "closed"
	case characteristic.CurrentDoorStateOpening:
		return "opening"
	case characteristic.CurrentDoorStateClosing:
		return "closing"
	case characteristic.CurrentDoorStateStopped:
		return "stopped"
	}
	return fmt.Sprintf("unknown (%d)", state)
}

func describeTargetState(state int) string {
	switch state {
	case characteristic.TargetDoorStateOpen:
		return "open"
	case characteristic.TargetDoorStateClosed:
		return "closed"
	}
	return fmt.Sprintf("unknown (%d)", state)
}
