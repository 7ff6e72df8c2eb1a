package garagekit

import (
	"errors"
	"io/fs"

	"github.com/brutella/hap"
	"github.com/brutella/hap/characteristic"
	"github.com/charmbracelet/log"
)

const doorStateKeyPrefix = "garagekit-door-"

// doorStateSize is the exact size of the persisted record; anything else
// found in the slot is treated as garbage and reset to default.
const doorStateSize = 3

// doorState is the persistent part of a door: both HomeKit door state
// characteristics plus the obstruction flag.
type doorState struct {
	Current    int
	Target     int
	Obstructed bool
}

func defaultDoorState() doorState {
	return doorState{
		Current: characteristic.CurrentDoorStateClosed,
		Target:  characteristic.TargetDoorStateClosed,
	}
}

func (ds doorState) encode() []byte {
	raw := make([]byte, doorStateSize)
	raw[0] = byte(ds.Current)
	raw[1] = byte(ds.Target)
	if ds.Obstructed {
		raw[2] = 1
	}
	return raw
}

func decodeDoorState(raw []byte) doorState {
	return doorState{
		Current:    int(raw[0]),
		Target:     int(raw[1]),
		Obstructed: raw[2] == 1,
	}
}

// stateStore keeps door state records in the same hap.Store that holds the
// HomeKit pairing data, so a factory reset of the store purges them together.
// Store I/O failures are fatal: running with state that cannot be persisted
// would silently desync HomeKit from the hardware.
type stateStore struct {
	store  hap.Store
	logger *log.Logger
}

func newStateStore(store hap.Store, logger *log.Logger) *stateStore {
	return &stateStore{store: store, logger: logger}
}

func (ss *stateStore) key(name string) string {
	return doorStateKeyPrefix + name
}

func (ss *stateStore) load(name string) doorState {
	raw, err := ss.store.Get(ss.key(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		ss.logger.Fatal("failed to read door state from store", "door", name, "err", err)
	}

	if len(raw) == 0 {
		return defaultDoorState()
	}

	if len(raw) != doorStateSize {
		ss.logger.Warn("unexpected door state found in store, resetting to default", "door", name, "size", len(raw))
		return defaultDoorState()
	}

	return decodeDoorState(raw)
}

func (ss *stateStore) save(name string, state doorState) {
	err := ss.store.Set(ss.key(name), state.encode())
	if err != nil {
		ss.logger.Fatal("failed to write door state to store", "door", name, "err", err)
	}
}
