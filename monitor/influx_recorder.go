package monitor

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
)

const defaultMeasurement = "door_state"
const writeTimeoutSeconds = 5

// InfluxRecorder writes a point for every door state transition, so the
// opening history can be charted next to the rest of the house telemetry.
type InfluxRecorder struct {
	Host         string
	Organization string
	Bucket       string
	Measurement  string
	Token        string

	client influxdb2.Client
	write  api.WriteAPIBlocking
	logger *log.Logger
	ready  bool
}

func (ir *InfluxRecorder) Setup() error {
	ir.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "InfluxRecorder: ",
		Level:  log.GetLevel(),
	})

	if len(ir.Measurement) == 0 {
		ir.Measurement = defaultMeasurement
	}

	ir.client = influxdb2.NewClient(ir.Host, ir.Token)
	ir.write = ir.client.WriteAPIBlocking(ir.Organization, ir.Bucket)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeoutSeconds*time.Second)
	defer cancel()

	_, err := ir.client.Ping(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to init InfluxRecorder")
	}

	ir.ready = true
	return nil
}

func (ir *InfluxRecorder) IsReady() bool {
	return ir.ready
}

func (ir *InfluxRecorder) Close() error {
	if ir.client != nil {
		ir.client.Close()
	}
	ir.ready = false
	return nil
}

func (ir *InfluxRecorder) RecordDoorState(door string, current, target int, obstructed bool) error {
	if !ir.ready {
		return errors.Errorf("InfluxRecorder not ready, door %s state not recorded", door)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeoutSeconds*time.Second)
	defer cancel()

	err := ir.write.WritePoint(ctx, ir.buildPoint(door, current, target, obstructed))
	if err != nil {
		return errors.Wrapf(err, "failed to record state of door %s", door)
	}

	return nil
}

func (ir *InfluxRecorder) buildPoint(door string, current, target int, obstructed bool) *write.Point {
	return influxdb2.NewPoint(ir.Measurement,
		map[string]string{"door": door},
		map[string]interface{}{
			"current":    current,
			"target":     target,
			"obstructed": obstructed,
		},
		time.Now())
}
