package monitor

import (
	"testing"
)

func TestRecordDoorStateNotReady(t *testing.T) {
	ir := &InfluxRecorder{}

	err := ir.RecordDoorState("garage", 0, 0, false)
	if err == nil {
		t.Error("expected error recording with recorder not set up")
	}
}

func TestBuildPoint(t *testing.T) {
	ir := &InfluxRecorder{Measurement: "door_state"}

	point := ir.buildPoint("garage", 1, 1, true)

	if point.Name() != "door_state" {
		t.Errorf("point measurement = %s, want door_state", point.Name())
	}

	foundDoorTag := false
	for _, tag := range point.TagList() {
		if tag.Key == "door" && tag.Value == "garage" {
			foundDoorTag = true
		}
	}
	if !foundDoorTag {
		t.Error("point missing door tag")
	}

	fields := map[string]interface{}{}
	for _, field := range point.FieldList() {
		fields[field.Key] = field.Value
	}

	if got, found := fields["current"]; !found || got != int64(1) {
		t.Errorf("current field = %v, want 1", got)
	}
	if got, found := fields["target"]; !found || got != int64(1) {
		t.Errorf("target field = %v, want 1", got)
	}
	if got, found := fields["obstructed"]; !found || got != true {
		t.Errorf("obstructed field = %v, want true", got)
	}
}
