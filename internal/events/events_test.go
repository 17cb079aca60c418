package events

import (
	"encoding/json"
	"testing"

	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/deviceerr"
	"github.com/homectl/devicecore/internal/ids"
)

type fakeDeviceStore struct {
	devices map[ids.DeviceID]*device.Device
	states  map[ids.DeviceID]map[ids.StateTypeID]interface{}
}

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{
		devices: make(map[ids.DeviceID]*device.Device),
		states:  make(map[ids.DeviceID]map[ids.StateTypeID]interface{}),
	}
}

func (s *fakeDeviceStore) Device(id ids.DeviceID) (*device.Device, error) {
	dev, ok := s.devices[id]
	if !ok {
		return nil, deviceerr.Wrap(deviceerr.CategoryLookup, "Device", deviceerr.ErrDeviceNotFound)
	}
	return dev, nil
}

func (s *fakeDeviceStore) SetDeviceState(deviceID ids.DeviceID, stateTypeID ids.StateTypeID, value interface{}) error {
	if _, ok := s.devices[deviceID]; !ok {
		return deviceerr.Wrap(deviceerr.CategoryLookup, "SetDeviceState", deviceerr.ErrDeviceNotFound)
	}
	if s.states[deviceID] == nil {
		s.states[deviceID] = make(map[ids.StateTypeID]interface{})
	}
	s.states[deviceID][stateTypeID] = value
	return nil
}

type recordingListener struct {
	events []device.Event
}

func (l *recordingListener) EventPublished(ev device.Event) {
	l.events = append(l.events, ev)
}

type recordingMQTT struct {
	published []struct {
		topic   string
		payload map[string]any
	}
}

func (m *recordingMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return err
	}
	m.published = append(m.published, struct {
		topic   string
		payload map[string]any
	}{topic, decoded})
	return nil
}

type recordingHistory struct {
	writes int
}

func (h *recordingHistory) WriteDeviceState(string, string, interface{}) { h.writes++ }

func TestStateValueChanged_PublishesAtomicPair(t *testing.T) {
	store := newFakeDeviceStore()
	deviceID := ids.NewDeviceID()
	store.devices[deviceID] = &device.Device{ID: deviceID}

	ch := New(store)
	mqttFake := &recordingMQTT{}
	ch.SetMQTTPublisher(mqttFake)
	listener := &recordingListener{}
	ch.SetListener(listener)
	history := &recordingHistory{}
	ch.SetStateHistorySink(history)

	ch.StateValueChanged(deviceID, "temperature", 21.5)

	if got := store.states[deviceID]["temperature"]; got != 21.5 {
		t.Errorf("stored state = %v, want 21.5", got)
	}
	if history.writes != 1 {
		t.Errorf("history writes = %d, want 1", history.writes)
	}
	if len(listener.events) != 1 {
		t.Fatalf("listener events = %d, want 1", len(listener.events))
	}
	ev := listener.events[0]
	if !ev.IsStateChangeEvent || ev.EventTypeID != "temperature" || ev.DeviceID != deviceID {
		t.Errorf("synthesized event = %+v, want matching temperature event", ev)
	}
	if len(mqttFake.published) != 2 {
		t.Fatalf("mqtt publishes = %d, want 2 (state then event)", len(mqttFake.published))
	}
	if mqttFake.published[0].topic != ch.topics.DeviceStateChanged(string(deviceID)) {
		t.Errorf("first publish topic = %q, want device state topic", mqttFake.published[0].topic)
	}
	if mqttFake.published[1].topic != ch.topics.Event("temperature") {
		t.Errorf("second publish topic = %q, want event topic", mqttFake.published[1].topic)
	}
}

func TestStateValueChanged_DropsUnknownDevice(t *testing.T) {
	store := newFakeDeviceStore()
	ch := New(store)
	listener := &recordingListener{}
	ch.SetListener(listener)

	ch.StateValueChanged(ids.NewDeviceID(), "temperature", 1.0)

	if len(listener.events) != 0 {
		t.Errorf("listener received %d events, want 0 for unknown device", len(listener.events))
	}
}

func TestEmitEvent_ForwardsVerbatimWithoutTouchingState(t *testing.T) {
	store := newFakeDeviceStore()
	deviceID := ids.NewDeviceID()
	store.devices[deviceID] = &device.Device{ID: deviceID}
	ch := New(store)
	listener := &recordingListener{}
	ch.SetListener(listener)

	ev := device.Event{EventTypeID: "custom_alarm", DeviceID: deviceID}
	ch.EmitEvent(ev)

	if len(listener.events) != 1 || listener.events[0].EventTypeID != "custom_alarm" {
		t.Fatalf("listener events = %+v, want one custom_alarm event", listener.events)
	}
	if len(store.states[deviceID]) != 0 {
		t.Error("EmitEvent mutated device state, it should not")
	}
}

func TestMirrorMQTT_NilPublisherIsNoop(t *testing.T) {
	store := newFakeDeviceStore()
	deviceID := ids.NewDeviceID()
	store.devices[deviceID] = &device.Device{ID: deviceID}
	ch := New(store)

	// No panic expected with no MQTT publisher attached.
	ch.StateValueChanged(deviceID, "on_off", true)
}
