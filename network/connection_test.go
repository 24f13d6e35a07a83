package network

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestAppendFrame(t *testing.T) {
	data := []byte(`{"type":"tap"}`)
	buf, err := appendFrame(nil, MsgTypePlayerAction, data)
	if err != nil {
		t.Fatalf("appendFrame failed: %v", err)
	}

	if len(buf) != headerSize+len(data) {
		t.Errorf("Expected frame of %d bytes, got %d", headerSize+len(data), len(buf))
	}
	if got := binary.BigEndian.Uint16(buf[0:2]); got != MsgTypePlayerAction {
		t.Errorf("Expected msg id %d, got %d", MsgTypePlayerAction, got)
	}
	if got := binary.BigEndian.Uint16(buf[2:4]); int(got) != len(data) {
		t.Errorf("Expected length field %d, got %d", len(data), got)
	}
	if string(buf[headerSize:]) != string(data) {
		t.Error("Payload was not copied intact")
	}
}

func TestAppendFrameEmptyPayload(t *testing.T) {
	buf, err := appendFrame(nil, MsgTypeHeartbeat, nil)
	if err != nil {
		t.Fatalf("appendFrame failed: %v", err)
	}
	if len(buf) != headerSize {
		t.Errorf("Expected header-only frame of %d bytes, got %d", headerSize, len(buf))
	}
	if got := binary.BigEndian.Uint16(buf[2:4]); got != 0 {
		t.Errorf("Expected zero length field, got %d", got)
	}
}

func TestAppendFrameRejectsOversizePayload(t *testing.T) {
	data := make([]byte, maxPayload+1)
	_, err := appendFrame(nil, MsgTypePlayerAction, data)
	if !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("Expected ErrPacketTooLarge, got %v", err)
	}

	// The largest representable payload still encodes.
	buf, err := appendFrame(nil, MsgTypePlayerAction, data[:maxPayload])
	if err != nil {
		t.Fatalf("appendFrame failed at max payload: %v", err)
	}
	if got := binary.BigEndian.Uint16(buf[2:4]); int(got) != maxPayload {
		t.Errorf("Expected length field %d, got %d", maxPayload, got)
	}
}
