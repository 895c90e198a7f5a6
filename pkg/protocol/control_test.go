package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestControlRoundTrip(t *testing.T) {
	data, err := EncodeControl(Invalidate("/todos"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"invalidate","path":"/todos"}` {
		t.Errorf("encoded = %s", data)
	}

	c, err := DecodeControl(data)
	if err != nil {
		t.Fatal(err)
	}
	if c.Type != ControlInvalidate || c.Path != "/todos" {
		t.Errorf("decoded = %+v", c)
	}
}

func TestDecodeControlErrors(t *testing.T) {
	if _, err := DecodeControl([]byte(`{"type":"explode"}`)); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := DecodeControl([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	big := []byte(`{"type":"ping","path":"` + strings.Repeat("x", MaxControlSize) + `"}`)
	if _, err := DecodeControl(big); !errors.Is(err, ErrControlTooLarge) {
		t.Errorf("error = %v, want ErrControlTooLarge", err)
	}
}
