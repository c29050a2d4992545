//go:build linux

package wayland

import (
	"bytes"
	"testing"
)

func TestStringArgRoundTrip(t *testing.T) {
	tests := []string{"", "wl_seat", "image/png", "text/plain;charset=utf-8"}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			enc := stringArg(s)
			if len(enc)%4 != 0 {
				t.Errorf("encoded length %d is not 4-byte aligned", len(enc))
			}
			got, rest, err := readString(append(enc, 0xAA, 0xBB, 0xCC, 0xDD))
			if err != nil {
				t.Fatalf("readString() returned error: %v", err)
			}
			if got != s {
				t.Errorf("readString() = %q, want %q", got, s)
			}
			if !bytes.Equal(rest, []byte{0xAA, 0xBB, 0xCC, 0xDD}) {
				t.Errorf("rest = %x, want aabbccdd", rest)
			}
		})
	}
}

func TestReadStringShort(t *testing.T) {
	if _, _, err := readString([]byte{1, 2}); err == nil {
		t.Error("readString() should fail on a short length field")
	}
	if _, _, err := readString([]byte{9, 0, 0, 0, 'a'}); err == nil {
		t.Error("readString() should fail on short string data")
	}
}

func TestPopFramesMessages(t *testing.T) {
	c := &conn{}
	// object 2, opcode 0, size 12, payload 0x01020304; then half a message
	c.inBuf = []byte{
		2, 0, 0, 0, 0, 0, 12, 0, 4, 3, 2, 1,
		3, 0, 0, 0,
	}
	c.pendingFds = []int{42}

	msg, ok := c.pop()
	if !ok {
		t.Fatal("pop() should return the first complete message")
	}
	if msg.object != 2 || msg.opcode != 0 || le.Uint32(msg.payload) != 0x01020304 {
		t.Errorf("pop() = %+v", msg)
	}
	if msg.fd != 42 {
		t.Errorf("fd = %d, want 42", msg.fd)
	}
	if _, ok := c.pop(); ok {
		t.Error("pop() should wait for the rest of a partial message")
	}
}

func TestSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	t.Setenv("WAYLAND_DISPLAY", "wayland-1")
	got, err := SocketPath()
	if err != nil || got != "/run/user/1000/wayland-1" {
		t.Errorf("SocketPath() = %q, %v", got, err)
	}

	t.Setenv("WAYLAND_DISPLAY", "/tmp/custom-socket")
	if got, _ := SocketPath(); got != "/tmp/custom-socket" {
		t.Errorf("SocketPath() = %q, want absolute display path", got)
	}

	t.Setenv("XDG_RUNTIME_DIR", "")
	if _, err := SocketPath(); err == nil {
		t.Error("SocketPath() should fail without XDG_RUNTIME_DIR")
	}
}
