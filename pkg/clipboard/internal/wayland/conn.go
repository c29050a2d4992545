//go:build linux

package wayland

import (
	"encoding/binary"
	"fmt"
	"syscall"
)

var le = binary.LittleEndian

// message is one decoded event.
type message struct {
	object  uint32
	opcode  uint16
	payload []byte
	fd      int // -1 unless a descriptor arrived with the message
}

// conn is a buffered Wayland socket connection.
type conn struct {
	fd         int
	inBuf      []byte
	pendingFds []int
}

func dial(sockPath string) (*conn, error) {
	fd, err := syscall.Socket(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := syscall.Connect(fd, &syscall.SockaddrUnix{Name: sockPath}); err != nil {
		syscall.Close(fd) //nolint:errcheck
		return nil, err
	}
	return &conn{fd: fd}, nil
}

func (c *conn) close() {
	syscall.Close(c.fd) //nolint:errcheck
	for _, fd := range c.pendingFds {
		syscall.Close(fd) //nolint:errcheck
	}
	c.pendingFds = nil
}

// send writes one request. args must already be wire-encoded.
func (c *conn) send(object uint32, opcode uint16, args ...[]byte) error {
	body := concat(args...)
	size := 8 + len(body)
	buf := make([]byte, size)
	le.PutUint32(buf[0:], object)
	le.PutUint32(buf[4:], uint32(opcode)|uint32(size)<<16)
	copy(buf[8:], body)
	_, err := syscall.Write(c.fd, buf)
	return err
}

// next blocks until a complete event is buffered.
func (c *conn) next() (message, error) {
	for {
		if msg, ok := c.pop(); ok {
			return msg, nil
		}
		if err := c.fill(); err != nil {
			return message{fd: -1}, err
		}
	}
}

func (c *conn) pop() (message, bool) {
	if len(c.inBuf) < 8 {
		return message{}, false
	}
	header := le.Uint32(c.inBuf[4:8])
	size := int(header >> 16)
	if size < 8 || len(c.inBuf) < size {
		return message{}, false
	}
	msg := message{
		object:  le.Uint32(c.inBuf[0:4]),
		opcode:  uint16(header & 0xffff),
		payload: append([]byte(nil), c.inBuf[8:size]...),
		fd:      -1,
	}
	c.inBuf = c.inBuf[size:]
	if len(c.pendingFds) > 0 {
		msg.fd = c.pendingFds[0]
		c.pendingFds = c.pendingFds[1:]
	}
	return msg, true
}

func (c *conn) fill() error {
	buf := make([]byte, 4096)
	oob := make([]byte, syscall.CmsgSpace(4*8))
	n, oobn, _, _, err := syscall.Recvmsg(c.fd, buf, oob, 0)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("wayland: connection closed")
	}
	c.inBuf = append(c.inBuf, buf[:n]...)

	if oobn == 0 {
		return nil
	}
	scms, err := syscall.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil
	}
	for i := range scms {
		if rights, err := syscall.ParseUnixRights(&scms[i]); err == nil {
			c.pendingFds = append(c.pendingFds, rights...)
		}
	}
	return nil
}

func uint32Arg(v uint32) []byte {
	b := make([]byte, 4)
	le.PutUint32(b, v)
	return b
}

// stringArg encodes a length-prefixed, NUL-terminated, 4-byte padded string.
func stringArg(s string) []byte {
	length := len(s) + 1
	padded := (length + 3) &^ 3
	buf := make([]byte, 4+padded)
	le.PutUint32(buf[0:], uint32(length))
	copy(buf[4:], s)
	return buf
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", data, fmt.Errorf("wayland: short string length field")
	}
	length := int(le.Uint32(data[:4]))
	data = data[4:]
	if length == 0 {
		return "", data, nil
	}
	padded := (length + 3) &^ 3
	if len(data) < padded {
		return "", data, fmt.Errorf("wayland: short string data")
	}
	return string(data[:length-1]), data[padded:], nil
}

func concat(slices ...[]byte) []byte {
	var total int
	for _, s := range slices {
		total += len(s)
	}
	out := make([]byte, 0, total)
	for _, s := range slices {
		out = append(out, s...)
	}
	return out
}
