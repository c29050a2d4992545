//go:build linux

package wayland

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Object IDs assigned by this client (client range 2..0xfeffffff).
const (
	idDisplay   uint32 = 1
	idRegistry  uint32 = 2
	idSync1     uint32 = 3
	idSeat      uint32 = 4
	idDCManager uint32 = 5 // zwlr_data_control_manager_v1
	idDCSource  uint32 = 6 // zwlr_data_control_source_v1
	idDCDevice  uint32 = 7 // zwlr_data_control_device_v1
	idSync2     uint32 = 8
)

// Opcodes used below, per interface.
const (
	opDisplaySync        = 0
	opDisplayGetRegistry = 1
	opRegistryBind       = 0
	opManagerCreateSrc   = 0
	opManagerGetDevice   = 1
	opSourceOffer        = 0
	opDeviceSetSelection = 0

	evRegistryGlobal  = 0
	evCallbackDone    = 0
	evSourceSend      = 0
	evSourceCancelled = 1
)

const dataControlManager = "zwlr_data_control_manager_v1"

// SocketPath resolves the compositor socket from the environment.
func SocketPath() (string, error) {
	runtime := os.Getenv("XDG_RUNTIME_DIR")
	if runtime == "" {
		return "", fmt.Errorf("wayland: XDG_RUNTIME_DIR not set")
	}
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	if filepath.IsAbs(display) {
		return display, nil
	}
	return filepath.Join(runtime, display), nil
}

// Serve takes clipboard ownership offering every MIME type in formats and
// answers paste requests until another client claims the clipboard. ready is
// called exactly once: with nil when the selection is owned, or with the
// error that prevented it.
func Serve(formats map[string][]byte, ready func(error)) error {
	err := own(formats, func(c *conn) error {
		ready(nil)
		return serveRequests(c, formats)
	})
	if err != nil && !errors.Is(err, errServing) {
		ready(err)
	}
	return err
}

var errServing = fmt.Errorf("wayland: serving")

func own(formats map[string][]byte, serve func(*conn) error) error {
	if len(formats) == 0 {
		return fmt.Errorf("wayland: nothing to offer")
	}
	sockPath, err := SocketPath()
	if err != nil {
		return err
	}
	c, err := dial(sockPath)
	if err != nil {
		return fmt.Errorf("wayland: connect %s: %w", sockPath, err)
	}
	defer c.close()

	seat, manager, err := discoverGlobals(c)
	if err != nil {
		return err
	}
	if err := claimSelection(c, seat, manager, formats); err != nil {
		return err
	}
	if err := serve(c); err != nil {
		return fmt.Errorf("%w: %v", errServing, err)
	}
	return nil
}

// CheckSocket reports whether a compositor socket exists where SocketPath
// points.
func CheckSocket() error {
	sockPath, err := SocketPath()
	if err != nil {
		return err
	}
	info, err := os.Stat(sockPath)
	if err != nil {
		return fmt.Errorf("wayland: no compositor socket: %w", err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("wayland: %s is not a socket", sockPath)
	}
	return nil
}

// discoverGlobals lists the registry and returns the names of the seat and
// the data-control manager.
func discoverGlobals(c *conn) (seat, manager uint32, err error) {
	if err = c.send(idDisplay, opDisplayGetRegistry, uint32Arg(idRegistry)); err != nil {
		return
	}
	if err = c.send(idDisplay, opDisplaySync, uint32Arg(idSync1)); err != nil {
		return
	}

	var seatFound, managerFound bool
	for {
		msg, rerr := c.next()
		if rerr != nil {
			return 0, 0, rerr
		}
		closeFd(msg.fd)

		if msg.object == idSync1 && msg.opcode == evCallbackDone {
			break
		}
		if msg.object != idRegistry || msg.opcode != evRegistryGlobal || len(msg.payload) < 4 {
			continue
		}
		name := le.Uint32(msg.payload[:4])
		iface, _, derr := readString(msg.payload[4:])
		if derr != nil {
			continue
		}
		switch iface {
		case "wl_seat":
			seat, seatFound = name, true
		case dataControlManager:
			manager, managerFound = name, true
		}
	}

	if !seatFound {
		return 0, 0, fmt.Errorf("wayland: wl_seat not found")
	}
	if !managerFound {
		return 0, 0, fmt.Errorf("wayland: %s not found (compositor may not support wlr-data-control)", dataControlManager)
	}
	return seat, manager, nil
}

func claimSelection(c *conn, seat, manager uint32, formats map[string][]byte) error {
	// wl_registry.bind carries an untyped new_id: name, interface, version, id
	if err := c.send(idRegistry, opRegistryBind,
		uint32Arg(seat), stringArg("wl_seat"), uint32Arg(1), uint32Arg(idSeat)); err != nil {
		return err
	}
	if err := c.send(idRegistry, opRegistryBind,
		uint32Arg(manager), stringArg(dataControlManager), uint32Arg(2), uint32Arg(idDCManager)); err != nil {
		return err
	}
	if err := c.send(idDCManager, opManagerCreateSrc, uint32Arg(idDCSource)); err != nil {
		return err
	}
	for mime := range formats {
		if err := c.send(idDCSource, opSourceOffer, stringArg(mime)); err != nil {
			return err
		}
	}
	if err := c.send(idDCManager, opManagerGetDevice, uint32Arg(idDCDevice), uint32Arg(idSeat)); err != nil {
		return err
	}
	if err := c.send(idDCDevice, opDeviceSetSelection, uint32Arg(idDCSource)); err != nil {
		return err
	}
	if err := c.send(idDisplay, opDisplaySync, uint32Arg(idSync2)); err != nil {
		return err
	}

	for {
		msg, err := c.next()
		if err != nil {
			return err
		}
		closeFd(msg.fd)
		if msg.object == idSync2 && msg.opcode == evCallbackDone {
			return nil
		}
	}
}

func serveRequests(c *conn, formats map[string][]byte) error {
	for {
		msg, err := c.next()
		if err != nil {
			// compositor went away; ownership is gone with it
			return nil
		}
		if msg.object != idDCSource {
			closeFd(msg.fd)
			continue
		}

		switch msg.opcode {
		case evSourceSend:
			mime, _, _ := readString(msg.payload)
			if msg.fd >= 0 {
				if data, ok := formats[mime]; ok {
					writeAll(msg.fd, data)
				}
				closeFd(msg.fd)
			}
		case evSourceCancelled:
			closeFd(msg.fd)
			return nil
		default:
			closeFd(msg.fd)
		}
	}
}

// writeAll pushes data into a pipe; binary payloads routinely exceed one
// write.
func writeAll(fd int, data []byte) {
	for len(data) > 0 {
		n, err := syscall.Write(fd, data)
		if err != nil || n <= 0 {
			return
		}
		data = data[n:]
	}
}

func closeFd(fd int) {
	if fd >= 0 {
		syscall.Close(fd) //nolint:errcheck
	}
}
