//go:build linux

package clipboard

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"mermaidcopy/pkg/clipboard/internal/wayland"
	"mermaidcopy/pkg/logger"

	atotto "github.com/atotto/clipboard"
)

var errEmptyPayload = fmt.Errorf("empty clipboard payload")

func writeText(text string) error {
	err := atotto.WriteAll(text)
	if err == nil || os.Getenv("WAYLAND_DISPLAY") == "" {
		return err
	}
	// atotto shells out to wl-copy; serve the text ourselves when it is missing
	logger.Debug().Err(err).Msg("text clipboard helper failed, using clipboard server")
	return spawnClipboardServer(map[string][]byte{"text/plain": []byte(text)})
}

// writeImage hands the image to a clipboard owner. On Wayland it spawns a
// background clipboard server; on X11 it pipes the data to xclip.
func writeImage(mime string, data []byte) error {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return spawnClipboardServer(map[string][]byte{mime: data})
	}
	if os.Getenv("DISPLAY") == "" {
		return fmt.Errorf("no graphical session (neither WAYLAND_DISPLAY nor DISPLAY is set)")
	}
	return pipeToXclip(mime, data)
}

func pipeToXclip(mime string, data []byte) error {
	path, err := exec.LookPath("xclip")
	if err != nil {
		return fmt.Errorf("xclip is required to copy images on X11: %w", err)
	}
	cmd := exec.Command(path, "-selection", "clipboard", "-t", mime, "-i")
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("xclip: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

// statusEnv names the descriptor on which the clipboard server reports
// whether it owns the selection.
const statusEnv = "MERMAIDCOPY_CLIPBOARD_STATUS_FD"

// serverReadyTimeout bounds the wait for the clipboard server's report.
var serverReadyTimeout = 3 * time.Second

func spawnClipboardServer(formats map[string][]byte) error {
	if err := wayland.CheckSocket(); err != nil {
		return err
	}

	payload, err := json.Marshal(Payload{Formats: formats})
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	statusR, statusW, err := os.Pipe()
	if err != nil {
		return err
	}
	defer statusR.Close()

	cmd := exec.Command(exe, ServeCommand)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.ExtraFiles = []*os.File{statusW} // fd 3 in the child
	cmd.Env = append(os.Environ(), statusEnv+"=3")
	// own session so the server outlives this process
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		statusW.Close()
		return err
	}
	statusW.Close()

	if err := readStatus(statusR, serverReadyTimeout); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return err
	}
	logger.Debug().Int("pid", cmd.Process.Pid).Int("formats", len(formats)).Msg("clipboard server owns the selection")
	return cmd.Process.Release()
}

// readStatus waits for the server's status line: "ok" or "error: <reason>".
func readStatus(r io.Reader, timeout time.Duration) error {
	line := make(chan string, 1)
	go func() {
		s, _ := bufio.NewReader(r).ReadString('\n')
		line <- strings.TrimSpace(s)
	}()

	select {
	case s := <-line:
		switch {
		case s == "ok":
			return nil
		case strings.HasPrefix(s, "error: "):
			return fmt.Errorf("clipboard server: %s", strings.TrimPrefix(s, "error: "))
		case s == "":
			return fmt.Errorf("clipboard server exited without taking the clipboard")
		default:
			return fmt.Errorf("clipboard server: unexpected status %q", s)
		}
	case <-time.After(timeout):
		return fmt.Errorf("clipboard server did not take the clipboard within %s", timeout)
	}
}

// ServeClipboard runs the clipboard owner for the __clipboard-serve command.
// It blocks until another client takes the clipboard.
func ServeClipboard(p Payload) error {
	formats := make(map[string][]byte, len(p.Formats)+4)
	for mime, data := range p.Formats {
		formats[mime] = data
	}
	// Text payloads are also offered under the legacy X atoms.
	if plain, ok := p.Formats["text/plain"]; ok {
		formats["text/plain;charset=utf-8"] = plain
		formats["UTF8_STRING"] = plain
		formats["STRING"] = plain
	}

	status := statusWriter()
	return wayland.Serve(formats, func(err error) {
		if status == nil {
			return
		}
		if err != nil {
			fmt.Fprintf(status, "error: %s\n", strings.ReplaceAll(err.Error(), "\n", " "))
		} else {
			fmt.Fprintln(status, "ok")
		}
		status.Close()
	})
}

func statusWriter() *os.File {
	fd, err := strconv.Atoi(os.Getenv(statusEnv))
	if err != nil || fd < 3 {
		return nil
	}
	return os.NewFile(uintptr(fd), "clipboard-status")
}

// ReportServeError tells a waiting parent why the server could not start
// when the failure happened before ServeClipboard ran.
func ReportServeError(err error) {
	if status := statusWriter(); status != nil {
		fmt.Fprintf(status, "error: %s\n", err)
		status.Close()
	}
}
