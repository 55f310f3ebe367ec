package dmcam

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"regexp"
	"sync"
	"testing"

	"github.com/arloliu/go-semccd/semccd"
	"github.com/stretchr/testify/require"
)

var doesFunctionExistRe = regexp.MustCompile(`DoesFunctionExist\("([^"]+)"\)`)

// fakeImage configures the chunked transfer served for an image request.
type fakeImage struct {
	status int64
	width  int
	height int
	chunks int
	pix    []uint16

	// dropAfterChunks, when positive, closes the connection after that many
	// chunks have been written.
	dropAfterChunks int
}

// fakeHost is an in-process SerialEMCCD host. It speaks just enough of the
// wire protocol to serve script probes, canned replies, and chunked image
// transfers.
type fakeHost struct {
	ln net.Listener

	mu           sync.Mutex
	fns          map[string]bool             // script functions that "exist"
	scriptVal    func(script string) float64 // value hook for non-probe scripts
	scriptStatus int64                       // status long for non-probe scripts
	scripts      []string                    // scripts received, in order
	replies      map[int64]*semccd.Message   // canned replies by function code
	silent       map[int64]bool              // codes the host never answers
	frames       map[int64][]byte            // last raw request frame by code
	image        *fakeImage
	handshakes   int
	bytesRead    int
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h := &fakeHost{
		ln:      ln,
		fns:     make(map[string]bool),
		replies: make(map[int64]*semccd.Message),
		silent:  make(map[int64]bool),
		frames:  make(map[int64][]byte),
	}

	go h.acceptLoop()
	t.Cleanup(func() { _ = ln.Close() })

	return h
}

func (h *fakeHost) port() int {
	return h.ln.Addr().(*net.TCPAddr).Port
}

func (h *fakeHost) addFunction(names ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, name := range names {
		h.fns[name] = true
	}
}

func (h *fakeHost) setReply(code int64, msg *semccd.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replies[code] = msg
}

// setSilent makes the host swallow requests for code without answering,
// simulating a hung remote operation.
func (h *fakeHost) setSilent(code int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.silent[code] = true
}

func (h *fakeHost) setScriptStatus(status int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scriptStatus = status
}

func (h *fakeHost) setImage(img *fakeImage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.image = img
}

func (h *fakeHost) receivedScripts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string(nil), h.scripts...)
}

func (h *fakeHost) lastScript() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.scripts) == 0 {
		return ""
	}

	return h.scripts[len(h.scripts)-1]
}

func (h *fakeHost) lastFrame(code int64) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.frames[code]
}

func (h *fakeHost) handshakeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.handshakes
}

func (h *fakeHost) totalBytesRead() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.bytesRead
}

func (h *fakeHost) acceptLoop() {
	for {
		conn, err := h.ln.Accept()
		if err != nil {
			return
		}
		go h.serve(conn)
	}
}

func (h *fakeHost) serve(conn net.Conn) {
	defer conn.Close()

	for {
		frame, err := h.readFrame(conn)
		if err != nil {
			return
		}

		code := int64(binary.LittleEndian.Uint64(frame[4:12]))

		h.mu.Lock()
		h.frames[code] = frame
		h.mu.Unlock()

		if err := h.dispatch(conn, code, frame); err != nil {
			return
		}
	}
}

func (h *fakeHost) readFrame(conn net.Conn) ([]byte, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(conn, sizeBuf[:]); err != nil {
		return nil, err
	}

	size := int(binary.LittleEndian.Uint32(sizeBuf[:]))
	frame := make([]byte, size)
	copy(frame, sizeBuf[:])
	if _, err := io.ReadFull(conn, frame[4:]); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.bytesRead += size
	h.mu.Unlock()

	return frame, nil
}

func (h *fakeHost) dispatch(conn net.Conn, code int64, frame []byte) error {
	h.mu.Lock()
	stall := h.silent[code]
	h.mu.Unlock()
	if stall {
		return nil
	}

	switch code {
	case semccd.MustCode(semccd.FuncExecuteScript):
		return h.serveScript(conn, frame)
	case semccd.MustCode(semccd.FuncGetAcquiredImage), semccd.MustCode(semccd.FuncGetDarkReference):
		return h.serveImage(conn)
	case semccd.MustCode(semccd.FuncChunkHandshake):
		// Handshakes outside an image transfer carry no response.
		h.mu.Lock()
		h.handshakes++
		h.mu.Unlock()
		return nil
	default:
		h.mu.Lock()
		reply := h.replies[code]
		h.mu.Unlock()
		if reply == nil {
			return fmt.Errorf("no canned reply for function code %d", code)
		}
		return h.sendMessage(conn, reply)
	}
}

// serveScript answers an execute-script request. Probe scripts are answered
// from the registered function set; other scripts from the value hook.
func (h *fakeHost) serveScript(conn net.Conn, frame []byte) error {
	// Script request layout: size, code long, array-length long, bool,
	// then the NUL-padded script text.
	script := string(bytes.TrimRight(frame[24:], "\x00"))

	h.mu.Lock()
	h.scripts = append(h.scripts, script)
	var val float64
	var status int64
	if m := doesFunctionExistRe.FindStringSubmatch(script); m != nil {
		if h.fns[m[1]] {
			val = 1.0
		} else {
			val = -1.0
		}
	} else {
		status = h.scriptStatus
		if h.scriptVal != nil {
			val = h.scriptVal(script)
		}
	}
	h.mu.Unlock()

	return h.sendMessage(conn, semccd.NewMessage([]int64{status}, nil, []float64{val}, nil))
}

// serveImage sends the header response and then the pixel payload in
// chunks, waiting for a handshake message before every chunk after the
// first.
func (h *fakeHost) serveImage(conn net.Conn) error {
	h.mu.Lock()
	img := h.image
	h.mu.Unlock()

	if img == nil {
		return fmt.Errorf("image request without a configured image")
	}

	pixels := int64(len(img.pix))
	header := semccd.NewMessage(
		[]int64{img.status, pixels, int64(img.width), int64(img.height), int64(img.chunks)},
		nil, nil, nil,
	)
	if err := h.sendMessage(conn, header); err != nil {
		return err
	}

	if img.status < 0 {
		return nil
	}

	data := make([]byte, 2*len(img.pix))
	for i, v := range img.pix {
		binary.LittleEndian.PutUint16(data[2*i:], v)
	}

	chunkSize := (len(data) + img.chunks - 1) / img.chunks
	written := 0
	for sent := 0; sent < len(data); {
		if img.dropAfterChunks > 0 && written == img.dropAfterChunks {
			return fmt.Errorf("dropping connection after %d chunks", written)
		}
		if sent > 0 {
			// The client must hand-shake before every chunk but the first.
			frame, err := h.readFrame(conn)
			if err != nil {
				return err
			}
			code := int64(binary.LittleEndian.Uint64(frame[4:12]))
			if code != semccd.MustCode(semccd.FuncChunkHandshake) {
				return fmt.Errorf("expected chunk handshake, got function code %d", code)
			}
			h.mu.Lock()
			h.handshakes++
			h.mu.Unlock()
		}

		end := sent + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := conn.Write(data[sent:end]); err != nil {
			return err
		}
		sent = end
		written++
	}

	return nil
}

func (h *fakeHost) sendMessage(conn net.Conn, msg *semccd.Message) error {
	buf, err := msg.Pack()
	if err != nil {
		return err
	}
	_, err = conn.Write(buf)

	return err
}

// connectTo creates and connects a client to the fake host.
func (h *fakeHost) connectTo(t *testing.T, opts ...ConnOption) *Connection {
	t.Helper()

	cfg, err := NewConnectionConfig("127.0.0.1", h.port(), opts...)
	require.NoError(t, err)

	conn, err := NewConnection(cfg)
	require.NoError(t, err)

	require.NoError(t, conn.Connect(t.Context()))
	t.Cleanup(func() { _ = conn.Disconnect() })

	return conn
}
