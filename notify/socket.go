package notify

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// NotifyWriteChunkSize is the chunk size when writing payload to Unix socket (avoid large single write).
const NotifyWriteChunkSize = 32 * 1024 // 32KB

// MaxNotifyFiles is the maximum number of files included in a notification payload.
const MaxNotifyFiles = 20

var (
	// DefaultUnixSocketPath is the default Unix socket path for IPC
	DefaultUnixSocketPath = "/tmp/filetool-notify.sock"
	// UnixSocketTimeout is the timeout for Unix socket operations
	UnixSocketTimeout = 3 * time.Second
)

// SocketNotifier sends length-prefixed JSON notifications to a host listening on a
// Unix domain socket: a 4 byte little-endian length, the payload, then one JSON reply.
type SocketNotifier struct {
	Path    string
	Timeout time.Duration
}

func NewSocketNotifier(path string) *SocketNotifier {
	if path == "" {
		path = DefaultUnixSocketPath
	}
	return &SocketNotifier{Path: path, Timeout: UnixSocketTimeout}
}

// Send sends notification via Unix Domain Socket
func (s *SocketNotifier) Send(notification *types.Notification) error {
	truncateFiles(notification)

	if _, err := os.Stat(s.Path); os.IsNotExist(err) {
		return fmt.Errorf("unix socket not found: %s (is the host UI running?)", s.Path)
	}

	var payload []byte
	var err error
	if notification != nil {
		payload, err = sonic.Marshal(notification)
		if err != nil {
			return fmt.Errorf("failed to serialize notification data: %w", err)
		}
	} else {
		payload = []byte("{}")
	}

	// Reject payload over 32KB
	if len(payload) > NotifyWriteChunkSize {
		return fmt.Errorf("notification payload too large: %d bytes (max %d)", len(payload), NotifyWriteChunkSize)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = UnixSocketTimeout
	}
	conn, err := net.DialTimeout("unix", s.Path, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to Unix socket %s: %w", s.Path, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close Unix socket connection: %v", err)
		}
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		tool.DefaultLogger.Errorf("Failed to set write deadline: %v", err)
	}

	lengthBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBuf, uint32(len(payload)))
	if _, err := conn.Write(lengthBuf); err != nil {
		return fmt.Errorf("failed to write length to Unix socket: %w", err)
	}
	tool.DefaultLogger.Debugf("Sending notification to Unix socket (len=%d): %s", len(payload), payload)
	for off := 0; off < len(payload); {
		chunkEnd := min(off+NotifyWriteChunkSize, len(payload))
		nw, err := conn.Write(payload[off:chunkEnd])
		if err != nil {
			return fmt.Errorf("failed to write payload to Unix socket: %w", err)
		}
		off += nw
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		tool.DefaultLogger.Errorf("Failed to set read deadline: %v", err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read response from Unix socket: %w", err)
	}

	if n > 0 {
		var response map[string]any
		if err := sonic.Unmarshal(buf[:n], &response); err != nil {
			tool.DefaultLogger.Debugf("Unix socket response (raw): %s", buf[:n])
		} else if errMsg, ok := response["error"].(string); ok && errMsg != "" {
			return fmt.Errorf("server returned error: %s", errMsg)
		}
	}

	if notification != nil {
		tool.DefaultLogger.Debugf("[UnixSocket] Notification sent: %s - %s", notification.Type, notification.Title)
	}
	return nil
}

// truncateFiles keeps file lists in flow notifications bounded.
func truncateFiles(notification *types.Notification) {
	if notification == nil || notification.Data == nil {
		return
	}
	if files, ok := notification.Data["files"].([]types.FileRecord); ok && len(files) > MaxNotifyFiles {
		notification.Data["files"] = files[:MaxNotifyFiles]
		notification.Data["totalFiles"] = len(files)
	}
}
