// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package native

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// frameConn reads and writes JSON-lines frames. Reads must come from one
// goroutine; writes may be concurrent.
type frameConn struct {
	conn         net.Conn
	sc           *bufio.Scanner
	writeTimeout time.Duration

	wmu sync.Mutex
}

func newFrameConn(conn net.Conn, writeTimeout time.Duration) *frameConn {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), MaxFrameSize)
	return &frameConn{conn: conn, sc: sc, writeTimeout: writeTimeout}
}

// read returns the next frame. A line that is not valid JSON is reported
// with ErrInvalidFrame and the stream stays usable.
func (c *frameConn) read() (Frame, error) {
	for c.sc.Scan() {
		line := c.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var f Frame
		if err := json.Unmarshal(line, &f); err != nil {
			return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		return f, nil
	}
	if err := c.sc.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

func (c *frameConn) write(f Frame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	raw = append(raw, '\n')

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := c.conn.Write(raw); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *frameConn) close() error { return c.conn.Close() }
