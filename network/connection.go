// network/connection.go
package network

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/gamekit/pool"
)

// 封包格式: 2字节消息ID + 2字节数据长度 + 数据
const (
	headerSize = 4
	maxPayload = 1<<16 - 1 // 长度字段只有2字节
)

var (
	ErrShortPacket    = errors.New("packet shorter than header")
	ErrPacketTooLarge = errors.New("packet payload exceeds length field")
)

type Packet struct {
	MsgID uint16
	Data  []byte
}

type Connection interface {
	Send(msgID uint16, data []byte) error
	ReadPacket() (*Packet, error)
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
}

// WSConnection frames packets over a gorilla websocket connection.
// Writes are serialized; gorilla allows only one concurrent writer.
type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

// frame is a reusable outbound buffer. WriteMessage does not retain
// the slice after returning, so frames can go straight back to the
// pool.
type frame struct {
	buf []byte
}

var framePool = pool.New(128,
	func() *frame { return &frame{buf: make([]byte, 0, 512)} },
	func(f *frame) { f.buf = f.buf[:0] },
)

// appendFrame encodes the packet header and payload onto buf. Payloads
// larger than the length field can describe are rejected rather than
// truncated.
func appendFrame(buf []byte, msgID uint16, data []byte) ([]byte, error) {
	if len(data) > maxPayload {
		return buf, ErrPacketTooLarge
	}
	buf = binary.BigEndian.AppendUint16(buf, msgID)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(data)))
	return append(buf, data...), nil
}

func (c *WSConnection) Send(msgID uint16, data []byte) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	f := framePool.Get()
	defer framePool.Put(f)

	buf, err := appendFrame(f.buf, msgID, data)
	if err != nil {
		return err
	}
	f.buf = buf

	return c.conn.WriteMessage(websocket.BinaryMessage, f.buf)
}

func (c *WSConnection) ReadPacket() (*Packet, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	if len(data) < headerSize {
		return nil, ErrShortPacket
	}

	msgID := binary.BigEndian.Uint16(data[0:2])
	length := binary.BigEndian.Uint16(data[2:4])

	if len(data) < headerSize+int(length) {
		return nil, ErrShortPacket
	}

	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}

	return &Packet{
		MsgID: msgID,
		Data:  data[headerSize : headerSize+length],
	}, nil
}

func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
