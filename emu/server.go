package emu

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/xtls/xray-core/common/errors"

	"github.com/fujinet/macserial/codec"
)

// Sector wire protocol, one request/response pair per transfer:
//
//	request:  [Op:1B 'R'|'W'][Drive:1B][Sector:4B big-endian][Tags:12B]
//	          and, for 'W', [Block:512B]
//	response: [Status:1B 0=ok 1=error][Tags:12B] and, for 'R', [Block:512B]
//
// Tags are echoed back on every response, including errors, because the
// bridge may mutate them mid-handshake even on unhandled transfers.

const (
	opRead  = 'R'
	opWrite = 'W'

	statusOK    = 0
	statusError = 1
)

// Server exposes emulated floppy devices to a host over TCP. Sector I/O is
// serialized across all connections: the bridge session is process-wide
// state with no internal locking.
type Server struct {
	ctx     context.Context
	devices map[uint8]*Device

	ioMu sync.Mutex
}

// NewServer creates a server for the given devices.
func NewServer(ctx context.Context, devices ...*Device) *Server {
	if ctx == nil {
		ctx = context.Background()
	}
	m := make(map[uint8]*Device, len(devices))
	for _, d := range devices {
		m[d.Drive()] = d
	}
	return &Server{ctx: ctx, devices: m}
}

// Serve accepts connections on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return errors.New("emu: accept failed").Base(err)
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	errors.LogInfo(s.ctx, "emu: host connected from ", conn.RemoteAddr())

	var (
		head  [6]byte
		tags  [TagLen]byte
		block [codec.BlockLen]byte
	)
	for {
		if _, err := io.ReadFull(conn, head[:]); err != nil {
			if err != io.EOF {
				errors.LogInfoInner(s.ctx, err, "emu: host connection ended")
			}
			return
		}
		op := head[0]
		drive := head[1]
		sector := binary.BigEndian.Uint32(head[2:6])

		if _, err := io.ReadFull(conn, tags[:]); err != nil {
			errors.LogInfoInner(s.ctx, err, "emu: short request")
			return
		}
		if op == opWrite {
			if _, err := io.ReadFull(conn, block[:]); err != nil {
				errors.LogInfoInner(s.ctx, err, "emu: short write request")
				return
			}
		}

		status := byte(statusOK)
		dev, ok := s.devices[drive]
		switch {
		case !ok:
			errors.LogDebug(s.ctx, "emu: request for unknown drive ", drive)
			status = statusError
		case op == opRead:
			if err := s.readSector(dev, sector, tags[:], block[:]); err != nil {
				errors.LogDebugInner(s.ctx, err, "emu: read failed")
				status = statusError
			}
		case op == opWrite:
			if err := s.writeSector(dev, sector, tags[:], block[:]); err != nil {
				errors.LogDebugInner(s.ctx, err, "emu: write failed")
				status = statusError
			}
		default:
			errors.LogDebug(s.ctx, "emu: unknown op ", op)
			status = statusError
		}

		reply := make([]byte, 0, 1+TagLen+codec.BlockLen)
		reply = append(reply, status)
		reply = append(reply, tags[:]...)
		if op == opRead && status == statusOK {
			reply = append(reply, block[:]...)
		}
		if _, err := conn.Write(reply); err != nil {
			errors.LogInfoInner(s.ctx, err, "emu: reply failed")
			return
		}
	}
}

func (s *Server) readSector(dev *Device, sector uint32, tags, block []byte) error {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	return dev.ReadSector(sector, tags, block)
}

func (s *Server) writeSector(dev *Device, sector uint32, tags, block []byte) error {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	return dev.WriteSector(sector, tags, block)
}
