// Package transport sends datagrams to a DMX-over-IP node.
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

var ErrClosed = errors.New("transport closed")

// UDP is a socket bound once and reused for every send to a fixed
// destination. The socket is not connected, so an ICMP error caused by one
// datagram does not fail the following ones.
type UDP struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
}

// Dial resolves host:port and opens the socket. local, when set, picks the
// source interface.
func Dial(host string, port int, local net.IP) (*UDP, error) {
	remote, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s:%d: %w", host, port, err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: local})
	if err != nil {
		return nil, fmt.Errorf("failed to open udp socket: %w", err)
	}

	return &UDP{conn: conn, remote: remote}, nil
}

// Send writes one datagram.
func (u *UDP) Send(packet []byte) error {
	if u.conn == nil {
		return ErrClosed
	}
	if _, err := u.conn.WriteToUDP(packet, u.remote); err != nil {
		return fmt.Errorf("send to %s: %w", u.remote, err)
	}
	return nil
}

// Remote returns the destination address.
func (u *UDP) Remote() *net.UDPAddr {
	return u.remote
}

// Close releases the socket.
func (u *UDP) Close() error {
	if u.conn == nil {
		return nil
	}
	err := u.conn.Close()
	u.conn = nil
	return err
}
