// Package server contains the components a write server is wired from.
package server

import (
	"fmt"
	"net"
	"strconv"
)

// Server is the address of a server node.
type Server struct {
	Host string
	Port int
}

func (s Server) String() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ParseServer reads a host:port address.
func ParseServer(addr string) (Server, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return Server{}, err
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return Server{}, fmt.Errorf("invalid port in address %q", addr)
	}
	return Server{Host: host, Port: p}, nil
}

type ChangeKind int

const (
	ChangeAdd ChangeKind = iota
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ChangeNotification announces that a peer joined or left.
type ChangeNotification struct {
	Kind ChangeKind
	Data Server
}

func AddNotification(s Server) ChangeNotification {
	return ChangeNotification{Kind: ChangeAdd, Data: s}
}

func DeleteNotification(s Server) ChangeNotification {
	return ChangeNotification{Kind: ChangeDelete, Data: s}
}
