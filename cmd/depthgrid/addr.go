package main

import (
	"net"
	"strconv"
)

// udpPortOf extracts the port from a host:port listen address.
func udpPortOf(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
