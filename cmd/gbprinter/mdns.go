package main

import (
	"fmt"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
)

const mdnsServiceType = "_gbprinter._tcp"

// startMDNS advertises this bridge over mDNS so a LAN viewer can find
// it without being told a hostname, returning a cleanup function.
func startMDNS(instance string) (func(), error) {
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("gbprinter-%s", host)
	}

	_, port, err := splitHostPort(wsAddr)
	if err != nil {
		return nil, fmt.Errorf("mdns: %w", err)
	}

	meta := []string{"proto=0.1.0"}
	svc, err := zeroconf.Register(instance, mdnsServiceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}

	return func() {
		svc.Shutdown()
		time.Sleep(50 * time.Millisecond)
	}, nil
}

// splitHostPort extracts the numeric port from a ":9109"-style listen
// address.
func splitHostPort(addr string) (string, int, error) {
	var host string
	var port int
	_, err := fmt.Sscanf(addr, ":%d", &port)
	if err != nil {
		return "", 0, fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	return host, port, nil
}
