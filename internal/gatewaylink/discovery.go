package gatewaylink

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	multicastAddr    = "224.0.37.42:2647"
	multicastPayload = "<LUTRON=1>"
)

// discoverRepeater sends the LUTRON multicast discovery probe and waits up
// to timeout for a MainRepeater reply, returning its IPADDR. It is a
// one-shot blocking operation run on a helper goroutine by dial.go; the
// reactor goroutine never blocks on it directly.
func discoverRepeater(timeout time.Duration) (string, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return "", fmt.Errorf("gatewaylink: discovery socket: %w", err)
	}
	defer conn.Close()

	dst, err := net.ResolveUDPAddr("udp4", multicastAddr)
	if err != nil {
		return "", fmt.Errorf("gatewaylink: resolve multicast addr: %w", err)
	}
	if _, err := conn.WriteTo([]byte(multicastPayload), dst); err != nil {
		return "", fmt.Errorf("gatewaylink: discovery send: %w", err)
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 1024)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrDiscoveryFailed
		}
		conn.SetReadDeadline(time.Now().Add(remaining))
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return "", ErrDiscoveryFailed
		}
		if addr, ok := parseDiscoveryReply(string(buf[:n])); ok {
			return addr, nil
		}
		// Not a matching reply (wrong device, or malformed); keep listening
		// until the deadline.
	}
}

// parseDiscoveryReply parses the quasi-XML multicast reply. The payload is
// a sequence of ">< "-delimited fragments of the form KEY=VALUE; a valid
// repeater reply carries LUTRON=2, PRODTYPE=MainRepeater, and an IPADDR
// field in dotted-decimal, possibly with leading zeros per octet (§8).
func parseDiscoveryReply(payload string) (string, bool) {
	fields := map[string]string{}
	for _, frag := range strings.Split(payload, "><") {
		frag = strings.Trim(frag, "<>")
		k, v, ok := strings.Cut(frag, "=")
		if !ok {
			continue
		}
		fields[k] = v
	}

	if fields["LUTRON"] != "2" || fields["PRODTYPE"] != "MainRepeater" {
		return "", false
	}
	ip, ok := fields["IPADDR"]
	if !ok {
		return "", false
	}
	normalized, ok := normalizeDottedIP(ip)
	if !ok {
		return "", false
	}
	return normalized, true
}

// normalizeDottedIP strips leading zeros from each octet of a dotted
// decimal IPv4 address, e.g. "010.000.000.001" -> "10.0.0.1".
func normalizeDottedIP(ip string) (string, bool) {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return "", false
	}
	out := make([]string, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return "", false
		}
		out[i] = strconv.Itoa(v)
	}
	return strings.Join(out, "."), true
}
