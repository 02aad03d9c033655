package gatewaylink

import "testing"

func TestParseDiscoveryReplyAcceptsMainRepeater(t *testing.T) {
	payload := "><LUTRON=2><PRODTYPE=MainRepeater><IPADDR=010.000.000.001>"
	ip, ok := parseDiscoveryReply(payload)
	if !ok {
		t.Fatal("expected a match")
	}
	if ip != "10.0.0.1" {
		t.Errorf("ip = %q, want 10.0.0.1", ip)
	}
}

func TestParseDiscoveryReplyRejectsWrongProductType(t *testing.T) {
	payload := "><LUTRON=2><PRODTYPE=Dimmer><IPADDR=010.000.000.001>"
	if _, ok := parseDiscoveryReply(payload); ok {
		t.Error("non-MainRepeater PRODTYPE should be rejected")
	}
}

func TestParseDiscoveryReplyRejectsMissingLutronTag(t *testing.T) {
	payload := "><PRODTYPE=MainRepeater><IPADDR=010.000.000.001>"
	if _, ok := parseDiscoveryReply(payload); ok {
		t.Error("missing LUTRON=2 should be rejected")
	}
}

func TestNormalizeDottedIP(t *testing.T) {
	ip, ok := normalizeDottedIP("192.168.001.010")
	if !ok || ip != "192.168.1.10" {
		t.Errorf("normalizeDottedIP = %q, %v", ip, ok)
	}
	if _, ok := normalizeDottedIP("not.an.ip"); ok {
		t.Error("malformed octet should fail")
	}
}
