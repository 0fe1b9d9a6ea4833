package npdu

import "testing"

func TestWhoIsRouterToNetworkRestrictedRoundTrip(t *testing.T) {
	body := AppendWhoIsRouterToNetwork(nil, 40, true)
	dnet, ok := DecodeWhoIsRouterToNetwork(body)
	if !ok || dnet != 40 {
		t.Fatalf("dnet=%d ok=%v, want 40,true", dnet, ok)
	}
}

func TestWhoIsRouterToNetworkUnrestricted(t *testing.T) {
	body := AppendWhoIsRouterToNetwork(nil, 0, false)
	if len(body) != 0 {
		t.Fatalf("unrestricted body should be empty, got % x", body)
	}
	if _, ok := DecodeWhoIsRouterToNetwork(body); ok {
		t.Fatal("expected ok=false for unrestricted body")
	}
}

func TestIAmRouterToNetworkRoundTrip(t *testing.T) {
	body := AppendIAmRouterToNetwork(nil, []uint16{40, 50})
	nets := DecodeIAmRouterToNetwork(body)
	if len(nets) != 2 || nets[0] != 40 || nets[1] != 50 {
		t.Fatalf("nets = %v", nets)
	}
}
