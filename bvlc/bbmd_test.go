package bvlc

import (
	"net"
	"testing"
	"time"
)

func TestRegisterAndReadFDT(t *testing.T) {
	b := NewBBMD()
	addr := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 10), Port: 47808}
	now := time.Now()
	b.Register(addr, 60)

	live := b.FDT(now)
	if len(live) != 1 || live[0].String() != addr.String() {
		t.Fatalf("FDT = %+v", live)
	}
}

func TestFDTEntryExpiresAfterTTLPlusGrace(t *testing.T) {
	b := NewBBMD()
	addr := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 10), Port: 47808}
	now := time.Now()
	b.Register(addr, 60)

	stillLive := b.FDT(now.Add(89 * time.Second))
	if len(stillLive) != 1 {
		t.Fatalf("entry expired before TTL+grace: %+v", stillLive)
	}

	expired := b.FDT(now.Add(91 * time.Second))
	if len(expired) != 0 {
		t.Fatalf("entry did not expire after TTL+grace: %+v", expired)
	}
}

func TestAgeOncePurgesExpiredEntries(t *testing.T) {
	b := NewBBMD()
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 47808}
	now := time.Now()
	b.Register(addr, 1)

	b.AgeOnce(now.Add(32 * time.Second))
	if len(b.FDT(now.Add(32 * time.Second))) != 0 {
		t.Fatal("expired entry survived AgeOnce")
	}
}

func TestDeleteRemovesEntryImmediately(t *testing.T) {
	b := NewBBMD()
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 3), Port: 47808}
	b.Register(addr, 600)
	b.Delete(addr)
	if len(b.FDT(time.Now())) != 0 {
		t.Fatal("deleted entry still present")
	}
}

func TestBroadcastTargetsIncludesBDTPeersAndForeignDevices(t *testing.T) {
	b := NewBBMD()
	peer := &net.UDPAddr{IP: net.IPv4(172, 16, 0, 5), Port: 47808}
	self := &net.UDPAddr{IP: net.IPv4(172, 16, 0, 1), Port: 47808}
	b.SetBDT([]BDTEntry{{Addr: self}, {Addr: peer}})

	foreign := &net.UDPAddr{IP: net.IPv4(203, 0, 113, 9), Port: 47808}
	b.Register(foreign, 600)

	targets := b.BroadcastTargets(time.Now(), self)
	if len(targets) != 2 {
		t.Fatalf("targets = %+v, want peer + foreign device", targets)
	}
}
