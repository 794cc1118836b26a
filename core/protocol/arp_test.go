package protocol

import "testing"

func TestBuildARPProbeLayout(t *testing.T) {
	srcMAC := [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	var dstIP uint32 = 0x0A000063 // 10.0.0.99
	var srcIP uint32 = 0x0A000001

	probe := BuildARPProbe(dstIP, srcIP, srcMAC)

	if len(probe) != ARPProbeLen {
		t.Fatalf("probe length = %d, want %d", len(probe), ARPProbeLen)
	}
	for i := 0; i < 6; i++ {
		if probe[i] != 0xFF {
			t.Fatalf("eth dst[%d] = %x, want broadcast", i, probe[i])
		}
	}
	if [6]byte(probe[6:12]) != srcMAC {
		t.Fatalf("eth src mismatch")
	}
	arp := probe[EthHeaderLen:]
	if arp[0] != 0 || arp[1] != 1 {
		t.Fatalf("HTYPE mismatch")
	}
	if arp[2] != 0x08 || arp[3] != 0x00 {
		t.Fatalf("PTYPE mismatch")
	}
	if arp[4] != 6 || arp[5] != 4 {
		t.Fatalf("HLEN/PLEN mismatch: %d/%d", arp[4], arp[5])
	}
	if arp[6] != 0 || arp[7] != 1 {
		t.Fatalf("OP mismatch")
	}
	if [6]byte(arp[8:14]) != srcMAC {
		t.Fatalf("sender MAC mismatch")
	}
	for i := 18; i < 24; i++ {
		if arp[i] != 0 {
			t.Fatalf("target MAC not zero at %d", i)
		}
	}
}

func TestBuildARPProbeDeterministic(t *testing.T) {
	mac := [6]byte{1, 2, 3, 4, 5, 6}
	a := BuildARPProbe(10, 20, mac)
	b := BuildARPProbe(10, 20, mac)
	if a != b {
		t.Fatal("BuildARPProbe is not a pure function")
	}
}
