// Package protocol
// Author: momentics <momentics@gmail.com>
//
// ARP probe construction, a pure function per spec §8: identical inputs
// always produce a bit-identical 60-byte padded Ethernet+ARP frame.

package protocol

import "encoding/binary"

const (
	arpHTypeEthernet = 1
	arpPTypeIPv4      = 0x0800
	arpHLenEthernet   = 6
	arpPLenIPv4       = 4
	arpOpRequest      = 1
)

// BuildARPProbe constructs an Ethernet-framed ARP request asking "who has
// dstIP", sent from srcMAC/srcIP, per spec §4.4: ARPHRD=1, PTYPE=0x0800,
// HLEN=6, PLEN=4, OP=1, target MAC zeroed, target IP set to dstIP,
// padded to 60 bytes.
func BuildARPProbe(dstIP, srcIP uint32, srcMAC [6]byte) [ARPProbeLen]byte {
	var out [ARPProbeLen]byte

	// Ethernet header: broadcast destination, our source MAC, ARP ethertype.
	for i := 0; i < 6; i++ {
		out[i] = 0xFF
	}
	copy(out[6:12], srcMAC[:])
	binary.BigEndian.PutUint16(out[12:14], 0x0806)

	arp := out[EthHeaderLen:]
	binary.BigEndian.PutUint16(arp[0:2], arpHTypeEthernet)
	binary.BigEndian.PutUint16(arp[2:4], arpPTypeIPv4)
	arp[4] = arpHLenEthernet
	arp[5] = arpPLenIPv4
	binary.BigEndian.PutUint16(arp[6:8], arpOpRequest)
	copy(arp[8:14], srcMAC[:])
	binary.BigEndian.PutUint32(arp[14:18], srcIP)
	// target MAC (arp[18:24]) left zero
	binary.BigEndian.PutUint32(arp[24:28], dstIP)
	// remaining bytes are zero padding up to ARPProbeLen

	return out
}
