// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Ethernet/IPv4/UDP header parsing helpers used by the classifier and
// egress pipeline. All functions are allocation-free views over a
// caller-owned byte slice.

package protocol

import "encoding/binary"

// IsIPv4UDP reports whether buf looks like an Ethernet frame carrying an
// IPv4/UDP payload, checking the exact 3-byte discriminant spec §4.5 step
// 2 names: ethertype at offsets 12-13 and IP protocol at offset 23.
func IsIPv4UDP(buf []byte) bool {
	if len(buf) <= IPProtoOff {
		return false
	}
	ethType := binary.BigEndian.Uint16(buf[EthTypeOff:])
	return ethType == EthTypeIPv4 && buf[IPProtoOff] == IPProtoUDP
}

// IHL returns the IPv4 header length in bytes, read from the low nibble
// of the byte immediately following the Ethernet header.
func IHL(buf []byte) int {
	return int(buf[IHLOff]&0x0F) * 4
}

// UDPOffset returns the byte offset of the UDP header given an IPv4
// header length in bytes.
func UDPOffset(ihl int) int {
	return EthHeaderLen + ihl
}

// SrcIP reads the big-endian source IPv4 address at its fixed offset.
func SrcIP(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf[IPSrcOff:])
}

// DstIP reads the big-endian destination IPv4 address at its fixed offset.
func DstIP(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf[IPDstOff:])
}

// UDPPorts reads the big-endian source/destination ports from a UDP
// header starting at udpOff within buf.
func UDPPorts(buf []byte, udpOff int) (srcPort, dstPort uint16) {
	srcPort = binary.BigEndian.Uint16(buf[udpOff+UDPSrcPortOff:])
	dstPort = binary.BigEndian.Uint16(buf[udpOff+UDPDstPortOff:])
	return
}

// IsLoopbackIP reports whether ip is within 127.0.0.0/8.
func IsLoopbackIP(ip uint32) bool {
	return ip>>24 == 127
}

// IsMulticastIP reports whether ip is in the 224.0.0.0/4 multicast range.
func IsMulticastIP(ip uint32) bool {
	return ip>>28 == 0xE
}

// IsBroadcastIP reports whether ip is the limited broadcast address.
func IsBroadcastIP(ip uint32) bool {
	return ip == 0xFFFFFFFF
}

// SetEthDst overwrites the 6-byte destination MAC at the start of buf.
func SetEthDst(buf []byte, mac [6]byte) {
	copy(buf[0:6], mac[:])
}

// SetEthSrc overwrites the 6-byte source MAC following the destination MAC.
func SetEthSrc(buf []byte, mac [6]byte) {
	copy(buf[6:12], mac[:])
}

// ZeroEthAddrs zeroes both the destination and source MAC of buf, used
// for loopback-routed egress frames per spec §4.6.
func ZeroEthAddrs(buf []byte) {
	for i := 0; i < 12 && i < len(buf); i++ {
		buf[i] = 0
	}
}
