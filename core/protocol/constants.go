// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Ethernet/IPv4/UDP wire-layout constants.

package protocol

const (
	// MTU is the fixed chunk size backing every ring's data region.
	MTU = 2048

	EthHeaderLen = 14
	EthTypeOff   = 12 // 2-byte big-endian ethertype
	EthTypeIPv4  = 0x0800

	IHLOff      = EthHeaderLen // low nibble of this byte is IHL in 32-bit words
	IPProtoOff  = 23           // IP protocol number
	IPProtoUDP  = 0x11
	IPSrcOff    = 26 // 4-byte big-endian source IP, relative to frame start
	IPDstOff    = 30 // 4-byte big-endian destination IP

	UDPHeaderLen  = 8
	UDPSrcPortOff = 0 // relative to start of UDP header
	UDPDstPortOff = 2

	// ARPProbeLen is the padded Ethernet-frame length of an ARP request
	// as emitted by BuildARPProbe: 14 (Ethernet) + 28 (ARP) padded to 60.
	ARPProbeLen = 60
)
