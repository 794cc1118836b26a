// File: bootstrap/program.go
// Author: momentics <momentics@gmail.com>
//
// Builds the in-process XDP program bytecode that steers candidate UDP
// traffic into the XSKMAP. The program is assembled at startup with
// cilium/ebpf's asm builder rather than loaded from a precompiled object
// file, so installation needs nothing beyond this binary and a kernel new
// enough to verify the resulting bytecode.

package bootstrap

import "github.com/cilium/ebpf/asm"

const (
	ethHdrLen     = 14
	ethTypeOff    = 12
	ipProtoOff    = ethHdrLen + 9
	minIPHdrLen   = 20
	udpDstPortOff = ethHdrLen + minIPHdrLen + 2
	xdpPass       = 2 // XDP_PASS
)

// redirectProgram parses Ethernet/IPv4/UDP headers in place, looks the
// destination port up in portMap, and on a hit redirects the frame into
// xsksMap keyed by the receiving queue index. Anything that fails a parse
// step or misses the port lookup falls through to XDP_PASS.
func redirectProgram(portMapFD, xsksMapFD int) asm.Instructions {
	return asm.Instructions{
		asm.Mov.Reg(asm.R6, asm.R1), // r6 = ctx

		asm.LoadMem(asm.R2, asm.R6, 0, asm.Word), // r2 = data
		asm.LoadMem(asm.R3, asm.R6, 4, asm.Word), // r3 = data_end

		asm.Mov.Reg(asm.R1, asm.R2),
		asm.Add.Imm(asm.R1, udpDstPortOff+2),
		asm.JGT.Reg(asm.R1, asm.R3, "pass"),

		asm.LoadMem(asm.R1, asm.R2, ethTypeOff, asm.Byte),
		asm.JNE.Imm(asm.R1, 0x08, "pass"),
		asm.LoadMem(asm.R1, asm.R2, ethTypeOff+1, asm.Byte),
		asm.JNE.Imm(asm.R1, 0x00, "pass"), // not IPv4

		asm.LoadMem(asm.R1, asm.R2, ipProtoOff, asm.Byte),
		asm.JNE.Imm(asm.R1, 17, "pass"), // not UDP

		// Rebuild the big-endian wire port as a host-order value so the
		// key matches portMap.Put(uint16) on any host byte order.
		asm.LoadMem(asm.R1, asm.R2, udpDstPortOff, asm.Byte),
		asm.LSh.Imm(asm.R1, 8),
		asm.LoadMem(asm.R4, asm.R2, udpDstPortOff+1, asm.Byte),
		asm.Or.Reg(asm.R1, asm.R4),
		asm.StoreMem(asm.RFP, -4, asm.R1, asm.Half),
		asm.Mov.Reg(asm.R2, asm.RFP),
		asm.Add.Imm(asm.R2, -4),
		asm.LoadMapPtr(asm.R1, portMapFD),
		asm.FnMapLookupElem.Call(),
		asm.JEq.Imm(asm.R0, 0, "pass"),

		asm.LoadMapPtr(asm.R1, xsksMapFD),
		asm.LoadMem(asm.R2, asm.R6, 16, asm.Word), // rx_queue_index
		asm.Mov.Imm(asm.R3, 0),
		asm.FnRedirectMap.Call(),
		asm.Return(),

		asm.Mov.Imm(asm.R0, xdpPass).WithSymbol("pass"),
		asm.Return(),
	}
}
