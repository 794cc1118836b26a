package bootstrap

import "testing"

func TestRedirectProgramEndsWithXDPPassFallthrough(t *testing.T) {
	insns := redirectProgram(3, 4)
	if len(insns) == 0 {
		t.Fatal("expected a non-empty instruction stream")
	}

	var sawPassLabel bool
	for _, ins := range insns {
		if ins.Symbol() == "pass" {
			sawPassLabel = true
		}
	}
	if !sawPassLabel {
		t.Fatal("expected a \"pass\" symbol for the XDP_PASS fallthrough")
	}
}
