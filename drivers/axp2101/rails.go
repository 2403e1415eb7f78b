package axp2101

import (
	"strings"

	"amoled-bsp/x/mathx"
)

// Rail identifies one regulator output.
type Rail uint8

const (
	DC1 Rail = iota
	DC2
	DC3
	DC4
	DC5
	ALDO1
	ALDO2
	ALDO3
	ALDO4
	BLDO1
	BLDO2
	CPUSLDO
	DLDO1
	DLDO2
	numRails
)

var railNames = [numRails]string{
	"DC1", "DC2", "DC3", "DC4", "DC5",
	"ALDO1", "ALDO2", "ALDO3", "ALDO4",
	"BLDO1", "BLDO2", "CPUSLDO", "DLDO1", "DLDO2",
}

func (r Rail) String() string {
	if r < numRails {
		return railNames[r]
	}
	return "rail?"
}

// ParseRail maps a rail name (case-insensitive) to its Rail.
func ParseRail(s string) (Rail, bool) {
	for i, n := range railNames {
		if strings.EqualFold(n, s) {
			return Rail(i), true
		}
	}
	return 0, false
}

// band is one linear segment of a voltage field.
type band struct{ lo, hi, step uint16 }

type railSpec struct {
	enReg, enBit byte
	vReg, vMask  byte
	bands        []band
}

var (
	ldoBands    = []band{{500, 3500, 100}}
	lowLDOBands = []band{{500, 1400, 50}}
	dc23Bands   = []band{{500, 1200, 10}, {1220, 1540, 20}}
)

var rails = [numRails]railSpec{
	DC1:     {regDCOnOff, 0, regDC1Volt, 0x1F, []band{{1500, 3400, 100}}},
	DC2:     {regDCOnOff, 1, regDC2Volt, 0x7F, dc23Bands},
	DC3:     {regDCOnOff, 2, regDC3Volt, 0x7F, []band{{500, 1200, 10}, {1220, 1540, 20}, {1600, 3400, 100}}},
	DC4:     {regDCOnOff, 3, regDC4Volt, 0x7F, []band{{500, 1200, 10}, {1220, 1840, 20}}},
	DC5:     {regDCOnOff, 4, regDC5Volt, 0x1F, []band{{1400, 3700, 100}}},
	ALDO1:   {regLDOOnOff0, 0, regALDO1Volt, 0x1F, ldoBands},
	ALDO2:   {regLDOOnOff0, 1, regALDO2Volt, 0x1F, ldoBands},
	ALDO3:   {regLDOOnOff0, 2, regALDO3Volt, 0x1F, ldoBands},
	ALDO4:   {regLDOOnOff0, 3, regALDO4Volt, 0x1F, ldoBands},
	BLDO1:   {regLDOOnOff0, 4, regBLDO1Volt, 0x1F, ldoBands},
	BLDO2:   {regLDOOnOff0, 5, regBLDO2Volt, 0x1F, ldoBands},
	CPUSLDO: {regLDOOnOff0, 6, regCPUSVolt, 0x1F, lowLDOBands},
	DLDO1:   {regLDOOnOff0, 7, regDLDO1Volt, 0x1F, []band{{500, 3400, 100}}},
	DLDO2:   {regLDOOnOff1, 0, regDLDO2Volt, 0x1F, lowLDOBands},
}

// code returns the register field for mV, walking the bands in order. The
// field value continues across band boundaries.
func (s railSpec) code(mV uint16) (byte, bool) {
	var base uint16
	for _, b := range s.bands {
		if idx, ok := mathx.StepIndex(mV, b.lo, b.hi, b.step); ok {
			return byte(base + idx), true
		}
		base += (b.hi-b.lo)/b.step + 1
	}
	return 0, false
}

// millivolts inverts code.
func (s railSpec) millivolts(code byte) (uint16, bool) {
	c := uint16(code & s.vMask)
	for _, b := range s.bands {
		n := (b.hi-b.lo)/b.step + 1
		if c < n {
			return b.lo + c*b.step, true
		}
		c -= n
	}
	return 0, false
}
