// Package axp2101 drives the AXP2101 power-management chip: rail control,
// interrupt masking, charger parameters and ADC telemetry.
package axp2101

const (
	// 7-bit I2C address.
	Address = 0x34

	chipID = 0x4A

	// Status
	regStatus1 = 0x00 // bit5 VBUS good, bit3 battery present
	regStatus2 = 0x01 // bits6:5 charge direction, bit3 VBUS not present
	regChipID  = 0x03

	// ADC
	regADCEnable = 0x30
	regVBatH     = 0x34
	regVBusH     = 0x38
	regVSysH     = 0x3A
	regTempH     = 0x3C
	regBattPct   = 0xA4

	// IRQ: three enable and three status bytes, LSB first.
	regIRQEnable = 0x40
	regIRQStatus = 0x48

	// Charger
	regPrechargeCurr = 0x61
	regChargeCurr    = 0x62
	regTermCurr      = 0x63
	regChargeVolt    = 0x64

	// Rails
	regDCOnOff   = 0x80
	regDC1Volt   = 0x82
	regDC2Volt   = 0x83
	regDC3Volt   = 0x84
	regDC4Volt   = 0x85
	regDC5Volt   = 0x86
	regLDOOnOff0 = 0x90
	regLDOOnOff1 = 0x91
	regALDO1Volt = 0x92
	regALDO2Volt = 0x93
	regALDO3Volt = 0x94
	regALDO4Volt = 0x95
	regBLDO1Volt = 0x96
	regBLDO2Volt = 0x97
	regCPUSVolt  = 0x98
	regDLDO1Volt = 0x99
	regDLDO2Volt = 0x9A
)

// ADC channel enable bits (regADCEnable).
const (
	adcBattVoltage = 1 << 0
	adcTSPin       = 1 << 1
	adcVbusVoltage = 1 << 2
	adcSysVoltage  = 1 << 3
	adcDieTemp     = 1 << 4
)

const (
	status1VbusGood   = 1 << 5
	status1BattExists = 1 << 3
	status2VbusAbsent = 1 << 3
)
