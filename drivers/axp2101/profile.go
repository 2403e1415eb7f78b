package axp2101

// RailSetting is one rail to program and switch on.
type RailSetting struct {
	Rail       Rail
	MilliVolts uint16
}

// Profile is a complete power configuration: rails to switch off, rails to
// program and switch on (in order), the interrupt set and charger limits.
type Profile struct {
	Off           []Rail
	On            []RailSetting
	IRQ           IRQ
	PrechargeMA   uint16
	ChargeMA      uint16
	TerminationMA uint16
	ChargeVoltage ChargeVoltage
}

// DefaultProfile is the 1.8" AMOLED touch board power-up: everything except
// DC1 off, then the panel, touch and sensor rails brought up in board order.
func DefaultProfile() Profile {
	return Profile{
		Off: []Rail{DC2, DC3, DC4, DC5, ALDO1, ALDO2, ALDO3, ALDO4, BLDO1, BLDO2, CPUSLDO, DLDO1, DLDO2},
		On: []RailSetting{
			{DC3, 3300},
			{DC1, 3300},
			{ALDO1, 1800},
			{ALDO2, 2800},
			{ALDO4, 3000},
			{ALDO3, 3300},
			{BLDO1, 3300},
			{BLDO2, 3300},
		},
		IRQ: IRQBatteryInsert | IRQBatteryRemove | IRQVbusInsert | IRQVbusRemove |
			IRQPowerKeyShort | IRQPowerKeyLong | IRQChargeDone | IRQChargeStart,
		PrechargeMA:   50,
		ChargeMA:      200,
		TerminationMA: 25,
		ChargeVoltage: Charge4V1,
	}
}

// Apply programs p. It stops at the first failing register access; rails
// already switched stay as they are.
func (d *Device) Apply(p Profile) error {
	for _, r := range p.Off {
		if err := d.DisableRail(r); err != nil {
			return err
		}
	}
	for _, s := range p.On {
		if err := d.SetRailVoltage(s.Rail, s.MilliVolts); err != nil {
			return err
		}
		if err := d.EnableRail(s.Rail); err != nil {
			return err
		}
	}
	if err := d.DisableIRQ(IRQAll); err != nil {
		return err
	}
	if err := d.ClearIRQ(IRQAll); err != nil {
		return err
	}
	if err := d.EnableIRQ(p.IRQ); err != nil {
		return err
	}
	if err := d.SetPrechargeCurrent(p.PrechargeMA); err != nil {
		return err
	}
	if err := d.SetChargeCurrent(p.ChargeMA); err != nil {
		return err
	}
	if err := d.SetTerminationCurrent(p.TerminationMA); err != nil {
		return err
	}
	return d.SetChargeTargetVoltage(p.ChargeVoltage)
}
