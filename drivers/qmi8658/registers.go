// Package qmi8658 drives the QMI8658 six-axis inertial sensor.
package qmi8658

const (
	// 7-bit I2C addresses, selected by SA0.
	AddressHigh = 0x6B // default
	AddressLow  = 0x6A

	whoAmI = 0x05

	regWhoAmI = 0x00
	regCtrl1  = 0x02 // serial interface
	regCtrl2  = 0x03 // accel range | ODR
	regCtrl3  = 0x04 // gyro range | ODR
	regCtrl5  = 0x06 // low-pass filters
	regCtrl7  = 0x08 // sensor enable
	regStatus = 0x2E // STATUS0
	regTSLow  = 0x30 // timestamp, temperature, accel, gyro follow

	ctrl1AutoInc = 1 << 6

	ctrl5AccelLPFEn = 1 << 0
	ctrl5GyroLPFEn  = 1 << 4

	ctrl7Accel = 1 << 0
	ctrl7Gyro  = 1 << 1

	status0Accel = 1 << 0
	status0Gyro  = 1 << 1

	// 3 timestamp + 2 temperature + 6 accel + 6 gyro
	sampleLen = 17
)
