package dto

// DeviceRequest names a device token in a register or verify call.
type DeviceRequest struct {
	DeviceID string `json:"device_id" form:"device_id"`
}

// DeviceResponse reports one binding.
type DeviceResponse struct {
	DeviceID string `json:"device_id" yaml:"device_id"`
	Verified bool   `json:"verified" yaml:"verified"`
}

// DeviceMutationResponse is returned by register and verify.
type DeviceMutationResponse struct {
	Msg      string `json:"msg"`
	DeviceID string `json:"device_id"`
	Verified bool   `json:"verified"`
}

const (
	MsgDeviceRequested  = "device registration requested"
	MsgDeviceRegistered = "device already registered"
	MsgDeviceVerified   = "device verified"
)
