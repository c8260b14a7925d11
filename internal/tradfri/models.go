package tradfri

// Gateway resource paths and attribute keys
const (
	pathDevices = "15001"

	attrLightControl = "3311"
	attrOnOff        = "5850"
	attrDimmer       = "5851"
	attrColorHex     = "5706"
)

// Device is a device as reported by the gateway.
type Device struct {
	ID           int            `json:"9003"`
	Name         string         `json:"9001"`
	LightControl []LightControl `json:"3311,omitempty"`
}

// LightControl is one entry of a device's light-control list.
type LightControl struct {
	OnOff    *int   `json:"5850,omitempty"`
	Dimmer   *int   `json:"5851,omitempty"`
	ColorHex string `json:"5706,omitempty"`
}

// IsLight reports whether the device has light capability.
func (d Device) IsLight() bool {
	return len(d.LightControl) > 0
}

// Light returns the state of the device's first light.
func (d Device) Light() LightState {
	if !d.IsLight() {
		return LightState{}
	}
	lc := d.LightControl[0]
	st := LightState{Hex: lc.ColorHex}
	if lc.OnOff != nil {
		st.On = *lc.OnOff == 1
	}
	if lc.Dimmer != nil {
		st.Dimmer = *lc.Dimmer
	}
	return st
}

// LightState is the cached view of a Tradfri light.
type LightState struct {
	On     bool
	Dimmer int
	Hex    string
}
