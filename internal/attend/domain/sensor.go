package domain

// BeaconReading is one observed short-range radio beacon. RSSI is in
// dBm (more negative is weaker).
type BeaconReading struct {
	Address    string `json:"address"`
	RSSI       int    `json:"rssi"`
	ObservedAt int64  `json:"observed_at,omitempty"`
}

// NetworkIdentity is the local network the holder device is attached to.
type NetworkIdentity struct {
	SSID  string `json:"ssid"`
	BSSID string `json:"bssid"`
}

// Position is a coarse device position with its reported accuracy.
type Position struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters,omitempty"`
}

// SensorSnapshot is the point-in-time sensor bundle a holder submits
// with a scan. Every field is optional: missing data scores zero, it is
// never an error. The service never triggers hardware access itself.
type SensorSnapshot struct {
	Beacons  []BeaconReading  `json:"ble_samples,omitempty"`
	Network  *NetworkIdentity `json:"wifi,omitempty"`
	Position *Position        `json:"gps,omitempty"`
	DeviceID string           `json:"device_id,omitempty"`
}

// RoomProfile is the expected-signal registration for a physical room:
// what a device genuinely present should be able to observe.
type RoomProfile struct {
	ID             string
	Name           string
	WifiSSID       string
	WifiBSSID      string
	Beacons        []string // expected beacon addresses/UUIDs
	Latitude       float64
	Longitude      float64
	GeofenceRadius float64 // meters
}
