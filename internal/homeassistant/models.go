package homeassistant

// Registry records snapshotted from Home Assistant. All of these are
// transient: every export fetches them fresh, nothing is persisted.

// Area is a physical-location grouping of devices and entities.
type Area struct {
	ID             string   `json:"area_id"`
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalized_name,omitempty"`
	Picture        string   `json:"picture,omitempty"`
	Aliases        []string `json:"aliases,omitempty"`
}

// Device is a device-registry entry. Identifiers come over the wire as
// [domain, id] pairs.
type Device struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	NameByUser   string     `json:"name_by_user,omitempty"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Model        string     `json:"model,omitempty"`
	AreaID       string     `json:"area_id,omitempty"`
	Identifiers  [][]string `json:"identifiers,omitempty"`
}

// DisplayName prefers the user-assigned name over the integration-assigned
// one.
func (d Device) DisplayName() string {
	if d.NameByUser != "" {
		return d.NameByUser
	}
	return d.Name
}

// EntityState is one entry of the state snapshot. Area membership is
// inferred from the area_id attribute, which not every integration sets;
// entities without it simply stay out of the export.
type EntityState struct {
	EntityID   string           `json:"entity_id"`
	State      string           `json:"state"`
	Attributes EntityAttributes `json:"attributes"`
}

// EntityAttributes carries the state attributes the export renders.
type EntityAttributes struct {
	FriendlyName      string `json:"friendly_name,omitempty"`
	DeviceClass       string `json:"device_class,omitempty"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	AreaID            string `json:"area_id,omitempty"`
}

// FriendlyName falls back to the entity ID when no friendly name is set.
func (e EntityState) FriendlyName() string {
	if e.Attributes.FriendlyName != "" {
		return e.Attributes.FriendlyName
	}
	return e.EntityID
}
