// Package models defines the persisted data structures for the fleet fines service.
package models

import "time"

// Fine is one transit citation synchronized from the Globus source into the
// local store. Key is the source AIT number when the source supplies one, or a
// deterministic fallback derived from vehicle, infraction and emission time so
// repeated syncs of the same logical event hit the same row.
type Fine struct {
	Key            string     `json:"key"`
	EmissionDate   time.Time  `json:"emissionDate"`
	LodgedAt       *time.Time `json:"lodgedAt,omitempty"`
	Amount         float64    `json:"amount"`
	VehicleCode    int64      `json:"vehicleCode"`
	VehiclePrefix  string     `json:"vehiclePrefix"`
	VehiclePlate   string     `json:"vehiclePlate"`
	InfractionCode string     `json:"infractionCode"`
	InfractionDesc string     `json:"infractionDesc"`
	Points         int        `json:"points"`
	AgentCode      int64      `json:"agentCode"`
	AgentName      string     `json:"agentName"`
	AgentBadge     string     `json:"agentBadge"`
	LineCode       int64      `json:"lineCode"`
	Location       string     `json:"location"`
	Remarks        string     `json:"remarks"`
	Classification string     `json:"classification"`
	SyncedAt       time.Time  `json:"syncedAt"`
}

// FineFilters narrows a fine listing. Zero values mean "no filter".
type FineFilters struct {
	VehiclePrefix  string
	AgentCode      int64
	Location       string
	InfractionCode string
	LineCode       int64
	Classification string
	DateFrom       *time.Time
	DateTo         *time.Time
	OrderBy        string
	OrderDir       string
	Limit          int
	Offset         int
}
