package domain

// Availability is the externally managed state of a venue or asset. The
// engine only ever reads it.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityMaintenance Availability = "maintenance"
	AvailabilityClosed      Availability = "closed"
)

// ResourceKind distinguishes venues from assets in the resources collection.
type ResourceKind string

const (
	ResourceVenue ResourceKind = "venue"
	ResourceAsset ResourceKind = "asset"
)

// Resource is a bookable venue or piece of equipment. Only available
// resources may be attached to a new or edited activity; resources that
// become unavailable later are not retroactively detached.
type Resource struct {
	ID           string
	Name         string
	Kind         ResourceKind
	Availability Availability
}

// Bookable reports whether the resource may be attached to an activity.
func (r Resource) Bookable() bool {
	return r.Availability == AvailabilityAvailable
}
