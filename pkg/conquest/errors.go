package conquest

import "errors"

// Validation errors returned synchronously at intent time. No state is
// mutated when one of these is returned; the handler layer maps them to
// short reason strings for the client.
var (
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrEliminated       = errors.New("player is eliminated")
	ErrUnknownRegion    = errors.New("unknown region")
	ErrInvalidPath      = errors.New("path is not a contiguous adjacency chain")
	ErrUnitsNotOwned    = errors.New("no selected units owned by player on region")
	ErrInsufficientFood = errors.New("insufficient food for march")
	ErrInsufficientGold = errors.New("insufficient gold")
	ErrOutOfRange       = errors.New("target out of range")
	ErrOnCooldown       = errors.New("all artillery reloading")
	ErrNotHostile       = errors.New("target region is not hostile")
	ErrNoTargets        = errors.New("no units to bombard on target region")
	ErrNotFriendly      = errors.New("region is not held by player's faction")
	ErrNoBuilder        = errors.New("no idle builder on region")
	ErrUnknownBuilding  = errors.New("unknown building")
	ErrCannotProduce    = errors.New("building cannot produce that unit")
	ErrUnitCap          = errors.New("unit cap reached")
	ErrFactionTaken     = errors.New("player already enlisted on another faction")
	ErrUnknownFaction   = errors.New("unknown faction")
	ErrPeacetime        = errors.New("attacks are blocked during peace")
	ErrWorldFull        = errors.New("no region available for a new base")
)
