package user

// Capability is a single bit in a role's capability mask
type Capability uint8

const (
	CapReadContent     Capability = 0 // Read posts and comments
	CapWriteContent    Capability = 1 // Create posts, comments, likes, saves, follows
	CapReport          Capability = 2 // Report content
	CapModerateContent Capability = 3 // Remove other users' content and handle reports
	CapManageUsers     Capability = 4 // Ban, unban, change roles
	CapViewStats       Capability = 5 // Admin statistics
)

var capabilityNames = map[Capability]string{
	CapReadContent:     "read_content",
	CapWriteContent:    "write_content",
	CapReport:          "report",
	CapModerateContent: "moderate_content",
	CapManageUsers:     "manage_users",
	CapViewStats:       "view_stats",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

var roleCapabilities = map[Role]uint64{
	RoleUser: maskOf(CapReadContent, CapWriteContent, CapReport),
	RoleAdmin: maskOf(CapReadContent, CapWriteContent, CapReport,
		CapModerateContent, CapManageUsers, CapViewStats),
}

// Capabilities returns the capability bitmask granted to r. Unknown roles get nothing.
func (r Role) Capabilities() uint64 {
	return roleCapabilities[r]
}

// Can reports whether r grants capability c
func (r Role) Can(c Capability) bool {
	return HasBit(r.Capabilities(), uint8(c))
}

func maskOf(caps ...Capability) uint64 {
	var mask uint64
	for _, c := range caps {
		mask = SetBit(mask, uint8(c))
	}
	return mask
}

// SetBit sets a specific bit in a bitmask
func SetBit(bitmask uint64, bit uint8) uint64 {
	if bit > 63 {
		return bitmask
	}
	return bitmask | (1 << bit)
}

// HasBit checks if a specific bit is set in a bitmask
func HasBit(bitmask uint64, bit uint8) bool {
	if bit > 63 {
		return false
	}
	return (bitmask & (1 << bit)) != 0
}
