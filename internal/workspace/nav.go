package workspace

// NavItem is one entry in the sidebar.
type NavItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

var baseNav = []NavItem{
	{Label: "Dashboard", Path: "/"},
	{Label: "Inbox", Path: "/inbox"},
	{Label: "Bookings", Path: "/bookings"},
	{Label: "Forms", Path: "/forms"},
	{Label: "Inventory", Path: "/inventory"},
}

var ownerNav = []NavItem{
	{Label: "Staff", Path: "/staff"},
}

// Navigation returns the sidebar entries for role. Owners additionally see Staff;
// unknown roles get the staff view.
func Navigation(role Role) []NavItem {
	out := append([]NavItem{}, baseNav...)
	if role == RoleOwner {
		out = append(out, ownerNav...)
	}
	return out
}

// ToggleRole returns the other role.
func ToggleRole(r Role) Role {
	if r == RoleOwner {
		return RoleStaff
	}
	return RoleOwner
}
