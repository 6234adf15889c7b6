package core

// Permission names granted by the vendor platform. The portal never invents
// or mutates these; it only checks membership.
const (
	PermViewLeads       = "view_leads"
	PermViewAnalytics   = "view_analytics"
	PermManageLocations = "manage_locations"
	PermManagePricing   = "manage_pricing"
	PermManageProfile   = "manage_profile"
)

// SectionKey identifies one content panel inside the vendor portal shell.
type SectionKey string

const (
	SectionDashboard SectionKey = "dashboard"
	SectionProfile   SectionKey = "profile"
	SectionLeads     SectionKey = "leads"
	SectionAnalytics SectionKey = "analytics"
	SectionLocations SectionKey = "locations"
	SectionPricing   SectionKey = "pricing"
)

// NavigationEntry describes one sidebar item. RequiredPermission empty means
// always visible.
type NavigationEntry struct {
	Key                SectionKey
	Label              string
	Icon               string
	RequiredPermission string
}

// portalNavigation is the static sidebar. Order is render order.
var portalNavigation = []NavigationEntry{
	{Key: SectionDashboard, Label: "Dashboard", Icon: "home"},
	{Key: SectionProfile, Label: "Profile", Icon: "user"},
	{Key: SectionLeads, Label: "Leads", Icon: "inbox", RequiredPermission: PermViewLeads},
	{Key: SectionAnalytics, Label: "Analytics", Icon: "chart", RequiredPermission: PermViewAnalytics},
	{Key: SectionLocations, Label: "Locations", Icon: "map", RequiredPermission: PermManageLocations},
	{Key: SectionPricing, Label: "Pricing", Icon: "tag", RequiredPermission: PermManagePricing},
}

// HasPermission reports whether required is satisfied by the granted set.
// An empty requirement is always satisfied. Total over its inputs.
func HasPermission(granted []string, required string) bool {
	if required == "" {
		return true
	}
	for _, p := range granted {
		if p == required {
			return true
		}
	}
	return false
}

// VisibleNavigation filters the static sidebar against the granted set.
func VisibleNavigation(granted []string) []NavigationEntry {
	out := make([]NavigationEntry, 0, len(portalNavigation))
	for _, e := range portalNavigation {
		if HasPermission(granted, e.RequiredPermission) {
			out = append(out, e)
		}
	}
	return out
}

// NormalizeSection maps a raw section parameter to a known key, falling back
// to the dashboard for unknown or missing values. A known section whose
// permission is not granted also falls back to the dashboard.
func NormalizeSection(raw string, granted []string) SectionKey {
	for _, e := range portalNavigation {
		if string(e.Key) == raw {
			if HasPermission(granted, e.RequiredPermission) {
				return e.Key
			}
			return SectionDashboard
		}
	}
	return SectionDashboard
}
