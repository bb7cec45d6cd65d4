package store

import (
	"maps"
	"slices"
)

// Feature flag names.
const (
	FlagBilling               = "billing"
	FlagAuditLogs             = "auditLogs"
	FlagWebhooks              = "webhooks"
	FlagRealTimeNotifications = "realTimeNotifications"
	FlagAdvancedAnalytics     = "advancedAnalytics"
	FlagExportToPDF           = "exportToPdf"
	FlagTeamCollaboration     = "teamCollaboration"
	FlagCustomBranding        = "customBranding"
)

// DefaultFlags returns the flag values of a fresh process.
func DefaultFlags() map[string]bool {
	return map[string]bool{
		FlagBilling:               false,
		FlagAuditLogs:             false,
		FlagWebhooks:              false,
		FlagRealTimeNotifications: true,
		FlagAdvancedAnalytics:     true,
		FlagExportToPDF:           true,
		FlagTeamCollaboration:     true,
		FlagCustomBranding:        false,
	}
}

// SetFlags merges flags over the current values.
func (s *State) SetFlags(flags map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.flags, flags)
}

// FeatureEnabled reports the flag's value. Unknown flags are off.
func (s *State) FeatureEnabled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[name]
}

// Flags returns the flag names in sorted order with their values.
func (s *State) Flags() ([]string, map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.flags)), maps.Clone(s.flags)
}
