package config

// AuthzConfig contains authorization rule configuration.
type AuthzConfig struct {
	// GroupRights maps directory groups to the rights they confer, as a
	// semicolon-separated table of group:right|right entries, e.g.
	// "finance-team:read|write;auditors:read". Empty means group membership
	// grants nothing.
	GroupRights string `env:"AUTHZ_GROUP_RIGHTS" envDefault:""`
}
