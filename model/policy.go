package model

// PolicyState is the lifecycle state of a conditional access policy.
type PolicyState string

const (
	StateEnabled    PolicyState = "enabled"
	StateDisabled   PolicyState = "disabled"
	StateReportOnly PolicyState = "enabledForReportingButNotEnforced"
)

// SourceFormat tags which adapter produced a canonical policy.
type SourceFormat string

const (
	FormatJSON SourceFormat = "json"
	FormatHCL  SourceFormat = "hcl"
)

// AllSentinel is the value both formats use to mean "every user / app /
// location", modulo casing.
const AllSentinel = "All"

// CanonicalPolicy is the format-independent representation both adapters
// normalize into. Instances are built once per run and never mutated after
// the adapter returns them. Every slice-valued field has set semantics:
// element order never affects comparison.
type CanonicalPolicy struct {
	ID              string           `json:"id,omitempty"`
	DisplayName     string           `json:"display_name"`
	State           PolicyState      `json:"state"`
	Conditions      Conditions       `json:"conditions"`
	GrantControls   *GrantControls   `json:"grant_controls,omitempty"`
	SessionControls *SessionControls `json:"session_controls,omitempty"`
	SourceFormat    SourceFormat     `json:"source_format"`
	SourceFile      string           `json:"source_file,omitempty"`

	// Extra holds unrecognized source fields. They ride along for
	// reporting but never participate in comparison.
	Extra map[string]any `json:"extra,omitempty"`
}

// Key returns the identifier used for deterministic ordering and for
// ByIdentifier matching: the provenance id when present, else the name.
func (p *CanonicalPolicy) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.DisplayName
}

// Conditions is the "who, which app, from where" side of a policy.
type Conditions struct {
	Applications     ApplicationConditions `json:"applications"`
	Users            UserConditions        `json:"users"`
	ClientAppTypes   []string              `json:"client_app_types,omitempty"`
	Locations        LocationConditions    `json:"locations"`
	Platforms        PlatformConditions    `json:"platforms"`
	SignInRiskLevels []string              `json:"sign_in_risk_levels,omitempty"`
	UserRiskLevels   []string              `json:"user_risk_levels,omitempty"`
	DeviceFilter     *DeviceFilter         `json:"device_filter,omitempty"`
}

type ApplicationConditions struct {
	Include            []string `json:"include,omitempty"`
	Exclude            []string `json:"exclude,omitempty"`
	IncludeUserActions []string `json:"include_user_actions,omitempty"`
}

type UserConditions struct {
	IncludeUsers  []string `json:"include_users,omitempty"`
	ExcludeUsers  []string `json:"exclude_users,omitempty"`
	IncludeGroups []string `json:"include_groups,omitempty"`
	ExcludeGroups []string `json:"exclude_groups,omitempty"`
	IncludeRoles  []string `json:"include_roles,omitempty"`
	ExcludeRoles  []string `json:"exclude_roles,omitempty"`
}

type LocationConditions struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

type PlatformConditions struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// DeviceFilter scopes a policy to devices matching a filter rule.
type DeviceFilter struct {
	Mode string `json:"mode"` // "include" or "exclude"
	Rule string `json:"rule"`
}

// GrantControls is the set of required controls with its combinator.
type GrantControls struct {
	Operator                    string   `json:"operator"` // "AND" or "OR"
	BuiltInControls             []string `json:"built_in_controls,omitempty"`
	CustomAuthenticationFactors []string `json:"custom_authentication_factors,omitempty"`
	TermsOfUse                  []string `json:"terms_of_use,omitempty"`
}

// SessionControls are post-authentication session restrictions.
type SessionControls struct {
	SignInFrequency                 *SignInFrequency   `json:"sign_in_frequency,omitempty"`
	PersistentBrowser               *PersistentBrowser `json:"persistent_browser,omitempty"`
	ApplicationEnforcedRestrictions *Toggle            `json:"application_enforced_restrictions,omitempty"`
	CloudAppSecurity                *CloudAppSecurity  `json:"cloud_app_security,omitempty"`
}

// SignInFrequency forces re-authentication every Value Units. When the
// declared value is not a literal (a variable reference in the text
// format), Expression carries the raw source text and Value is zero.
type SignInFrequency struct {
	Enabled    bool   `json:"enabled"`
	Value      int    `json:"value"`
	Unit       string `json:"unit"` // days, hours, minutes or seconds
	Expression string `json:"expression,omitempty"`
}

type PersistentBrowser struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode"` // "always" or "never"
}

// Toggle is a single boolean session setting. Expression is set instead
// of Enabled when the declared value is not a literal.
type Toggle struct {
	Enabled    bool   `json:"enabled"`
	Expression string `json:"expression,omitempty"`
}

type CloudAppSecurity struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode"`
}
