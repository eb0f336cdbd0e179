package adapter

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/thefaftek-git/CA-Scanner-sub006/model"
)

// JSONAdapter normalizes Graph API policy exports. Keys follow the
// export's PascalCase convention; each is mapped into the canonical tree
// through the alias tables below. Fields outside the tables are preserved
// in the policy's Extra bag and never compared.
type JSONAdapter struct{}

func NewJSONAdapter() *JSONAdapter {
	return &JSONAdapter{}
}

func (a *JSONAdapter) Format() model.SourceFormat { return model.FormatJSON }

func (a *JSONAdapter) Extensions() []string { return []string{".json"} }

// knownPolicyFields are the top-level export keys the canonical model
// consumes. Everything else lands in Extra.
var knownPolicyFields = map[string]bool{
	"Id":              true,
	"DisplayName":     true,
	"State":           true,
	"Conditions":      true,
	"GrantControls":   true,
	"SessionControls": true,
}

// Normalize accepts a single policy object, an array of policies, or the
// Graph list envelope {"Value": [...]}.
func (a *JSONAdapter) Normalize(file string, content []byte) ([]model.CanonicalPolicy, error) {
	var raw any
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding policy JSON")
	}

	objects, err := policyObjects(raw)
	if err != nil {
		return nil, err
	}

	policies := make([]model.CanonicalPolicy, 0, len(objects))
	for _, obj := range objects {
		policies = append(policies, a.buildPolicy(file, obj))
	}
	return policies, nil
}

func policyObjects(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		if inner, ok := v["Value"].([]any); ok {
			return objectSlice(inner)
		}
		return []map[string]any{v}, nil
	case []any:
		return objectSlice(v)
	}
	return nil, errors.Errorf("unexpected top-level JSON type %T", raw)
}

func objectSlice(items []any) ([]map[string]any, error) {
	objects := make([]map[string]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errors.Errorf("policy list contains non-object element %T", item)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (a *JSONAdapter) buildPolicy(file string, obj map[string]any) model.CanonicalPolicy {
	policy := model.CanonicalPolicy{
		ID:           jsonString(obj, "Id"),
		DisplayName:  jsonString(obj, "DisplayName"),
		State:        NormalizeState(jsonString(obj, "State")),
		SourceFormat: model.FormatJSON,
		SourceFile:   file,
	}

	if conditions, ok := obj["Conditions"].(map[string]any); ok {
		policy.Conditions = buildConditions(conditions)
	}
	if grant, ok := obj["GrantControls"].(map[string]any); ok {
		policy.GrantControls = &model.GrantControls{
			Operator:                    jsonString(grant, "Operator"),
			BuiltInControls:             jsonStringSlice(grant, "BuiltInControls"),
			CustomAuthenticationFactors: jsonStringSlice(grant, "CustomAuthenticationFactors"),
			TermsOfUse:                  jsonStringSlice(grant, "TermsOfUse"),
		}
	}
	if session, ok := obj["SessionControls"].(map[string]any); ok {
		policy.SessionControls = buildSessionControls(session)
	}

	for key, value := range obj {
		if knownPolicyFields[key] {
			continue
		}
		if policy.Extra == nil {
			policy.Extra = make(map[string]any)
		}
		policy.Extra[key] = value
	}

	return policy
}

func buildConditions(raw map[string]any) model.Conditions {
	conditions := model.Conditions{
		ClientAppTypes:   jsonStringSlice(raw, "ClientAppTypes"),
		SignInRiskLevels: jsonStringSlice(raw, "SignInRiskLevels"),
		UserRiskLevels:   jsonStringSlice(raw, "UserRiskLevels"),
	}

	if apps, ok := raw["Applications"].(map[string]any); ok {
		conditions.Applications = model.ApplicationConditions{
			Include:            jsonStringSlice(apps, "IncludeApplications"),
			Exclude:            jsonStringSlice(apps, "ExcludeApplications"),
			IncludeUserActions: jsonStringSlice(apps, "IncludeUserActions"),
		}
	}
	if users, ok := raw["Users"].(map[string]any); ok {
		conditions.Users = model.UserConditions{
			IncludeUsers:  jsonStringSlice(users, "IncludeUsers"),
			ExcludeUsers:  jsonStringSlice(users, "ExcludeUsers"),
			IncludeGroups: jsonStringSlice(users, "IncludeGroups"),
			ExcludeGroups: jsonStringSlice(users, "ExcludeGroups"),
			IncludeRoles:  jsonStringSlice(users, "IncludeRoles"),
			ExcludeRoles:  jsonStringSlice(users, "ExcludeRoles"),
		}
	}
	if locations, ok := raw["Locations"].(map[string]any); ok {
		conditions.Locations = model.LocationConditions{
			Include: jsonStringSlice(locations, "IncludeLocations"),
			Exclude: jsonStringSlice(locations, "ExcludeLocations"),
		}
	}
	if platforms, ok := raw["Platforms"].(map[string]any); ok {
		conditions.Platforms = model.PlatformConditions{
			Include: jsonStringSlice(platforms, "IncludePlatforms"),
			Exclude: jsonStringSlice(platforms, "ExcludePlatforms"),
		}
	}
	if devices, ok := raw["Devices"].(map[string]any); ok {
		if filter, ok := devices["DeviceFilter"].(map[string]any); ok {
			conditions.DeviceFilter = &model.DeviceFilter{
				Mode: jsonString(filter, "Mode"),
				Rule: jsonString(filter, "Rule"),
			}
		}
	}

	return conditions
}

// buildSessionControls maps the export's nested object-with-IsEnabled
// shape onto the flat canonical session structs. The Terraform adapter
// maps its flattened booleans onto the same structs, so by the time the
// comparator runs, both formats present one shape.
func buildSessionControls(raw map[string]any) *model.SessionControls {
	session := &model.SessionControls{}

	if freq, ok := raw["SignInFrequency"].(map[string]any); ok {
		session.SignInFrequency = &model.SignInFrequency{
			Enabled: jsonBool(freq, "IsEnabled"),
			Value:   jsonInt(freq, "Value"),
			Unit:    jsonString(freq, "Type"),
		}
	}
	if browser, ok := raw["PersistentBrowser"].(map[string]any); ok {
		session.PersistentBrowser = &model.PersistentBrowser{
			Enabled: jsonBool(browser, "IsEnabled"),
			Mode:    jsonString(browser, "Mode"),
		}
	}
	if restrictions, ok := raw["ApplicationEnforcedRestrictions"].(map[string]any); ok {
		session.ApplicationEnforcedRestrictions = &model.Toggle{
			Enabled: jsonBool(restrictions, "IsEnabled"),
		}
	}
	if cas, ok := raw["CloudAppSecurity"].(map[string]any); ok {
		session.CloudAppSecurity = &model.CloudAppSecurity{
			Enabled: jsonBool(cas, "IsEnabled"),
			Mode:    jsonString(cas, "CloudAppSecurityType"),
		}
	}

	if session.SignInFrequency == nil && session.PersistentBrowser == nil &&
		session.ApplicationEnforcedRestrictions == nil && session.CloudAppSecurity == nil {
		return nil
	}
	return session
}

func jsonString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func jsonStringSlice(m map[string]any, key string) []string {
	items, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func jsonBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func jsonInt(m map[string]any, key string) int {
	// encoding/json decodes numbers into float64.
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return 0
}
