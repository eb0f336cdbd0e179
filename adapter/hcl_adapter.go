package adapter

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"

	"github.com/thefaftek-git/CA-Scanner-sub006/model"
)

// policyResourceType is the one resource shape this adapter understands.
// Every other block in a file (variables, locals, outputs, providers,
// unrelated resources) is ignored.
const policyResourceType = "azuread_conditional_access_policy"

// HCLAdapter normalizes Terraform policy declarations. Expressions are
// never evaluated: literals are decoded, and anything referencing a
// variable or function is captured as its source text and compared as an
// opaque string.
type HCLAdapter struct{}

func NewHCLAdapter() *HCLAdapter {
	return &HCLAdapter{}
}

func (a *HCLAdapter) Format() model.SourceFormat { return model.FormatHCL }

func (a *HCLAdapter) Extensions() []string { return []string{".tf"} }

func (a *HCLAdapter) Normalize(file string, content []byte) ([]model.CanonicalPolicy, error) {
	parser := hclparse.NewParser()
	parsed, diags := parser.ParseHCL(content, file)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	body, ok := parsed.Body.(*hclsyntax.Body)
	if !ok {
		return nil, errors.New("parsing HCL: unexpected body type")
	}

	var policies []model.CanonicalPolicy
	for _, block := range body.Blocks {
		if block.Type != "resource" || len(block.Labels) != 2 {
			continue
		}
		if block.Labels[0] != policyResourceType {
			continue
		}
		policies = append(policies, a.buildPolicy(file, block, content))
	}
	return policies, nil
}

func (a *HCLAdapter) buildPolicy(file string, block *hclsyntax.Block, src []byte) model.CanonicalPolicy {
	reader := attrReader{attrs: block.Body.Attributes, src: src}

	policy := model.CanonicalPolicy{
		ID:           reader.str("id"),
		DisplayName:  reader.str("display_name"),
		State:        NormalizeState(reader.str("state")),
		SourceFormat: model.FormatHCL,
		SourceFile:   file,
	}

	for _, inner := range block.Body.Blocks {
		switch inner.Type {
		case "conditions":
			policy.Conditions = a.buildConditions(inner, src)
		case "grant_controls":
			grant := attrReader{attrs: inner.Body.Attributes, src: src}
			policy.GrantControls = &model.GrantControls{
				Operator:                    grant.str("operator"),
				BuiltInControls:             grant.strList("built_in_controls"),
				CustomAuthenticationFactors: grant.strList("custom_authentication_factors"),
				TermsOfUse:                  grant.strList("terms_of_use"),
			}
		case "session_controls":
			policy.SessionControls = a.buildSessionControls(inner, src)
		}
	}

	return policy
}

func (a *HCLAdapter) buildConditions(block *hclsyntax.Block, src []byte) model.Conditions {
	reader := attrReader{attrs: block.Body.Attributes, src: src}
	conditions := model.Conditions{
		ClientAppTypes:   reader.strList("client_app_types"),
		SignInRiskLevels: reader.strList("sign_in_risk_levels"),
		UserRiskLevels:   reader.strList("user_risk_levels"),
	}

	for _, inner := range block.Body.Blocks {
		nested := attrReader{attrs: inner.Body.Attributes, src: src}
		switch inner.Type {
		case "applications":
			conditions.Applications = model.ApplicationConditions{
				Include:            nested.strList("included_applications"),
				Exclude:            nested.strList("excluded_applications"),
				IncludeUserActions: nested.strList("included_user_actions"),
			}
		case "users":
			conditions.Users = model.UserConditions{
				IncludeUsers:  nested.strList("included_users"),
				ExcludeUsers:  nested.strList("excluded_users"),
				IncludeGroups: nested.strList("included_groups"),
				ExcludeGroups: nested.strList("excluded_groups"),
				IncludeRoles:  nested.strList("included_roles"),
				ExcludeRoles:  nested.strList("excluded_roles"),
			}
		case "locations":
			conditions.Locations = model.LocationConditions{
				Include: nested.strList("included_locations"),
				Exclude: nested.strList("excluded_locations"),
			}
		case "platforms":
			conditions.Platforms = model.PlatformConditions{
				Include: nested.strList("included_platforms"),
				Exclude: nested.strList("excluded_platforms"),
			}
		case "devices":
			for _, filter := range inner.Body.Blocks {
				if filter.Type != "filter" {
					continue
				}
				filterReader := attrReader{attrs: filter.Body.Attributes, src: src}
				conditions.DeviceFilter = &model.DeviceFilter{
					Mode: filterReader.str("mode"),
					Rule: filterReader.str("rule"),
				}
			}
		}
	}

	return conditions
}

// buildSessionControls lifts the resource's flattened attributes into the
// nested canonical shape, the same one the JSON adapter produces. This is
// where the flattened-boolean vs nested-object difference between the two
// formats is resolved.
func (a *HCLAdapter) buildSessionControls(block *hclsyntax.Block, src []byte) *model.SessionControls {
	reader := attrReader{attrs: block.Body.Attributes, src: src}
	session := &model.SessionControls{}

	if value, expression, ok := reader.intOrOpaque("sign_in_frequency"); ok {
		unit := reader.str("sign_in_frequency_period")
		if unit == "" {
			unit = "hours"
		}
		// A variable-valued frequency is still a configured frequency;
		// the raw expression rides along so the comparator reports a
		// difference instead of treating the control as absent.
		session.SignInFrequency = &model.SignInFrequency{
			Enabled:    true,
			Value:      value,
			Unit:       unit,
			Expression: expression,
		}
	}
	if mode := reader.str("persistent_browser_mode"); mode != "" {
		session.PersistentBrowser = &model.PersistentBrowser{
			Enabled: true,
			Mode:    mode,
		}
	}
	if enabled, expression, ok := reader.boolOrOpaque("application_enforced_restrictions_enabled"); ok && (enabled || expression != "") {
		session.ApplicationEnforcedRestrictions = &model.Toggle{
			Enabled:    enabled || expression != "",
			Expression: expression,
		}
	}
	if mode := reader.str("cloud_app_security_policy"); mode != "" {
		session.CloudAppSecurity = &model.CloudAppSecurity{
			Enabled: true,
			Mode:    mode,
		}
	}

	if session.SignInFrequency == nil && session.PersistentBrowser == nil &&
		session.ApplicationEnforcedRestrictions == nil && session.CloudAppSecurity == nil {
		return nil
	}
	return session
}

// attrReader decodes literal attribute expressions, falling back to the
// expression's source text for anything that cannot be resolved without an
// evaluation context.
type attrReader struct {
	attrs hclsyntax.Attributes
	src   []byte
}

func (r attrReader) str(name string) string {
	attr, ok := r.attrs[name]
	if !ok {
		return ""
	}
	return r.exprString(attr.Expr)
}

func (r attrReader) strList(name string) []string {
	attr, ok := r.attrs[name]
	if !ok {
		return nil
	}

	value, diags := attr.Expr.Value(nil)
	if !diags.HasErrors() && value.IsWhollyKnown() && value.CanIterateElements() {
		var out []string
		for it := value.ElementIterator(); it.Next(); {
			_, element := it.Element()
			out = append(out, ctyString(element))
		}
		return out
	}

	// The list itself may be literal while individual elements reference
	// variables; decode element by element before giving up on the whole
	// expression.
	if elements, diags := hcl.ExprList(attr.Expr); !diags.HasErrors() {
		out := make([]string, 0, len(elements))
		for _, element := range elements {
			out = append(out, r.exprString(element))
		}
		return out
	}

	return []string{r.opaque(attr.Expr)}
}

// boolOrOpaque reports whether the attribute is declared; a non-literal
// value comes back as its opaque source text instead of being dropped.
func (r attrReader) boolOrOpaque(name string) (bool, string, bool) {
	attr, ok := r.attrs[name]
	if !ok {
		return false, "", false
	}
	value, diags := attr.Expr.Value(nil)
	if diags.HasErrors() || !value.IsWhollyKnown() || value.Type() != cty.Bool {
		return false, r.opaque(attr.Expr), true
	}
	return value.True(), "", true
}

// intOrOpaque is boolOrOpaque for numeric attributes.
func (r attrReader) intOrOpaque(name string) (int, string, bool) {
	attr, ok := r.attrs[name]
	if !ok {
		return 0, "", false
	}
	value, diags := attr.Expr.Value(nil)
	if diags.HasErrors() || !value.IsWhollyKnown() || value.Type() != cty.Number {
		return 0, r.opaque(attr.Expr), true
	}
	n, _ := value.AsBigFloat().Int64()
	return int(n), "", true
}

func (r attrReader) exprString(expr hcl.Expression) string {
	value, diags := expr.Value(nil)
	if diags.HasErrors() || !value.IsWhollyKnown() {
		return r.opaque(expr)
	}
	return ctyString(value)
}

// opaque returns the expression exactly as written, e.g.
// "var.break_glass_group". Spec-level decision: variable references are
// compared as text, never resolved.
func (r attrReader) opaque(expr hcl.Expression) string {
	rng := expr.Range()
	if rng.Start.Byte < 0 || rng.End.Byte > len(r.src) {
		return ""
	}
	return strings.TrimSpace(string(r.src[rng.Start.Byte:rng.End.Byte]))
}

func ctyString(value cty.Value) string {
	if value.IsNull() {
		return ""
	}
	switch value.Type() {
	case cty.String:
		return value.AsString()
	case cty.Bool:
		if value.True() {
			return "true"
		}
		return "false"
	case cty.Number:
		return value.AsBigFloat().Text('f', -1)
	}
	return ""
}
