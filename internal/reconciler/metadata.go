package reconciler

import (
	"slices"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// RoleDataProtectionOfficer labels the data protection officer kept apart from the parties.
const RoleDataProtectionOfficer = "Datenschutzbeauftragter"

var (
	titleAliases   = []string{"title", "titel", "contract_title", "document_title", "vertragstitel"}
	dateAliases    = []string{"date", "datum", "contract_date", "effective_date", "signed_at", "vertragsdatum"}
	partiesAliases = []string{"parties", "parteien", "vertragsparteien", "contracting_parties"}
	dpoAliases     = []string{
		"data_protection_officer", "dpo", "processor_dpo", "datenschutzbeauftragter", "dsb",
	}
	partyRoleAliases    = []string{"role", "rolle", "type", "typ", "party_role"}
	partyNameAliases    = []string{"name", "firma", "company", "organisation", "organization", "bezeichnung"}
	partyCountryAliases = []string{"country", "land", "sitz", "country_code", "staat"}
)

// roleAliases maps normalised role keys onto canonical roles.
var roleAliases = map[string]string{
	"controller":              domain.RoleController,
	"data_controller":         domain.RoleController,
	"verantwortlicher":        domain.RoleController,
	"verantwortliche":         domain.RoleController,
	"auftraggeber":            domain.RoleController,
	"client":                  domain.RoleController,
	"customer":                domain.RoleController,
	"processor":               domain.RoleProcessor,
	"data_processor":          domain.RoleProcessor,
	"auftragsverarbeiter":     domain.RoleProcessor,
	"auftragnehmer":           domain.RoleProcessor,
	"contractor":              domain.RoleProcessor,
	"service_provider":        domain.RoleProcessor,
	"dienstleister":           domain.RoleProcessor,
	"processor_dpo":           RoleDataProtectionOfficer,
	"controller_dpo":          RoleDataProtectionOfficer,
	"dpo":                     RoleDataProtectionOfficer,
	"data_protection_officer": RoleDataProtectionOfficer,
	"datenschutzbeauftragter": RoleDataProtectionOfficer,
	"datenschutzbeauftragte":  RoleDataProtectionOfficer,
	"dsb":                     RoleDataProtectionOfficer,
}

// roleOrder fixes the position of known keys in role-keyed party objects.
var roleOrder = []string{domain.RoleController, domain.RoleProcessor}

func reconcileMetadata(obj map[string]any) domain.Metadata {
	meta := domain.Metadata{
		Title:   collapseSpace(asString(lookupValue(obj, titleAliases))),
		Date:    asString(lookupValue(obj, dateAliases)),
		Parties: []domain.Party{},
	}

	for _, p := range parseParties(lookupValue(obj, partiesAliases)) {
		if p.Role == RoleDataProtectionOfficer {
			if meta.DataProtectionOfficer == nil {
				meta.DataProtectionOfficer = &p
			}
			continue
		}
		meta.Parties = append(meta.Parties, p)
	}

	if dpo, ok := parseParty(lookupValue(obj, dpoAliases), RoleDataProtectionOfficer); ok {
		dpo.Role = RoleDataProtectionOfficer
		meta.DataProtectionOfficer = &dpo
	}

	return meta
}

// parseParties accepts a list of parties or an object keyed by role.
func parseParties(v any) []domain.Party {
	var parties []domain.Party

	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if p, ok := parseParty(item, ""); ok {
				parties = append(parties, p)
			}
		}
	case map[string]any:
		keys := sortedKeys(t)
		slices.SortStableFunc(keys, func(a, b string) int {
			return roleRank(canonicalRole(a)) - roleRank(canonicalRole(b))
		})
		for _, key := range keys {
			if p, ok := parseParty(t[key], key); ok {
				parties = append(parties, p)
			}
		}
	}

	return parties
}

// parseParty reads a party object or a bare name. An explicit role inside the
// object takes precedence over defaultRole.
func parseParty(v any, defaultRole string) (domain.Party, bool) {
	var p domain.Party

	if obj, ok := asObject(v); ok {
		role := asString(lookupValue(obj, partyRoleAliases))
		if role == "" {
			role = defaultRole
		}
		p = domain.Party{
			Role:    canonicalRole(role),
			Name:    collapseSpace(asString(lookupValue(obj, partyNameAliases))),
			Country: asString(lookupValue(obj, partyCountryAliases)),
		}
	} else {
		p = domain.Party{Role: canonicalRole(defaultRole), Name: collapseSpace(asString(v))}
	}

	if p.Name == "" {
		return domain.Party{}, false
	}
	return p, true
}

// canonicalRole maps known role keys to their German label and keeps unknown roles as given.
func canonicalRole(role string) string {
	if canonical, ok := roleAliases[domain.NormalizeKey(role)]; ok {
		return canonical
	}
	return collapseSpace(role)
}

func roleRank(role string) int {
	if i := slices.Index(roleOrder, role); i >= 0 {
		return i
	}
	return len(roleOrder)
}
