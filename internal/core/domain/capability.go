package domain

// Capability is a single named permission, independent of role.
type Capability int

const (
	CapUploadDocuments Capability = iota + 1
	CapDeleteDocuments
	CapViewAllDocuments
	CapManageUsers
	CapManageAudits
	CapApproveReports
	CapViewReports
	CapExportData
	CapManageSystem
)

// Capabilities returns every capability in declaration order.
func Capabilities() []Capability {
	return []Capability{
		CapUploadDocuments,
		CapDeleteDocuments,
		CapViewAllDocuments,
		CapManageUsers,
		CapManageAudits,
		CapApproveReports,
		CapViewReports,
		CapExportData,
		CapManageSystem,
	}
}

func (c Capability) String() string {
	switch c {
	case CapUploadDocuments:
		return "upload_documents"
	case CapDeleteDocuments:
		return "delete_documents"
	case CapViewAllDocuments:
		return "view_all_documents"
	case CapManageUsers:
		return "manage_users"
	case CapManageAudits:
		return "manage_audits"
	case CapApproveReports:
		return "approve_reports"
	case CapViewReports:
		return "view_reports"
	case CapExportData:
		return "export_data"
	case CapManageSystem:
		return "manage_system"
	default:
		return "unknown"
	}
}

// PermissionSet is the full capability set of a role.
type PermissionSet struct {
	CanUploadDocuments  bool `json:"canUploadDocuments"`
	CanDeleteDocuments  bool `json:"canDeleteDocuments"`
	CanViewAllDocuments bool `json:"canViewAllDocuments"`
	CanManageUsers      bool `json:"canManageUsers"`
	CanManageAudits     bool `json:"canManageAudits"`
	CanApproveReports   bool `json:"canApproveReports"`
	CanViewReports      bool `json:"canViewReports"`
	CanExportData       bool `json:"canExportData"`
	CanManageSystem     bool `json:"canManageSystem"`
}

// Allows reports whether the set grants c.
func (p PermissionSet) Allows(c Capability) bool {
	switch c {
	case CapUploadDocuments:
		return p.CanUploadDocuments
	case CapDeleteDocuments:
		return p.CanDeleteDocuments
	case CapViewAllDocuments:
		return p.CanViewAllDocuments
	case CapManageUsers:
		return p.CanManageUsers
	case CapManageAudits:
		return p.CanManageAudits
	case CapApproveReports:
		return p.CanApproveReports
	case CapViewReports:
		return p.CanViewReports
	case CapExportData:
		return p.CanExportData
	case CapManageSystem:
		return p.CanManageSystem
	default:
		return false
	}
}

// permissionMatrix is the static Role -> PermissionSet table. Every role
// returned by Roles must have a row.
var permissionMatrix = map[Role]PermissionSet{
	RoleSystemAdmin: {
		CanUploadDocuments:  true,
		CanDeleteDocuments:  true,
		CanViewAllDocuments: true,
		CanManageUsers:      true,
		CanManageAudits:     true,
		CanApproveReports:   true,
		CanViewReports:      true,
		CanExportData:       true,
		CanManageSystem:     true,
	},
	RoleLeadAuditor: {
		CanUploadDocuments:  true,
		CanDeleteDocuments:  true,
		CanViewAllDocuments: true,
		CanManageUsers:      false,
		CanManageAudits:     true,
		CanApproveReports:   true,
		CanViewReports:      true,
		CanExportData:       true,
		CanManageSystem:     false,
	},
	RoleSeniorAuditor: {
		CanUploadDocuments:  true,
		CanDeleteDocuments:  false,
		CanViewAllDocuments: true,
		CanManageUsers:      false,
		CanManageAudits:     true,
		CanApproveReports:   false,
		CanViewReports:      true,
		CanExportData:       true,
		CanManageSystem:     false,
	},
	RoleAuditor: {
		CanUploadDocuments:  true,
		CanDeleteDocuments:  false,
		CanViewAllDocuments: false,
		CanManageUsers:      false,
		CanManageAudits:     false,
		CanApproveReports:   false,
		CanViewReports:      true,
		CanExportData:       false,
		CanManageSystem:     false,
	},
	RoleAnalyst: {
		CanUploadDocuments:  false,
		CanDeleteDocuments:  false,
		CanViewAllDocuments: true,
		CanManageUsers:      false,
		CanManageAudits:     false,
		CanApproveReports:   false,
		CanViewReports:      true,
		CanExportData:       true,
		CanManageSystem:     false,
	},
	RoleExternalReviewer: {
		CanViewReports: true,
	},
	RoleCouncillor: {
		CanViewReports: true,
	},
}

// PermissionsFor returns the permission set of role. Unknown roles get an
// empty set; roles are validated before they reach an account.
func PermissionsFor(role Role) PermissionSet {
	return permissionMatrix[role]
}
