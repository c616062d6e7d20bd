package rbac

type Role string
type Action string

const (
	RoleAdmin          Role = "admin"
	RoleProjectManager Role = "project_manager"
	RoleTeamMember     Role = "team_member"
	RoleInvestor       Role = "investor"
)

const (
	ActionRead            Action = "read"
	ActionWrite           Action = "write"
	ActionDelete          Action = "delete"
	ActionExport          Action = "export"
	ActionManageUsers     Action = "manage_users"
	ActionViewFinancials  Action = "view_financials"
	ActionApproveExpenses Action = "approve_expenses"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleProjectManager:
		return action == ActionRead || action == ActionWrite || action == ActionExport ||
			action == ActionViewFinancials || action == ActionApproveExpenses
	case RoleTeamMember:
		return action == ActionRead || action == ActionWrite
	case RoleInvestor:
		return action == ActionRead || action == ActionExport || action == ActionViewFinancials
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleAdmin, RoleProjectManager, RoleTeamMember, RoleInvestor:
		return Role(role)
	default:
		return RoleTeamMember
	}
}

// Permissions returns the permission strings granted to a role. Each user
// record mirrors these so clients can gate features without another lookup.
func Permissions(role Role) []string {
	switch role {
	case RoleAdmin:
		return []string{
			"users:read", "users:write",
			"projects:read", "projects:write",
			"tasks:read", "tasks:write",
			"finances:read", "finances:write",
		}
	case RoleProjectManager:
		return []string{"projects:read", "projects:write", "tasks:read", "tasks:write", "finances:read"}
	case RoleInvestor:
		return []string{"finances:read", "projects:read"}
	default:
		return []string{"tasks:read", "tasks:write", "projects:read"}
	}
}
