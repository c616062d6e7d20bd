package identity

import (
	"time"

	"cornerstone/api/internal/model"
	"cornerstone/api/internal/rbac"
)

type demoAccount struct {
	user     model.User
	password string
}

// DemoCredential is what the login screen lists for demo mode. The
// passwords are intentionally public.
type DemoCredential struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
}

var demoCreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func demoAccounts() []demoAccount {
	return []demoAccount{
		demoUser("demo-admin", "admin@college.edu", "admin123", "Administrator", rbac.RoleAdmin),
		demoUser("demo-manager", "manager@college.edu", "manager123", "Project Manager", rbac.RoleProjectManager),
		demoUser("demo-investor", "investor@college.edu", "investor123", "Investor", rbac.RoleInvestor),
		demoUser("demo-team", "team@college.edu", "team123", "Team Member", rbac.RoleTeamMember),
	}
}

func demoUser(id, email, password, displayName string, role rbac.Role) demoAccount {
	return demoAccount{
		password: password,
		user: model.User{
			ID:          id,
			Email:       email,
			DisplayName: displayName,
			Role:        string(role),
			IsActive:    true,
			Permissions: rbac.Permissions(role),
			CreatedAt:   demoCreatedAt,
			UpdatedAt:   demoCreatedAt,
		},
	}
}

// DemoCredentials lists the fixed demo accounts.
func DemoCredentials() []DemoCredential {
	accounts := demoAccounts()
	out := make([]DemoCredential, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, DemoCredential{
			Email:       a.user.Email,
			Password:    a.password,
			Role:        a.user.Role,
			DisplayName: a.user.DisplayName,
		})
	}
	return out
}
