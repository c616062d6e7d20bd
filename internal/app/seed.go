package app

import (
	"context"
	"time"

	"cornerstone/api/internal/identity"
	"cornerstone/api/internal/model"
)

// Bootstrap seeds empty collections with starter records and pushes the
// result into the search index. Seeding errors are logged, not fatal; the
// service still comes up against whatever data exists.
func (s *Service) Bootstrap(ctx context.Context) {
	s.seedUsers(ctx)
	s.seedTasks(ctx)
	s.seedFinances(ctx)
	s.seedLeads(ctx)
	s.seedMeetings(ctx)
	s.search.Reindex(ctx, s.store)
}

// seedUsers mirrors the demo account table into the users collection so
// the remote identity provider accepts the same credentials demo mode
// does.
func (s *Service) seedUsers(ctx context.Context) {
	existing, err := s.registry.Users.All(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("seed: could not list users")
		return
	}
	if len(existing) > 0 {
		return
	}
	for _, cred := range identity.DemoCredentials() {
		if _, err := s.registry.Users.Create(ctx, model.User{
			Email:       cred.Email,
			DisplayName: cred.DisplayName,
			Role:        cred.Role,
		}, cred.Password); err != nil {
			s.log.Warn().Err(err).Str("email", cred.Email).Msg("seed: create user failed")
		}
	}
	s.log.Info().Int("count", len(identity.DemoCredentials())).Msg("seeded demo users")
}

func (s *Service) seedTasks(ctx context.Context) {
	existing, err := s.registry.Tasks.All(ctx)
	if err != nil || len(existing) > 0 {
		return
	}
	due := func(date string) *time.Time {
		t, _ := time.Parse("2006-01-02", date)
		return &t
	}
	tasks := []model.Task{
		{
			Title:       "Land Acquisition Documentation",
			Description: "Complete legal documentation for college land purchase",
			Status:      "in-progress",
			Priority:    "high",
			Assignee:    "Legal Team",
			DueDate:     due("2024-12-31"),
			Tags:        []string{"legal", "land", "documentation"},
			Category:    "Legal",
		},
		{
			Title:       "Building Design Approval",
			Description: "Get architectural plans approved by local authorities",
			Status:      "pending",
			Priority:    "high",
			Assignee:    "Project Manager",
			DueDate:     due("2024-11-30"),
			Tags:        []string{"design", "approval", "architecture"},
			Category:    "Regulatory",
		},
		{
			Title:       "Faculty Recruitment Plan",
			Description: "Develop comprehensive faculty hiring strategy",
			Status:      "completed",
			Priority:    "medium",
			Assignee:    "HR Team",
			DueDate:     due("2024-10-15"),
			Tags:        []string{"hr", "faculty", "recruitment"},
			Category:    "Human Resources",
		},
	}
	for _, task := range tasks {
		if _, err := s.registry.Tasks.Create(ctx, task); err != nil {
			s.log.Warn().Err(err).Str("title", task.Title).Msg("seed: create task failed")
		}
	}
}

func (s *Service) seedFinances(ctx context.Context) {
	existing, err := s.registry.Finances.All(ctx)
	if err != nil || len(existing) > 0 {
		return
	}
	records := []model.FinanceRecord{
		{
			Type:        "income",
			Category:    "Investment",
			Amount:      5000000,
			Description: "Initial funding from government grant",
			Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			Type:        "expense",
			Category:    "Land",
			Amount:      2500000,
			Description: "Land purchase for college campus",
			Date:        time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			Type:        "expense",
			Category:    "Construction",
			Amount:      1500000,
			Description: "Initial construction phase payment",
			Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, record := range records {
		if _, err := s.registry.Finances.Create(ctx, record); err != nil {
			s.log.Warn().Err(err).Str("category", record.Category).Msg("seed: create finance record failed")
		}
	}
}

func (s *Service) seedLeads(ctx context.Context) {
	existing, err := s.registry.Leads.All(ctx)
	if err != nil || len(existing) > 0 {
		return
	}
	leads := []model.Lead{
		{
			FirstName:     "Ahmed",
			LastName:      "Rahman",
			Email:         "ahmed.rahman@business.com",
			Phone:         "+8801712345678",
			Company:       "Rahman Enterprises",
			Position:      "Managing Director",
			Source:        "referral",
			Status:        "qualified",
			Priority:      "high",
			ExpectedValue: 5000000,
			Notes:         "Interested in investing in educational sector.",
			Tags:          []string{"investor", "education", "high-value"},
			AssignedTo:    "manager@college.edu",
		},
		{
			FirstName:     "Fatima",
			LastName:      "Begum",
			Email:         "fatima@techsolutions.bd",
			Phone:         "+8801987654321",
			Company:       "Tech Solutions BD",
			Position:      "CEO",
			Source:        "website",
			Status:        "contacted",
			Priority:      "medium",
			ExpectedValue: 2000000,
			Notes:         "Partnership opportunities in technology infrastructure.",
			Tags:          []string{"technology", "partnership"},
			AssignedTo:    "team@college.edu",
		},
	}
	for _, lead := range leads {
		if _, err := s.registry.Leads.Create(ctx, lead); err != nil {
			s.log.Warn().Err(err).Str("email", lead.Email).Msg("seed: create lead failed")
		}
	}
}

func (s *Service) seedMeetings(ctx context.Context) {
	existing, err := s.registry.Meetings.All(ctx)
	if err != nil || len(existing) > 0 {
		return
	}
	meetings := []model.Meeting{
		{
			Title:       "Project Kickoff Meeting",
			Description: "Initial project planning and team introduction",
			Date:        time.Date(2024, 11, 25, 0, 0, 0, 0, time.UTC),
			Time:        "10:00",
			Duration:    90,
			Location:    "Conference Room A",
			Attendees:   []string{"admin@college.edu", "manager@college.edu"},
			Status:      "scheduled",
			Priority:    "high",
			Agenda:      "Project overview and timeline discussion",
		},
		{
			Title:       "Budget Review Meeting",
			Description: "Monthly budget review and expense analysis",
			Date:        time.Date(2024, 11, 28, 0, 0, 0, 0, time.UTC),
			Time:        "14:00",
			Duration:    60,
			Location:    "Finance Office",
			Attendees:   []string{"admin@college.edu", "investor@college.edu"},
			Status:      "scheduled",
			Priority:    "medium",
			Agenda:      "Review monthly expenses and budget variance",
		},
	}
	for _, meeting := range meetings {
		if _, err := s.registry.Meetings.Create(ctx, meeting); err != nil {
			s.log.Warn().Err(err).Str("title", meeting.Title).Msg("seed: create meeting failed")
		}
	}
}
