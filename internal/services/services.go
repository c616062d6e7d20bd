// Package services exposes typed record services over the document store.
// Each service owns one collection and the named queries the app uses.
package services

import (
	"cornerstone/api/internal/docstore"
)

// Registry bundles the per-collection services behind one constructor so
// wiring stays in one place.
type Registry struct {
	Tasks     *TaskService
	Finances  *FinanceService
	Leads     *LeadService
	Meetings  *MeetingService
	Documents *DocumentService
	Projects  *ProjectService
	Users     *UserService
}

func NewRegistry(store *docstore.Store) *Registry {
	return &Registry{
		Tasks:     NewTaskService(store),
		Finances:  NewFinanceService(store),
		Leads:     NewLeadService(store),
		Meetings:  NewMeetingService(store),
		Documents: NewDocumentService(store),
		Projects:  NewProjectService(store),
		Users:     NewUserService(store),
	}
}
