package services

import (
	"context"
	"time"

	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/model"
)

type MeetingService struct {
	col *docstore.Collection[model.Meeting]
}

func NewMeetingService(store *docstore.Store) *MeetingService {
	return &MeetingService{col: docstore.NewCollection[model.Meeting](store, "meetings")}
}

func (s *MeetingService) Create(ctx context.Context, m model.Meeting) (model.Meeting, error) {
	return s.col.Create(ctx, m)
}

func (s *MeetingService) All(ctx context.Context) ([]model.Meeting, error) {
	return s.col.All(ctx)
}

func (s *MeetingService) Get(ctx context.Context, id string) (model.Meeting, bool, error) {
	return s.col.Get(ctx, id)
}

func (s *MeetingService) Update(ctx context.Context, id string, fields map[string]any) (model.Meeting, error) {
	return s.col.Update(ctx, id, fields)
}

func (s *MeetingService) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

func (s *MeetingService) ByStatus(ctx context.Context, status string) ([]model.Meeting, error) {
	return s.col.Find(ctx, docstore.Where("status", docstore.OpEq, status))
}

// Upcoming returns meetings scheduled at or after the given instant.
func (s *MeetingService) Upcoming(ctx context.Context, after time.Time) ([]model.Meeting, error) {
	return s.col.Find(ctx, docstore.Where("date", docstore.OpGte, after))
}

// WithAttendee returns meetings that include the user in the attendee list.
func (s *MeetingService) WithAttendee(ctx context.Context, userID string) ([]model.Meeting, error) {
	return s.col.Find(ctx, docstore.Where("attendees", docstore.OpContains, userID))
}
