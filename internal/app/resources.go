package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cornerstone/api/internal/blob"
	"cornerstone/api/internal/model"
	"cornerstone/api/internal/rbac"
	"cornerstone/api/internal/search"
)

// maxUploadBytes caps document content uploads.
const maxUploadBytes = 32 << 20

func (s *HTTPServer) handleTasks(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var (
			items []model.Task
			err   error
		)
		query := r.URL.Query()
		switch {
		case query.Get("status") != "":
			items, err = s.service.registry.Tasks.ByStatus(r.Context(), query.Get("status"))
		case query.Get("assignee") != "":
			items, err = s.service.registry.Tasks.ByAssignee(r.Context(), query.Get("assignee"))
		case query.Get("tag") != "":
			items, err = s.service.registry.Tasks.Tagged(r.Context(), query.Get("tag"))
		default:
			items, err = s.service.registry.Tasks.All(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list tasks", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": items})

	case len(rest) == 0 && r.Method == http.MethodPost:
		if !s.service.Can(session.Role, rbac.ActionWrite) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var task model.Task
		if err := decodeBody(r, &task); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(task.Title) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
			return
		}
		created, err := s.service.registry.Tasks.Create(r.Context(), task)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not create task", nil)
			return
		}
		s.service.indexRecord("tasks", created.ID)
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 1:
		s.handleTaskByID(w, r, session, rest[0])

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleTaskByID(w http.ResponseWriter, r *http.Request, session Session, id string) {
	switch r.Method {
	case http.MethodGet:
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		task, ok, err := s.service.registry.Tasks.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load task", nil)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		writeJSON(w, http.StatusOK, task)

	case http.MethodPatch, http.MethodPut:
		if !s.service.Can(session.Role, rbac.ActionWrite) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		fields, ok := decodeFields(w, r)
		if !ok {
			return
		}
		updated, err := s.service.registry.Tasks.Update(r.Context(), id, fields)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		s.service.indexRecord("tasks", id)
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if !s.service.Can(session.Role, rbac.ActionDelete) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		if err := s.service.registry.Tasks.Delete(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not delete task", nil)
			return
		}
		s.service.search.DeleteRecord("tasks", id)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

// canReadFinances: financial data is visible to roles holding the
// view_financials action, not to every reader.
func (s *HTTPServer) canReadFinances(role string) bool {
	return s.service.Can(role, rbac.ActionViewFinancials)
}

func (s *HTTPServer) canWriteFinances(role string) bool {
	return s.service.Can(role, rbac.ActionWrite) && s.service.Can(role, rbac.ActionViewFinancials)
}

func (s *HTTPServer) handleFinances(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if !s.canReadFinances(session.Role) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var (
			items []model.FinanceRecord
			err   error
		)
		query := r.URL.Query()
		switch {
		case query.Get("type") != "":
			items, err = s.service.registry.Finances.ByType(r.Context(), query.Get("type"))
		case query.Get("category") != "":
			items, err = s.service.registry.Finances.ByCategory(r.Context(), query.Get("category"))
		case query.Get("from") != "" && query.Get("to") != "":
			var from, to time.Time
			if from, err = time.Parse("2006-01-02", query.Get("from")); err == nil {
				to, err = time.Parse("2006-01-02", query.Get("to"))
			}
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "from and to must be YYYY-MM-DD", nil)
				return
			}
			items, err = s.service.registry.Finances.InRange(r.Context(), from, to.Add(24*time.Hour-time.Nanosecond))
		default:
			items, err = s.service.registry.Finances.All(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list finance records", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"finances": items})

	case len(rest) == 0 && r.Method == http.MethodPost:
		if !s.canWriteFinances(session.Role) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var rec model.FinanceRecord
		if err := decodeBody(r, &rec); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if rec.Type != "income" && rec.Type != "expense" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be income or expense", nil)
			return
		}
		if rec.Amount <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "amount must be positive", nil)
			return
		}
		created, err := s.service.registry.Finances.Create(r.Context(), rec)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not create finance record", nil)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			if !s.canReadFinances(session.Role) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			rec, ok, err := s.service.registry.Finances.Get(r.Context(), rest[0])
			if err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load finance record", nil)
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
				return
			}
			writeJSON(w, http.StatusOK, rec)

		case http.MethodPatch, http.MethodPut:
			if !s.canWriteFinances(session.Role) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			fields, ok := decodeFields(w, r)
			if !ok {
				return
			}
			// marking an expense approved is a separate privilege
			if status, isString := fields["status"].(string); isString && status == "approved" {
				if !s.service.Can(session.Role, rbac.ActionApproveExpenses) {
					writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
					return
				}
			}
			updated, err := s.service.registry.Finances.Update(r.Context(), rest[0], fields)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, updated)

		case http.MethodDelete:
			if !s.service.Can(session.Role, rbac.ActionDelete) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			if err := s.service.registry.Finances.Delete(r.Context(), rest[0]); err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not delete finance record", nil)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})

		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleLeads(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var (
			items []model.Lead
			err   error
		)
		query := r.URL.Query()
		switch {
		case query.Get("status") != "":
			items, err = s.service.registry.Leads.ByStatus(r.Context(), query.Get("status"))
		case query.Get("assignedTo") != "":
			items, err = s.service.registry.Leads.ByAssignee(r.Context(), query.Get("assignedTo"))
		case query.Get("minValue") != "":
			floor, parseErr := strconv.ParseFloat(query.Get("minValue"), 64)
			if parseErr != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "minValue must be a number", nil)
				return
			}
			items, err = s.service.registry.Leads.WorthAtLeast(r.Context(), floor)
		default:
			items, err = s.service.registry.Leads.All(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list leads", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"leads": items})

	case len(rest) == 0 && r.Method == http.MethodPost:
		if !s.service.Can(session.Role, rbac.ActionWrite) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var lead model.Lead
		if err := decodeBody(r, &lead); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(lead.Email) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email is required", nil)
			return
		}
		created, err := s.service.registry.Leads.Create(r.Context(), lead)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not create lead", nil)
			return
		}
		s.service.indexRecord("leads", created.ID)
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			if !s.service.Can(session.Role, rbac.ActionRead) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			lead, ok, err := s.service.registry.Leads.Get(r.Context(), rest[0])
			if err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load lead", nil)
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
				return
			}
			writeJSON(w, http.StatusOK, lead)

		case http.MethodPatch, http.MethodPut:
			if !s.service.Can(session.Role, rbac.ActionWrite) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			fields, ok := decodeFields(w, r)
			if !ok {
				return
			}
			updated, err := s.service.registry.Leads.Update(r.Context(), rest[0], fields)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			s.service.indexRecord("leads", rest[0])
			writeJSON(w, http.StatusOK, updated)

		case http.MethodDelete:
			if !s.service.Can(session.Role, rbac.ActionDelete) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			if err := s.service.registry.Leads.Delete(r.Context(), rest[0]); err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not delete lead", nil)
				return
			}
			s.service.search.DeleteRecord("leads", rest[0])
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})

		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleMeetings(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var (
			items []model.Meeting
			err   error
		)
		query := r.URL.Query()
		switch {
		case query.Get("status") != "":
			items, err = s.service.registry.Meetings.ByStatus(r.Context(), query.Get("status"))
		case query.Get("attendee") != "":
			items, err = s.service.registry.Meetings.WithAttendee(r.Context(), query.Get("attendee"))
		default:
			items, err = s.service.registry.Meetings.All(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list meetings", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"meetings": items})

	case len(rest) == 0 && r.Method == http.MethodPost:
		if !s.service.Can(session.Role, rbac.ActionWrite) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var meeting model.Meeting
		if err := decodeBody(r, &meeting); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(meeting.Title) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
			return
		}
		created, err := s.service.registry.Meetings.Create(r.Context(), meeting)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not create meeting", nil)
			return
		}
		s.service.indexRecord("meetings", created.ID)
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			if !s.service.Can(session.Role, rbac.ActionRead) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			meeting, ok, err := s.service.registry.Meetings.Get(r.Context(), rest[0])
			if err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load meeting", nil)
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
				return
			}
			writeJSON(w, http.StatusOK, meeting)

		case http.MethodPatch, http.MethodPut:
			if !s.service.Can(session.Role, rbac.ActionWrite) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			fields, ok := decodeFields(w, r)
			if !ok {
				return
			}
			updated, err := s.service.registry.Meetings.Update(r.Context(), rest[0], fields)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, updated)

		case http.MethodDelete:
			if !s.service.Can(session.Role, rbac.ActionDelete) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			if err := s.service.registry.Meetings.Delete(r.Context(), rest[0]); err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not delete meeting", nil)
				return
			}
			s.service.search.DeleteRecord("meetings", rest[0])
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})

		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleDocuments(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if len(rest) == 2 && rest[1] == "content" {
		s.handleDocumentContent(w, r, session, rest[0])
		return
	}

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var (
			items []model.Document
			err   error
		)
		query := r.URL.Query()
		switch {
		case query.Get("parentId") != "":
			items, err = s.service.registry.Documents.Children(r.Context(), query.Get("parentId"))
		case query.Get("category") != "":
			items, err = s.service.registry.Documents.ByCategory(r.Context(), query.Get("category"))
		default:
			items, err = s.service.registry.Documents.All(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list documents", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": items})

	case len(rest) == 0 && r.Method == http.MethodPost:
		if !s.service.Can(session.Role, rbac.ActionWrite) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var doc model.Document
		if err := decodeBody(r, &doc); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(doc.Name) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
			return
		}
		if doc.Type != "file" && doc.Type != "folder" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be file or folder", nil)
			return
		}
		doc.UploadedBy = session.UserID
		created, err := s.service.registry.Documents.Create(r.Context(), doc)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not create document", nil)
			return
		}
		s.service.indexRecord("documents", created.ID)
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			if !s.service.Can(session.Role, rbac.ActionRead) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			doc, ok, err := s.service.registry.Documents.Get(r.Context(), rest[0])
			if err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load document", nil)
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
				return
			}
			writeJSON(w, http.StatusOK, doc)

		case http.MethodPatch, http.MethodPut:
			if !s.service.Can(session.Role, rbac.ActionWrite) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			fields, ok := decodeFields(w, r)
			if !ok {
				return
			}
			updated, err := s.service.registry.Documents.Update(r.Context(), rest[0], fields)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, updated)

		case http.MethodDelete:
			if !s.service.Can(session.Role, rbac.ActionDelete) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			if err := s.service.registry.Documents.Delete(r.Context(), rest[0]); err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not delete document", nil)
				return
			}
			if err := s.service.blobs.Remove(r.Context(), rest[0]); err != nil {
				s.log.Warn().Err(err).Str("id", rest[0]).Msg("could not remove document content")
			}
			s.service.search.DeleteRecord("documents", rest[0])
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})

		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleDocumentContent(w http.ResponseWriter, r *http.Request, session Session, id string) {
	doc, ok, err := s.service.registry.Documents.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load document", nil)
		return
	}
	if !ok || doc.Type != "file" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		rc, contentType, err := s.service.blobs.Get(r.Context(), id)
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "No content uploaded", nil)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not read content", nil)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			s.log.Warn().Err(err).Str("id", id).Msg("content stream interrupted")
		}

	case http.MethodPut:
		if !s.service.Can(session.Role, rbac.ActionWrite) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		limited := http.MaxBytesReader(w, r.Body, maxUploadBytes)
		body, err := io.ReadAll(limited)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Upload exceeds the size limit", nil)
				return
			}
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Could not read upload", nil)
			return
		}
		limited.Close()
		if err := s.service.blobs.Put(r.Context(), id, bytes.NewReader(body), contentType); err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not store content", nil)
			return
		}
		if _, err := s.service.registry.Documents.Update(r.Context(), id, map[string]any{"size": len(body)}); err != nil {
			s.log.Warn().Err(err).Str("id", id).Msg("could not update document size")
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "size": len(body)})

	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleProjects(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var (
			items []model.Project
			err   error
		)
		query := r.URL.Query()
		switch {
		case query.Get("status") != "":
			items, err = s.service.registry.Projects.ByStatus(r.Context(), query.Get("status"))
		case query.Get("member") != "":
			items, err = s.service.registry.Projects.WithMember(r.Context(), query.Get("member"))
		default:
			items, err = s.service.registry.Projects.All(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list projects", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": items})

	case len(rest) == 0 && r.Method == http.MethodPost:
		if !s.service.Can(session.Role, rbac.ActionWrite) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var project model.Project
		if err := decodeBody(r, &project); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(project.Name) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
			return
		}
		created, err := s.service.registry.Projects.Create(r.Context(), project)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not create project", nil)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			if !s.service.Can(session.Role, rbac.ActionRead) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			project, ok, err := s.service.registry.Projects.Get(r.Context(), rest[0])
			if err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load project", nil)
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
				return
			}
			writeJSON(w, http.StatusOK, project)

		case http.MethodPatch, http.MethodPut:
			if !s.service.Can(session.Role, rbac.ActionWrite) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			fields, ok := decodeFields(w, r)
			if !ok {
				return
			}
			updated, err := s.service.registry.Projects.Update(r.Context(), rest[0], fields)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, updated)

		case http.MethodDelete:
			if !s.service.Can(session.Role, rbac.ActionDelete) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			if err := s.service.registry.Projects.Delete(r.Context(), rest[0]); err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not delete project", nil)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})

		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if !s.service.Can(session.Role, rbac.ActionManageUsers) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return
	}

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		var (
			items []model.User
			err   error
		)
		if role := r.URL.Query().Get("role"); role != "" {
			items, err = s.service.registry.Users.ByRole(r.Context(), role)
		} else {
			items, err = s.service.registry.Users.All(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list users", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": items})

	case len(rest) == 0 && r.Method == http.MethodPost:
		var body struct {
			model.User
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.Email) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email is required", nil)
			return
		}
		if _, exists, err := s.service.registry.Users.ByEmail(r.Context(), body.Email); err == nil && exists {
			writeError(w, http.StatusConflict, "CONFLICT", "A user with this email already exists", nil)
			return
		}
		created, err := s.service.registry.Users.Create(r.Context(), body.User, body.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not create user", nil)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			user, ok, err := s.service.registry.Users.Get(r.Context(), rest[0])
			if err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load user", nil)
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
				return
			}
			writeJSON(w, http.StatusOK, user)

		case http.MethodPatch, http.MethodPut:
			fields, ok := decodeFields(w, r)
			if !ok {
				return
			}
			delete(fields, "passwordHash")
			updated, err := s.service.registry.Users.Update(r.Context(), rest[0], fields)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, updated)

		case http.MethodDelete:
			if err := s.service.registry.Users.Delete(r.Context(), rest[0]); err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not delete user", nil)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})

		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// decodeFields parses a partial-update body. Reserved fields are dropped so
// clients cannot rewrite ids or timestamps.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var fields map[string]any
	if err := decodeBody(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return nil, false
	}
	if len(fields) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "no fields to update", nil)
		return nil, false
	}
	delete(fields, "id")
	delete(fields, "createdAt")
	delete(fields, "updatedAt")
	return fields, true
}

// indexRecord re-reads a record from the store and pushes it to the search
// index.
func (s *Service) indexRecord(collection, id string) {
	doc, ok, err := s.store.Get(context.Background(), collection, id)
	if err != nil || !ok {
		return
	}
	s.search.IndexRecord(collection, search.IndexableRecord(doc))
}
