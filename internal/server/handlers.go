package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/engine"
	"github.com/tartampluch/birthday-tracker/internal/store"
	"github.com/tartampluch/birthday-tracker/internal/vcard"
)

// birthdayResponse is the JSON shape of one record in API responses.
type birthdayResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Date              string `json:"date"`
	DaysUntil         int    `json:"days_until"`
	AgeTurning        *int   `json:"age_turning,omitempty"`
	AgeTurningOrdinal string `json:"age_turning_ordinal,omitempty"`
	ReminderDays      []int  `json:"reminder_days_before"`
	Notes             string `json:"notes,omitempty"`
}

type listResponse struct {
	Birthdays []birthdayResponse `json:"birthdays"`
}

type addRequest struct {
	Name         string `json:"name"`
	Date         string `json:"date"`
	ReminderDays []int  `json:"reminder_days_before"`
	Notes        string `json:"notes"`
}

type editRequest struct {
	Name         *string `json:"name"`
	Date         *string `json:"date"`
	ReminderDays *[]int  `json:"reminder_days_before"`
	Notes        *string `json:"notes"`
}

type optionsResponse struct {
	NotificationTime    string `json:"notification_time"`
	DefaultReminderDays string `json:"default_reminder_days"`
	Language            string `json:"language"`
}

type optionsRequest struct {
	NotificationTime    string `json:"notification_time"`
	DefaultReminderDays string `json:"default_reminder_days"`
}

type checkResponse struct {
	Fired int `json:"fired"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	today := s.clock.Now()
	upcoming := s.store.List(today, s.manager.ReminderDefaults())

	out := listResponse{Birthdays: make([]birthdayResponse, 0, len(upcoming))}
	for _, u := range upcoming {
		out.Birthdays = append(out.Birthdays, toResponse(u))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	rec, err := s.store.Add(r.Context(), store.AddFields{
		Name:         req.Name,
		Date:         req.Date,
		Notes:        req.Notes,
		ReminderDays: req.ReminderDays,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, s.recordResponse(rec))
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, config.URLParamID)

	var req editRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	rec, err := s.store.Edit(r.Context(), id, store.EditFields{
		Name:         req.Name,
		Date:         req.Date,
		Notes:        req.Notes,
		ReminderDays: req.ReminderDays,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.recordResponse(rec))
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, config.URLParamID)
	if err := s.store.Remove(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOptionsGet(w http.ResponseWriter, r *http.Request) {
	n := s.manager.Current().Notifications
	s.writeJSON(w, http.StatusOK, optionsResponse{
		NotificationTime:    n.Time,
		DefaultReminderDays: n.DefaultReminderDays,
		Language:            n.Language,
	})
}

func (s *Server) handleOptionsPut(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.manager.UpdateOptions(req.NotificationTime, req.DefaultReminderDays); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.handleOptionsGet(w, r)
}

// handleCheck runs the reminder evaluation immediately. Days already
// handled do not fire again, so a busy finger on this endpoint is safe.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	fired, err := s.trigger.RunOnce(r.Context())
	if err != nil {
		s.log.Error(config.ErrTriggerCheck, config.LogKeyError, err)
		s.writeError(w, http.StatusInternalServerError, config.HTTPMsgInternalErr)
		return
	}
	s.writeJSON(w, http.StatusOK, checkResponse{Fired: fired})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	imp := s.manager.Current().Import
	if s.importer == nil || imp.Mode == "" {
		s.writeError(w, http.StatusBadRequest, config.ErrImportDisabled)
		return
	}

	res, err := s.importer.Run(r.Context(), vcard.ImportConfig{
		Mode:      imp.Mode,
		LocalPath: imp.LocalPath,
		WebURL:    imp.WebURL,
		WebUser:   imp.WebUser,
	})
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// recordResponse builds the response for a single record, computing its
// occurrence data against the current clock.
func (s *Server) recordResponse(rec engine.Record) birthdayResponse {
	today := s.clock.Now()
	u := store.Upcoming{
		Record:    rec,
		DaysUntil: engine.DaysUntil(rec.Month, rec.Day, today),
	}
	if age, ok := engine.AgeTurning(rec.Year, rec.Month, rec.Day, today); ok {
		u.AgeTurning = age
		u.AgeKnown = true
		u.AgeOrdinal = engine.Ordinal(age)
	}
	return toResponse(u)
}

func toResponse(u store.Upcoming) birthdayResponse {
	days := u.Record.ReminderDays
	if days == nil {
		days = []int{}
	}
	resp := birthdayResponse{
		ID:           u.Record.ID,
		Name:         u.Record.Name,
		Date:         u.Record.DateString(),
		DaysUntil:    u.DaysUntil,
		ReminderDays: days,
		Notes:        u.Record.Notes,
	}
	if u.AgeKnown {
		age := u.AgeTurning
		resp.AgeTurning = &age
		resp.AgeTurningOrdinal = u.AgeOrdinal
	}
	return resp
}

// decodeBody parses a JSON request body, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, config.ErrRequestBody)
		return false
	}
	return true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	var nferr *store.NotFoundError
	switch {
	case errors.As(err, &verr):
		s.writeError(w, http.StatusBadRequest, verr.Reason)
	case errors.As(err, &nferr):
		s.writeError(w, http.StatusNotFound, config.ErrRecordNotFound)
	default:
		s.log.Error(config.HTTPMsgInternalErr, config.LogKeyError, err)
		s.writeError(w, http.StatusInternalServerError, config.HTTPMsgInternalErr)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error(config.ErrWriteResp, config.LogKeyError, err)
	}
}
