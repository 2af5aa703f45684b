package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/hospital-scheduling/internal/identity"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

// requireAuthorized resolves the request principal and checks it may
// perform op. Ownership of individual records is enforced deeper in the
// service layer, where the record is actually loaded.
func requireAuthorized(w http.ResponseWriter, r *http.Request, op identity.Operation) (identity.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
		return identity.Principal{}, false
	}

	decision := identity.Authorize(p, op, uuid.Nil)
	if !decision.Allowed {
		writeError(w, http.StatusForbidden, "forbidden", string(decision.Reason))
		return identity.Principal{}, false
	}
	return p, true
}

func bookAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireAuthorized(w, r, identity.OpBook)
		if !ok {
			return
		}

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		var departmentID *uuid.UUID
		if req.DepartmentID != "" {
			id, err := uuid.Parse(req.DepartmentID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_department_id", "department_id must be a valid UUID")
				return
			}
			departmentID = &id
		}

		appt, err := svc.Book(r.Context(), p.ID, doctorID, departmentID, req.Date, req.Time, req.Remarks)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func listAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		var (
			list []scheduling.Appointment
			err  error
		)
		switch p.Role {
		case identity.RoleAdmin:
			if _, ok := requireAuthorized(w, r, identity.OpListAll); !ok {
				return
			}
			list, err = svc.ListAll(r.Context())
		case identity.RoleDoctor:
			if _, ok := requireAuthorized(w, r, identity.OpListOwn); !ok {
				return
			}
			list, err = svc.ListForDoctor(r.Context(), p.ID)
		default:
			if _, ok := requireAuthorized(w, r, identity.OpListOwn); !ok {
				return
			}
			list, err = svc.ListForPatient(r.Context(), p.ID)
		}
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func cancelAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireAuthorized(w, r, identity.OpCancel)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		if err := svc.Cancel(r.Context(), p.ID, id); err != nil {
			handleSchedulingError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func completeAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireAuthorized(w, r, identity.OpComplete)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CompleteAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Diagnosis == "" {
			writeError(w, http.StatusBadRequest, "missing_diagnosis", "diagnosis is required")
			return
		}

		treatment, err := svc.Complete(r.Context(), p.ID, id, scheduling.TreatmentInput{
			Diagnosis:    req.Diagnosis,
			Prescription: req.Prescription,
			Notes:        req.Notes,
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTreatmentResponse(*treatment))
	}
}

func listTreatmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireAuthorized(w, r, identity.OpListTreatments)
		if !ok {
			return
		}

		records, err := svc.TreatmentsForPatient(r.Context(), p.ID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		out := make([]TreatmentRecordResponse, 0, len(records))
		for _, rec := range records {
			out = append(out, TreatmentRecordResponse{
				TreatmentResponse: toTreatmentResponse(rec.Treatment),
				AppointmentDate:   rec.AppointmentDate.Format("2006-01-02"),
				DoctorID:          rec.DoctorID,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func exportTreatmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireAuthorized(w, r, identity.OpExportTreatments)
		if !ok {
			return
		}

		jobID, err := svc.RequestTreatmentsExport(r.Context(), p.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusAccepted, ExportResponse{JobID: jobID})
	}
}

func handleSchedulingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrMalformedInput):
		writeError(w, http.StatusBadRequest, "malformed_input", err.Error())
	case errors.Is(err, scheduling.ErrInvalidDoctor):
		writeError(w, http.StatusUnprocessableEntity, "invalid_doctor", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", "the requested slot is already booked")
	case errors.Is(err, scheduling.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", string(identity.DenyNotOwner))
	case errors.Is(err, scheduling.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
