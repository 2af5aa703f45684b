package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/hospital-scheduling/internal/identity"
	"github.com/hackgods/hospital-scheduling/internal/jobs"
	redisclient "github.com/hackgods/hospital-scheduling/internal/redis"
	"github.com/hackgods/hospital-scheduling/internal/report"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

const dashboardCacheKey = "cache:dashboard_stats"

func dashboardHandler(svc *scheduling.Service, cache *redisclient.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAuthorized(w, r, identity.OpDashboard); !ok {
			return
		}

		var stats scheduling.DashboardStats
		err := cache.GetOrLoad(r.Context(), dashboardCacheKey, &stats, func(ctx context.Context) (any, error) {
			return svc.DashboardStats(ctx, time.Now())
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}

func adminAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAuthorized(w, r, identity.OpListAll); !ok {
			return
		}

		list, err := svc.ListAll(r.Context())
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func exportDoctorHandler(svc *scheduling.Service, directory identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAuthorized(w, r, identity.OpExportDoctor); !ok {
			return
		}

		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		doctor, err := directory.GetUser(r.Context(), doctorID)
		if err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", "no such doctor")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if doctor.Role != identity.RoleDoctor {
			writeError(w, http.StatusNotFound, "doctor_not_found", "no such doctor")
			return
		}

		jobID, err := svc.RequestDoctorExport(r.Context(), doctorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusAccepted, ExportResponse{JobID: jobID})
	}
}

func listReportsHandler(sink report.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAuthorized(w, r, identity.OpReadReports); !ok {
			return
		}

		names, err := sink.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if names == nil {
			names = []string{}
		}

		writeJSON(w, http.StatusOK, map[string][]string{"reports": names})
	}
}

func downloadReportHandler(sink report.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAuthorized(w, r, identity.OpReadReports); !ok {
			return
		}

		name := chi.URLParam(r, "name")
		data, err := sink.Read(name)
		if err != nil {
			if errors.Is(err, report.ErrArtifactNotFound) {
				writeError(w, http.StatusNotFound, "report_not_found", "no such report")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid_report_name", err.Error())
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func listJobsHandler(dispatcher jobs.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAuthorized(w, r, identity.OpInspectJobs); !ok {
			return
		}

		status := jobs.Status(r.URL.Query().Get("status"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		list, err := dispatcher.List(r.Context(), status, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]JobResponse, 0, len(list))
		for _, j := range list {
			out = append(out, toJobResponse(j))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getJobHandler(dispatcher jobs.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAuthorized(w, r, identity.OpInspectJobs); !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_job_id", "id must be a valid UUID")
			return
		}

		job, err := dispatcher.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, jobs.ErrJobNotFound) {
				writeError(w, http.StatusNotFound, "job_not_found", "no such job")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toJobResponse(*job))
	}
}

func updateAccountHandler(directory identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAuthorized(w, r, identity.OpManageAccounts); !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "id must be a valid UUID")
			return
		}

		var req UpdateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Approved == nil && req.Blocked == nil {
			writeError(w, http.StatusBadRequest, "empty_update", "provide approved and/or blocked")
			return
		}

		if err := directory.SetAccountState(r.Context(), id, req.Approved, req.Blocked); err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "user_not_found", "no such user")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		user, err := directory.GetUser(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toUserResponse(*user))
	}
}
