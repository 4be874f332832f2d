package app

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/auth"
	"github.com/Spok95/acadify-records/internal/ctxutil"
	"github.com/Spok95/acadify-records/internal/deanslist"
	"github.com/Spok95/acadify-records/internal/eligibility"
	"github.com/Spok95/acadify-records/internal/lifecycle"
	"github.com/Spok95/acadify-records/internal/logging"
	"github.com/Spok95/acadify-records/internal/metrics"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/window"
)

type GradeService interface {
	Access(ctx context.Context, actor models.Actor, subjectID int64) (window.Access, error)
	ListGrades(ctx context.Context, actor models.Actor, subjectID int64) (*models.Subject, []models.GradeRow, error)
	SaveGrades(ctx context.Context, actor models.Actor, subjectID int64, entries []lifecycle.Entry) (lifecycle.SaveResult, error)
	Submit(ctx context.Context, actor models.Actor, subjectID int64) (lifecycle.SubmitResult, error)
	Approve(ctx context.Context, actor models.Actor, gradeIDs []int64) (lifecycle.ApproveResult, error)
	Unlock(ctx context.Context, actor models.Actor, subjectID int64) (int, error)
}

type WindowService interface {
	Location() *time.Location
	RefreshStatuses(ctx context.Context) (window.RefreshSummary, error)
	ListSchedules(ctx context.Context, actor models.Actor, t *models.Term) ([]models.EncodingSchedule, error)
	CreateSchedule(ctx context.Context, actor models.Actor, in window.ScheduleInput) (*models.EncodingSchedule, error)
	UpdateSchedule(ctx context.Context, actor models.Actor, id int64, in window.ScheduleInput) (*models.EncodingSchedule, error)
	CloseSchedule(ctx context.Context, actor models.Actor, id int64) error
	DeleteSchedule(ctx context.Context, actor models.Actor, id int64) error
	ListExceptions(ctx context.Context, actor models.Actor, t *models.Term) ([]models.EncodingException, error)
	GrantException(ctx context.Context, actor models.Actor, in window.ExceptionInput) (*models.EncodingException, error)
	RevokeException(ctx context.Context, actor models.Actor, id int64) error
}

type EligibilityService interface {
	Check(ctx context.Context, actor models.Actor, studentID int64, term models.Term) (eligibility.Result, error)
}

type DeansListService interface {
	Compute(ctx context.Context, actor models.Actor, term models.Term) (deanslist.Summary, error)
	List(ctx context.Context, actor models.Actor, term models.Term, department string) ([]models.DeansListRecord, error)
	Export(ctx context.Context, actor models.Actor, term models.Term, department string) (deanslist.Report, error)
}

type Deps struct {
	DB          Pinger
	Grades      GradeService
	Windows     WindowService
	Eligibility EligibilityService
	DeansList   DeansListService
	Verifier    *auth.Verifier
	CORSOrigins []string
	Log         *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type api struct {
	Deps
	validate *validator.Validate
}

func NewRouter(d Deps) http.Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	a := &api{Deps: d, validate: newValidator()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLog)
	r.Use(middleware.Recoverer)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition", "X-Archive-Location"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", healthz(d.DB))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(d.Verifier.Middleware(a.unauthorized))

		r.Route("/subjects/{id}", func(r chi.Router) {
			r.Get("/encoding-access", op("grades.access", a.encodingAccess))
			r.Get("/grades", op("grades.list", a.listGrades))
			r.Put("/grades", op("grades.save", a.saveGrades))
			r.Post("/grades/submit", op("grades.submit", a.submitGrades))
			r.Post("/grades/unlock", op("grades.unlock", a.unlockGrades))
			r.Get("/grades/export", op("grades.export", a.exportGrades))
		})
		r.Post("/grades/approve", op("grades.approve", a.approveGrades))

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", op("schedules.list", a.listSchedules))
			r.Post("/", op("schedules.create", a.createSchedule))
			r.Post("/refresh", op("schedules.refresh", a.refreshSchedules))
			r.Put("/{id}", op("schedules.update", a.updateSchedule))
			r.Delete("/{id}", op("schedules.delete", a.deleteSchedule))
			r.Post("/{id}/close", op("schedules.close", a.closeSchedule))
		})
		r.Route("/exceptions", func(r chi.Router) {
			r.Get("/", op("exceptions.list", a.listExceptions))
			r.Post("/", op("exceptions.grant", a.grantException))
			r.Post("/{id}/revoke", op("exceptions.revoke", a.revokeException))
		})

		r.Get("/students/{id}/deans-list-eligibility", op("eligibility.check", a.checkEligibility))
		r.Route("/deans-list", func(r chi.Router) {
			r.Get("/", op("deanslist.list", a.listDeansList))
			r.Post("/compute", op("deanslist.compute", a.computeDeansList))
			r.Get("/export", op("deanslist.export", a.exportDeansList))
		})
	})
	return r
}

// op names the operation in the request context for logs.
func op(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(ctxutil.WithOp(r.Context(), name)))
	}
}

// requestLog writes one zap line per request and counts it by route pattern.
func (a *api) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(ctxutil.WithRequestID(r.Context(), id))
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		log := logging.FromContext(r.Context(), a.Log)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			log.Warn("http request", fields...)
			return
		}
		log.Debug("http request", fields...)
	})
}
