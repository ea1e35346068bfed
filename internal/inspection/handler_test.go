package inspection_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/inspection"
	inspectionPostgres "github.com/frahmantamala/inspection-workflow/internal/inspection/postgres"
	"github.com/frahmantamala/inspection-workflow/internal/storage"
	"github.com/frahmantamala/inspection-workflow/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

var _ = Describe("Inspection Handler Integration", func() {
	var (
		db        *gorm.DB
		router    chi.Router
		manager   *auth.Actor
		inspector *auth.Actor
	)

	do := func(actor *auth.Actor, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
		if body == nil {
			body = &bytes.Buffer{}
		}
		req := httptest.NewRequest(method, target, body)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req = req.WithContext(auth.WithActor(req.Context(), actor))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	doJSON := func(actor *auth.Actor, method, target, body string) *httptest.ResponseRecorder {
		return do(actor, method, target, bytes.NewBufferString(body), "application/json")
	}

	decode := func(w *httptest.ResponseRecorder) *inspection.Inspection {
		var insp inspection.Inspection
		Expect(json.NewDecoder(w.Body).Decode(&insp)).To(Succeed())
		return &insp
	}

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		db, err = database.OpenInMemory()
		Expect(err).NotTo(HaveOccurred())

		for _, u := range []*userDatamodel.User{
			{Username: "mia", StaffID: "S001", Email: "mia@example.com", FullName: "Mia", PasswordHash: "x", Role: auth.RoleManager, IsActive: true},
			{Username: "ivy", StaffID: "S002", Email: "ivy@example.com", FullName: "Ivy", PasswordHash: "x", Role: auth.RoleInspector, IsActive: true},
		} {
			Expect(db.Create(u).Error).To(Succeed())
		}
		manager = &auth.Actor{ID: 1, Username: "mia", Role: auth.RoleManager}
		inspector = &auth.Actor{ID: 2, Username: "ivy", Role: auth.RoleInspector}

		service := inspection.NewService(inspectionPostgres.NewInspectionRepository(db), nil, storage.NewFsStorage(afero.NewMemMapFs()), nil, slogger)
		handler := inspection.NewHandler(service, 1<<20)
		handler.BaseHandler = &transport.BaseHandler{Logger: slogger}

		router = chi.NewRouter()
		router.Post("/inspections", handler.AssignInspection)
		router.Get("/inspections", handler.ListInspections)
		router.Get("/inspections/stats", handler.GetStats)
		router.Get("/inspections/{id}", handler.GetInspection)
		router.Post("/inspections/{id}/submit", handler.SubmitInspection)
		router.Post("/inspections/{id}/approve", handler.ApproveInspection)
		router.Post("/inspections/{id}/reject", handler.RejectInspection)
		router.Get("/inspections/{id}/report", handler.DownloadReport)
	})

	AfterEach(func() {
		Expect(database.Close(db)).To(Succeed())
	})

	It("walks an inspection through review over HTTP", func() {
		// Given
		w := doJSON(manager, http.MethodPost, "/inspections",
			`{"inspector_id":2,"title":"Crane","location":"Dock 4","scheduled_date":"2026-05-01"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
		created := decode(w)
		Expect(created.Status).To(Equal(inspection.StatusScheduled))

		// When the inspector submits a multipart form with a PDF
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		Expect(mw.WriteField("findings", "cable worn")).To(Succeed())
		Expect(mw.WriteField("recommendations", "replace cable")).To(Succeed())
		part, err := mw.CreateFormFile("pdf_file", "crane.pdf")
		Expect(err).NotTo(HaveOccurred())
		_, _ = part.Write([]byte("%PDF-1.7 crane"))
		Expect(mw.Close()).To(Succeed())

		w = do(inspector, http.MethodPost, fmt.Sprintf("/inspections/%d/submit", created.ID), body, mw.FormDataContentType())

		// Then
		Expect(w.Code).To(Equal(http.StatusOK))
		submitted := decode(w)
		Expect(submitted.Status).To(Equal(inspection.StatusPendingReview))
		Expect(*submitted.ReportFindings).To(Equal("cable worn"))

		w = doJSON(manager, http.MethodPost, fmt.Sprintf("/inspections/%d/reject", created.ID), `{"reason":""}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = doJSON(manager, http.MethodPost, fmt.Sprintf("/inspections/%d/approve", created.ID), `{"notes":"fine"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w).Status).To(Equal(inspection.StatusCompleted))

		w = do(inspector, http.MethodGet, fmt.Sprintf("/inspections/%d/report", created.ID), nil, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(Equal("application/pdf"))
		Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring("inspection_1_report.pdf"))
		Expect(w.Body.String()).To(Equal("%PDF-1.7 crane"))
	})

	It("maps lifecycle violations to 409", func() {
		w := doJSON(manager, http.MethodPost, "/inspections",
			`{"inspector_id":2,"title":"Crane","location":"Dock 4","scheduled_date":"2026-05-01"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		w = doJSON(manager, http.MethodPost, "/inspections/1/approve", "")
		Expect(w.Code).To(Equal(http.StatusConflict))

		var resp struct {
			Error struct {
				Type string `json:"type"`
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Error.Type).To(Equal("INVALID_STATE"))
		Expect(resp.Error.Code).To(Equal("INVALID_INSPECTION_STATUS"))
	})

	It("maps role and visibility failures to 403 and 404", func() {
		w := doJSON(inspector, http.MethodPost, "/inspections",
			`{"inspector_id":2,"title":"Crane","location":"Dock 4","scheduled_date":"2026-05-01"}`)
		Expect(w.Code).To(Equal(http.StatusForbidden))

		w = doJSON(manager, http.MethodPost, "/inspections",
			`{"inspector_id":1,"title":"Crane","location":"Dock 4","scheduled_date":"2026-05-01"}`)
		Expect(w.Code).To(Equal(http.StatusNotFound))

		w = do(inspector, http.MethodGet, "/inspections/42", nil, "")
		Expect(w.Code).To(Equal(http.StatusNotFound))

		w = do(inspector, http.MethodGet, "/inspections/abc", nil, "")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("lists with history filters and validates them", func() {
		doJSON(manager, http.MethodPost, "/inspections", `{"inspector_id":2,"title":"A","location":"L","scheduled_date":"2026-05-01"}`)
		doJSON(manager, http.MethodPost, "/inspections", `{"inspector_id":2,"title":"B","location":"L","scheduled_date":"2026-06-01"}`)

		w := do(inspector, http.MethodGet, "/inspections?month=5&year=2026&status=scheduled", nil, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp inspection.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.TotalCount).To(Equal(1))
		Expect(resp.Inspections[0].Title).To(Equal("A"))

		w = do(inspector, http.MethodGet, "/inspections?status=bogus", nil, "")
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = do(inspector, http.MethodGet, "/inspections?month=may", nil, "")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("serves window stats", func() {
		doJSON(manager, http.MethodPost, "/inspections", `{"inspector_id":2,"title":"A","location":"L","scheduled_date":"2026-05-01"}`)

		w := do(manager, http.MethodGet, "/inspections/stats?period=month", nil, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(strings.Contains(w.Body.String(), `"filter_period":"month"`)).To(BeTrue())
		Expect(strings.Contains(w.Body.String(), `"total_inspections":1`)).To(BeTrue())
		Expect(strings.Contains(w.Body.String(), `"changes"`)).To(BeTrue())
	})
})
