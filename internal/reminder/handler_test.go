package reminder_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/inspection"
	inspectionPostgres "github.com/frahmantamala/inspection-workflow/internal/inspection/postgres"
	"github.com/frahmantamala/inspection-workflow/internal/reminder"
	reminderPostgres "github.com/frahmantamala/inspection-workflow/internal/reminder/postgres"
	"github.com/frahmantamala/inspection-workflow/internal/storage"
	"github.com/frahmantamala/inspection-workflow/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

var _ = Describe("Reminder Handler Integration", func() {
	var (
		db        *gorm.DB
		router    chi.Router
		ivy, ben  *auth.Actor
		insp      *inspectionDatamodel.Inspection
		handler   *reminder.Handler
		fixedTime time.Time
	)

	do := func(actor *auth.Actor, method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(auth.WithActor(req.Context(), actor))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		db, err = database.OpenInMemory()
		Expect(err).NotTo(HaveOccurred())

		for _, u := range []*userDatamodel.User{
			{Username: "mia", StaffID: "S001", Email: "mia@example.com", FullName: "Mia", PasswordHash: "x", Role: auth.RoleManager, IsActive: true},
			{Username: "ivy", StaffID: "S002", Email: "ivy@example.com", FullName: "Ivy", PasswordHash: "x", Role: auth.RoleInspector, IsActive: true},
			{Username: "ben", StaffID: "S003", Email: "ben@example.com", FullName: "Ben", PasswordHash: "x", Role: auth.RoleInspector, IsActive: true},
		} {
			Expect(db.Create(u).Error).To(Succeed())
		}
		ivy = &auth.Actor{ID: 2, Username: "ivy", Role: auth.RoleInspector}
		ben = &auth.Actor{ID: 3, Username: "ben", Role: auth.RoleInspector}

		fixedTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		insp = &inspectionDatamodel.Inspection{
			Title: "Crane", Location: "Dock 4", Status: inspection.StatusScheduled, ScheduledDate: fixedTime,
			InspectorID: 2, AssignedBy: 1, Version: 1,
		}
		Expect(db.Create(insp).Error).To(Succeed())

		inspections := inspection.NewService(inspectionPostgres.NewInspectionRepository(db), nil, storage.NewFsStorage(afero.NewMemMapFs()), nil, slogger)
		service := reminder.NewService(reminderPostgres.NewReminderRepository(db), inspections, nil, slogger)
		handler = reminder.NewHandler(service)
		handler.BaseHandler = &transport.BaseHandler{Logger: slogger}
		handler.Now = func() time.Time { return fixedTime }

		router = chi.NewRouter()
		router.Post("/reminders", handler.CreateReminder)
		router.Get("/reminders", handler.ListReminders)
		router.Get("/reminders/due", handler.DueReminders)
		router.Post("/reminders/{id}/dismiss", handler.DismissReminder)
	})

	AfterEach(func() {
		Expect(database.Close(db)).To(Succeed())
	})

	It("creates, lists and dismisses a reminder", func() {
		// Given
		w := do(ivy, http.MethodPost, "/reminders",
			fmt.Sprintf(`{"inspection_id":%d,"title":"Call the crane operator","remind_at":"2026-05-01T11:00:00Z"}`, insp.ID))
		Expect(w.Code).To(Equal(http.StatusCreated))
		var created reminder.Reminder
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.Status).To(Equal(reminder.StatusPending))
		Expect(created.InspectionTitle).To(Equal("Crane"))

		// When
		w = do(ivy, http.MethodGet, "/reminders/due", "")

		// Then
		Expect(w.Code).To(Equal(http.StatusOK))
		var due reminder.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&due)).To(Succeed())
		Expect(due.TotalCount).To(Equal(1))
		Expect(due.Reminders[0].ID).To(Equal(created.ID))

		w = do(ben, http.MethodPost, fmt.Sprintf("/reminders/%d/dismiss", created.ID), "")
		Expect(w.Code).To(Equal(http.StatusNotFound))

		for i := 0; i < 2; i++ {
			w = do(ivy, http.MethodPost, fmt.Sprintf("/reminders/%d/dismiss", created.ID), "")
			Expect(w.Code).To(Equal(http.StatusOK))
		}

		w = do(ivy, http.MethodGet, "/reminders/due", "")
		Expect(json.NewDecoder(w.Body).Decode(&due)).To(Succeed())
		Expect(due.TotalCount).To(Equal(0))

		w = do(ivy, http.MethodGet, "/reminders", "")
		var mine reminder.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&mine)).To(Succeed())
		Expect(mine.TotalCount).To(Equal(1))
		Expect(mine.Reminders[0].Status).To(Equal(reminder.StatusDismissed))
	})

	It("hides inspections the inspector is not assigned to", func() {
		w := do(ben, http.MethodPost, "/reminders",
			fmt.Sprintf(`{"inspection_id":%d,"title":"x","remind_at":"2026-05-01T11:00:00Z"}`, insp.ID))

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("rejects a malformed fire time", func() {
		w := do(ivy, http.MethodPost, "/reminders",
			fmt.Sprintf(`{"inspection_id":%d,"title":"x","remind_at":"tomorrow"}`, insp.ID))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
