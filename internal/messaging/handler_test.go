package messaging_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/messaging"
	messagingPostgres "github.com/frahmantamala/inspection-workflow/internal/messaging/postgres"
	"github.com/frahmantamala/inspection-workflow/internal/storage"
	"github.com/frahmantamala/inspection-workflow/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

var _ = Describe("Messaging Handler Integration", func() {
	var (
		db        *gorm.DB
		router    chi.Router
		manager   *auth.Actor
		inspector *auth.Actor
		outsider  *auth.Actor
		insp      *inspectionDatamodel.Inspection
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

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		db, err = database.OpenInMemory()
		Expect(err).NotTo(HaveOccurred())

		for _, u := range []*userDatamodel.User{
			{Username: "mia", StaffID: "S001", Email: "mia@example.com", FullName: "Mia", PasswordHash: "x", Role: auth.RoleManager, IsActive: true},
			{Username: "ivy", StaffID: "S002", Email: "ivy@example.com", FullName: "Ivy", PasswordHash: "x", Role: auth.RoleInspector, IsActive: true},
			{Username: "oz", StaffID: "S003", Email: "oz@example.com", FullName: "Oz", PasswordHash: "x", Role: auth.RoleInspector, IsActive: true},
		} {
			Expect(db.Create(u).Error).To(Succeed())
		}
		manager = &auth.Actor{ID: 1, Username: "mia", Role: auth.RoleManager}
		inspector = &auth.Actor{ID: 2, Username: "ivy", Role: auth.RoleInspector}
		outsider = &auth.Actor{ID: 3, Username: "oz", Role: auth.RoleInspector}

		insp = &inspectionDatamodel.Inspection{
			Title: "Crane", Location: "Dock 4", Status: "scheduled", ScheduledDate: time.Now(),
			InspectorID: 2, AssignedBy: 1, Version: 1,
		}
		Expect(db.Create(insp).Error).To(Succeed())

		service := messaging.NewService(messagingPostgres.NewMessageRepository(db), storage.NewFsStorage(afero.NewMemMapFs()), nil, slogger)
		handler := messaging.NewHandler(service, 1<<20)
		handler.BaseHandler = &transport.BaseHandler{Logger: slogger}

		router = chi.NewRouter()
		router.Post("/messages", handler.SendMessage)
		router.Get("/messages", handler.MyMessages)
		router.Get("/messages/threads", handler.ListThreads)
		router.Get("/messages/threads/{thread_id}", handler.GetThread)
		router.Get("/messages/unread-count", handler.UnreadCount)
		router.Post("/messages/{id}/read", handler.MarkRead)
		router.Get("/messages/{id}/attachment", handler.DownloadAttachment)
		router.Get("/inspections/{id}/messages", handler.InspectionMessages)
	})

	AfterEach(func() {
		Expect(database.Close(db)).To(Succeed())
	})

	It("runs a conversation about an inspection", func() {
		// Given
		w := doJSON(manager, http.MethodPost, "/messages",
			fmt.Sprintf(`{"receiver_id":2,"content":"Any update?","subject":"Crane","inspection_id":%d}`, insp.ID))
		Expect(w.Code).To(Equal(http.StatusCreated))
		var sent messaging.Message
		Expect(json.NewDecoder(w.Body).Decode(&sent)).To(Succeed())
		threadID := fmt.Sprintf("inspection_%d_user_1_2", insp.ID)
		Expect(sent.ThreadID).To(Equal(threadID))

		w = doJSON(inspector, http.MethodGet, "/messages/unread-count", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"unread_count":1}`))

		// When the inspector replies and the manager reads the thread
		w = doJSON(inspector, http.MethodPost, "/messages",
			fmt.Sprintf(`{"receiver_id":1,"content":"Tomorrow","inspection_id":%d,"reply_to_id":%d}`, insp.ID, sent.ID))
		Expect(w.Code).To(Equal(http.StatusCreated))

		w = doJSON(manager, http.MethodGet, "/messages/threads/"+threadID, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var thread messaging.ThreadResponse
		Expect(json.NewDecoder(w.Body).Decode(&thread)).To(Succeed())
		Expect(thread.Messages).To(HaveLen(2))

		// Then
		w = doJSON(manager, http.MethodGet, "/messages/threads", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var threads messaging.ThreadsResponse
		Expect(json.NewDecoder(w.Body).Decode(&threads)).To(Succeed())
		Expect(threads.Threads).To(HaveLen(1))
		Expect(threads.Threads[0].MessageCount).To(Equal(int64(2)))
		Expect(threads.Threads[0].UnreadCount).To(BeZero())
		Expect(threads.Threads[0].Subject).To(Equal("Crane"))

		w = doJSON(manager, http.MethodGet, fmt.Sprintf("/inspections/%d/messages", insp.ID), "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var about messaging.MessagesResponse
		Expect(json.NewDecoder(w.Body).Decode(&about)).To(Succeed())
		Expect(about.TotalCount).To(Equal(2))
	})

	It("maps errors to status codes", func() {
		w := doJSON(manager, http.MethodPost, "/messages", `{"receiver_id":1,"content":"me"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = doJSON(manager, http.MethodPost, "/messages", `{"receiver_id":99,"content":"hi"}`)
		Expect(w.Code).To(Equal(http.StatusNotFound))

		w = doJSON(manager, http.MethodPost, "/messages", `{"receiver_id":2,"content":"hi","inspection_id":999}`)
		Expect(w.Code).To(Equal(http.StatusNotFound))

		w = doJSON(manager, http.MethodPost, "/messages", `{"receiver_id":2,"content":"hi"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		w = doJSON(outsider, http.MethodGet, "/messages/threads/user_1_2", "")
		Expect(w.Code).To(Equal(http.StatusNotFound))

		w = doJSON(manager, http.MethodPost, "/messages/1/read", "")
		Expect(w.Code).To(Equal(http.StatusNotFound))

		w = doJSON(inspector, http.MethodPost, "/messages/1/read", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		w = doJSON(inspector, http.MethodPost, "/messages/1/read", "")
		Expect(w.Code).To(Equal(http.StatusOK))

		w = doJSON(inspector, http.MethodPost, "/messages/abc/read", "")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("accepts a multipart message with an attachment and serves it back", func() {
		// Given
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		Expect(mw.WriteField("receiver_id", "1")).To(Succeed())
		Expect(mw.WriteField("content", "photo of the hook")).To(Succeed())
		part, err := mw.CreateFormFile("attachment", "hook.png")
		Expect(err).NotTo(HaveOccurred())
		_, _ = part.Write([]byte("png-bytes"))
		Expect(mw.Close()).To(Succeed())

		// When
		w := do(inspector, http.MethodPost, "/messages", body, mw.FormDataContentType())

		// Then
		Expect(w.Code).To(Equal(http.StatusCreated))
		var sent messaging.Message
		Expect(json.NewDecoder(w.Body).Decode(&sent)).To(Succeed())
		Expect(*sent.AttachmentType).To(Equal(messaging.AttachmentImage))
		Expect(*sent.AttachmentName).To(Equal("hook.png"))

		w = do(manager, http.MethodGet, fmt.Sprintf("/messages/%d/attachment", sent.ID), nil, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(Equal("image/png"))
		Expect(w.Body.String()).To(Equal("png-bytes"))

		w = do(outsider, http.MethodGet, fmt.Sprintf("/messages/%d/attachment", sent.ID), nil, "")
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
