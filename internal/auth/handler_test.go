package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/transport"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		handler *Handler
		service *Service
	)

	ginkgo.BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		tokenGen := NewJWTTokenGenerator("test-access-secret", "test-refresh-secret", time.Minute, time.Hour)
		service = NewService(newMockRepository(), tokenGen, nil, slogger)
		handler = &Handler{BaseHandler: &transport.BaseHandler{Logger: slogger}, Service: service}
	})

	login := func(identifier, password string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"username": identifier, "password": password})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)
		return rec
	}

	ginkgo.It("returns 200 with tokens on a valid login", func() {
		rec := login("inspector1", "correct_password")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var tokens AuthTokens
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &tokens)).To(gomega.Succeed())
		gomega.Expect(tokens.TokenType).To(gomega.Equal("Bearer"))
	})

	ginkgo.It("returns 401 on bad credentials and 403 for inactive users", func() {
		gomega.Expect(login("inspector1", "nope").Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(login("retired", "correct_password").Code).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("returns 400 on a malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var seen *Actor
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = ActorFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})

		ginkgo.BeforeEach(func() { seen = nil })

		ginkgo.It("puts the actor into the request context", func() {
			tokens, err := service.Authenticate(context.Background(), LoginDTO{Identifier: "manager1", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
			rec := httptest.NewRecorder()
			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(seen).ToNot(gomega.BeNil())
			gomega.Expect(seen.ID).To(gomega.Equal(int64(2)))
			gomega.Expect(seen.IsManager()).To(gomega.BeTrue())
		})

		ginkgo.It("rejects requests without a bearer token", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			rec := httptest.NewRecorder()
			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(seen).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("RBACAuthorization", func() {
		ginkgo.It("blocks roles that are not listed", func() {
			rbac := NewRBACAuthorization(handler.Logger)
			guarded := rbac.RequireManager()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithActor(req.Context(), &Actor{ID: 7, Role: RoleInspector}))
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))

			req = req.WithContext(WithActor(req.Context(), &Actor{ID: 1, Role: RoleManager}))
			rec = httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})
	})
})
