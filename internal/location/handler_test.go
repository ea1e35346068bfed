package location_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	"github.com/frahmantamala/inspection-workflow/internal/location"
	locationPostgres "github.com/frahmantamala/inspection-workflow/internal/location/postgres"
	"github.com/frahmantamala/inspection-workflow/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Location Handler Integration", func() {
	var (
		db      *gorm.DB
		service *location.Service
		handler *location.Handler
		manager *auth.Actor
	)

	withActor := func(req *http.Request, actor *auth.Actor) *http.Request {
		return req.WithContext(auth.WithActor(req.Context(), actor))
	}

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = database.OpenInMemory()
		Expect(err).NotTo(HaveOccurred())

		service = location.NewService(locationPostgres.NewLocationRepository(db), slogger)
		handler = location.NewHandler(&transport.BaseHandler{Logger: slogger}, service)
		manager = &auth.Actor{ID: 1, Username: "manager1", Role: auth.RoleManager}

		for _, name := range []string{"Plant A", "Plant B"} {
			_, err := service.Create(context.Background(), manager, location.LocationDTO{Name: name})
			Expect(err).NotTo(HaveOccurred())
		}
	})

	AfterEach(func() {
		Expect(database.Close(db)).To(Succeed())
	})

	It("lists active locations", func() {
		req := withActor(httptest.NewRequest(http.MethodGet, "/locations", nil), manager)
		w := httptest.NewRecorder()

		handler.GetLocations(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp location.LocationsResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Locations).To(HaveLen(2))
		Expect(resp.Locations[0].Name).To(Equal("Plant A"))
	})

	It("returns 401 without an actor", func() {
		w := httptest.NewRecorder()
		handler.GetLocations(w, httptest.NewRequest(http.MethodGet, "/locations", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("returns 409 for a duplicate create", func() {
		req := withActor(httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(`{"name":"plant a"}`)), manager)
		w := httptest.NewRecorder()

		handler.CreateLocation(w, req)

		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("returns 403 when an inspector creates a location", func() {
		inspector := &auth.Actor{ID: 2, Username: "inspector1", Role: auth.RoleInspector}
		req := withActor(httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(`{"name":"Plant C"}`)), inspector)
		w := httptest.NewRecorder()

		handler.CreateLocation(w, req)

		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("soft deletes through the router", func() {
		r := chi.NewRouter()
		r.Delete("/locations/{id}", handler.DeleteLocation)

		req := withActor(httptest.NewRequest(http.MethodDelete, "/locations/1", nil), manager)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		all, err := service.List(context.Background(), manager, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(2))
		active, err := service.List(context.Background(), manager, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(HaveLen(1))
	})
})
