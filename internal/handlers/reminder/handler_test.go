package reminder_test

import (
	"net/http"
	"net/http/httptest"
	"roombook/infras/otel/mocks"
	reminderMocks "roombook/internal/domains/reminder/mocks"
	"roombook/internal/domains/reminder/model/dto"
	"roombook/internal/handlers/reminder"
	"roombook/shared/failure"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func setup(t *testing.T) (*chi.Mux, *reminderMocks.MockReminder) {
	t.Helper()

	svc := reminderMocks.NewMockReminder(gomock.NewController(t))
	handler := reminder.New(svc, mocks.NewOtel())

	router := chi.NewRouter()
	handler.Router(router, func(next http.Handler) http.Handler { return next })

	return router, svc
}

func TestPreview(t *testing.T) {
	t.Run("default lookahead", func(t *testing.T) {
		router, svc := setup(t)

		svc.EXPECT().Preview(gomock.Any(), 24, gomock.Any()).Return(dto.PreviewResponse{Due: []dto.DueBooking{}}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reminders", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("explicit lookahead", func(t *testing.T) {
		router, svc := setup(t)

		svc.EXPECT().Preview(gomock.Any(), 6, gomock.Any()).Return(dto.PreviewResponse{Due: []dto.DueBooking{}}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reminders?lookahead=6", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non numeric lookahead", func(t *testing.T) {
		router, _ := setup(t)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reminders?lookahead=soon", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDispatch(t *testing.T) {
	t.Run("report", func(t *testing.T) {
		router, svc := setup(t)

		svc.EXPECT().Dispatch(gomock.Any(), 24, gomock.Any()).Return(dto.DispatchReport{
			Sent:     []int64{1, 3},
			Failures: []dto.SendFailure{{ID: 2, Error: "whatsapp: status 401"}},
		}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reminders/dispatch", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"sent":[1,3]`)
		assert.Contains(t, rec.Body.String(), `"error":"whatsapp: status 401"`)
	})

	t.Run("lookahead out of range", func(t *testing.T) {
		router, svc := setup(t)

		svc.EXPECT().Dispatch(gomock.Any(), 73, gomock.Any()).Return(dto.DispatchReport{}, failure.BadRequestFromString("lookahead must be between 1 and 72 hours"))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reminders/dispatch?lookahead=73", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
