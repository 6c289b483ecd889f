package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/MikeSquared-Agency/Topsis/internal/store"
)

// MockStore records CreateRun calls through testify; everything else falls
// through to the in-memory store.
type MockStore struct {
	*mockStore
	mock.Mock
}

func (m *MockStore) CreateRun(ctx context.Context, run *store.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func newScoreHandler(s store.Store, sender *mockSender) http.HandlerFunc {
	h := NewTopsisHandler(s, nil, sender, 1<<20, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h.Score
}

func TestScore_StoreFailureStillAnswers(t *testing.T) {
	ms := &MockStore{mockStore: newMockStore()}
	ms.On("CreateRun", mock.Anything, mock.MatchedBy(func(r *store.Run) bool {
		return r.Status == store.RunCompleted && r.Alternatives == 4 && r.InputName == "data.csv"
	})).Return(errors.New("disk full"))

	req := multipartRequest(t, "/api/v1/topsis", map[string]string{"weights": "1,1,1", "impacts": "+,+,-"}, sampleCSV)
	w := httptest.NewRecorder()
	newScoreHandler(ms, &mockSender{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	ms.AssertExpectations(t)
}

func TestScore_RecordsParsedInputs(t *testing.T) {
	ms := &MockStore{mockStore: newMockStore()}
	ms.On("CreateRun", mock.Anything, mock.MatchedBy(func(r *store.Run) bool {
		return assert.ObjectsAreEqual([]float64{2, 1, 1}, r.Weights) &&
			assert.ObjectsAreEqual([]string{"+", "+", "-"}, r.Impacts) &&
			assert.ObjectsAreEqual([]string{"M1", "M2", "M3", "M4"}, r.Labels)
	})).Return(nil).Once()

	req := multipartRequest(t, "/api/v1/topsis", map[string]string{"weights": "2, 1, 1", "impacts": "+ , +, -"}, sampleCSV)
	w := httptest.NewRecorder()
	newScoreHandler(ms, &mockSender{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	ms.AssertExpectations(t)
}

func TestScore_MailFailure(t *testing.T) {
	ms := &MockStore{mockStore: newMockStore()}
	sender := &mockSender{enabled: true, err: errors.New("connection refused")}

	req := multipartRequest(t, "/api/v1/topsis", map[string]string{
		"weights": "1,1,1", "impacts": "+,+,-", "email": "analyst@example.com",
	}, sampleCSV)
	w := httptest.NewRecorder()
	newScoreHandler(ms, sender).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	ms.AssertNotCalled(t, "CreateRun", mock.Anything, mock.Anything)
}

func TestScore_BadWeightsRecordedWithoutWeights(t *testing.T) {
	ms := &MockStore{mockStore: newMockStore()}
	ms.On("CreateRun", mock.Anything, mock.MatchedBy(func(r *store.Run) bool {
		return r.Status == store.RunFailed && r.ErrorKind == "type" && r.Weights == nil &&
			assert.ObjectsAreEqual([]string{"+", "+", "-"}, r.Impacts)
	})).Return(nil).Once()

	req := multipartRequest(t, "/api/v1/topsis", map[string]string{"weights": "1,heavy,1", "impacts": "+,+,-"}, sampleCSV)
	w := httptest.NewRecorder()
	newScoreHandler(ms, &mockSender{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	ms.AssertExpectations(t)
}
