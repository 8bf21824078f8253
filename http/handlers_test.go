package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutripredict/db"
	"nutripredict/ml"
	"nutripredict/monitoring"
)

const sampleCSV = `Dish Name,Calories (kcal),Carbs (g),Protein (g),Fat (g)
Pav Bhaji,300.4,45.2,8.1,10.3
Masala Dosa,250.0,38.5,6.2,8.7
Chole Bhature,450.7,52.3,12.4,20.1
Paneer Tikka,280.3,10.2,18.6,17.9
Aloo Paratha,320.5,48.6,7.3,11.2
`

func samplePredictor(t *testing.T) *ml.Predictor {
	t.Helper()
	ds, err := ml.ReadDataset(strings.NewReader(sampleCSV), ml.DefaultColumns())
	require.NoError(t, err)
	artifact, _, err := ml.Train(ds, ml.DefaultTrainingOptions())
	require.NoError(t, err)
	p, err := ml.NewPredictor(artifact, ml.DefaultPredictorOptions())
	require.NoError(t, err)
	return p
}

type fakeHistory struct {
	mu          sync.Mutex
	predictions []db.PredictionRecord
	runs        []db.TrainingRun
	saveErr     error
}

func (f *fakeHistory) SavePrediction(ctx context.Context, rec db.PredictionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.predictions = append(f.predictions, rec)
	return nil
}

func (f *fakeHistory) RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.predictions) {
		limit = len(f.predictions)
	}
	return f.predictions[:limit], nil
}

func (f *fakeHistory) TrainingRuns(ctx context.Context, limit int) ([]db.TrainingRun, error) {
	return f.runs, nil
}

type failingPredictor struct{}

func (failingPredictor) Predict(string) (ml.Nutrition, error) { return ml.Nutrition{}, errors.New("boom") }
func (failingPredictor) Suggest(string) (ml.Match, bool)      { return ml.Match{}, false }
func (failingPredictor) Dishes() []string                     { return nil }

func newTestHandler(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	if deps.Predictor == nil {
		p := samplePredictor(t)
		deps.Predictor = func() NutritionPredictor { return p }
	}
	return NewHandler(DefaultServerConfig(), NewHandlers(deps))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthHandler(t *testing.T) {
	h := newTestHandler(t, Dependencies{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestPredictJSON(t *testing.T) {
	h := newTestHandler(t, Dependencies{})

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"dish":"pav bhaji"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var got ml.Nutrition
	decodeBody(t, w, &got)
	assert.Equal(t, ml.Nutrition{Dish: "Pav Bhaji", Calories: 300.4, Carbs: 45.2, Protein: 8.1, Fat: 10.3}, got)

	var raw map[string]interface{}
	decodeBody(t, w, &raw)
	assert.Contains(t, raw, "Calories (kcal)")
}

func TestPredictQueryMatchesTypo(t *testing.T) {
	h := newTestHandler(t, Dependencies{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predict?dish="+url.QueryEscape("masla dosa"), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got ml.Nutrition
	decodeBody(t, w, &got)
	assert.Equal(t, "Masala Dosa", got.Dish)
	assert.Equal(t, 250.0, got.Calories)
}

func TestPredictErrors(t *testing.T) {
	h := newTestHandler(t, Dependencies{})

	tests := []struct {
		name   string
		req    *http.Request
		status int
		errMsg string
	}{
		{"empty", httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"dish":"   "}`)), http.StatusBadRequest, "invalid input"},
		{"missing query", httptest.NewRequest(http.MethodGet, "/api/predict", nil), http.StatusBadRequest, "invalid input"},
		{"not found", httptest.NewRequest(http.MethodGet, "/api/predict?dish=zzzzzz", nil), http.StatusNotFound, "dish not found"},
		{"malformed body", httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"dish":`)), http.StatusBadRequest, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, tt.req)

			assert.Equal(t, tt.status, w.Code)
			var body map[string]string
			decodeBody(t, w, &body)
			assert.Equal(t, tt.errMsg, body["error"])
		})
	}
}

func TestPredictInternalError(t *testing.T) {
	h := newTestHandler(t, Dependencies{
		Predictor: func() NutritionPredictor { return failingPredictor{} },
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predict?dish=pav", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "prediction failed")
}

func TestDishesHandler(t *testing.T) {
	h := newTestHandler(t, Dependencies{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dishes", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Dishes []string `json:"dishes"`
		Count  int      `json:"count"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, 5, body.Count)
	assert.Contains(t, body.Dishes, "Chole Bhature")
}

func TestFormPage(t *testing.T) {
	h := newTestHandler(t, Dependencies{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, `<form method="post" action="/">`)
	assert.Contains(t, body, `<option value="Paneer Tikka">`)
	assert.NotContains(t, body, "Nutrition for")
}

func TestFormSubmit(t *testing.T) {
	h := newTestHandler(t, Dependencies{})

	tests := []struct {
		name  string
		dish  string
		wants []string
	}{
		{"found", "PAV BHAJI", []string{"Nutrition for Pav Bhaji", "Calories: 300.4 kcal", "Carbs: 45.2 g", "Protein: 8.1 g", "Fat: 10.3 g"}},
		{"empty", "", []string{msgEmptyInput}},
		{"not found", "zzzzzz", []string{msgDishNotFound}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"dish": {tt.dish}}
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			for _, want := range tt.wants {
				assert.Contains(t, w.Body.String(), want)
			}
		})
	}
}

func TestPredictionHistory(t *testing.T) {
	history := &fakeHistory{}
	h := newTestHandler(t, Dependencies{History: history})

	for _, dish := range []string{" paneer tikka ", "zzzzzz", ""} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predict?dish="+url.QueryEscape(dish), nil))
	}

	require.Len(t, history.predictions, 1)
	assert.Equal(t, "paneer tikka", history.predictions[0].Query)
	assert.Equal(t, "Paneer Tikka", history.predictions[0].Dish)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predictions/recent?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Predictions []db.PredictionRecord `json:"predictions"`
	}
	decodeBody(t, w, &body)
	require.Len(t, body.Predictions, 1)
	assert.Equal(t, 280.3, body.Predictions[0].Calories)
}

func TestHistoryFailureDoesNotFailPrediction(t *testing.T) {
	h := newTestHandler(t, Dependencies{History: &fakeHistory{saveErr: errors.New("disk full")}})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predict?dish=aloo+paratha", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTrainingLog(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := newTestHandler(t, Dependencies{})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/training/log", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		history := &fakeHistory{runs: []db.TrainingRun{{ModelName: "calories", RMSE: 12.5, DataPoints: 5}}}
		h := newTestHandler(t, Dependencies{History: history})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/training/log", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Runs []db.TrainingRun `json:"runs"`
		}
		decodeBody(t, w, &body)
		require.Len(t, body.Runs, 1)
		assert.Equal(t, 12.5, body.Runs[0].RMSE)
	})

	t.Run("bad limit", func(t *testing.T) {
		h := newTestHandler(t, Dependencies{History: &fakeHistory{}})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/training/log?limit=-1", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := monitoring.NewMetrics()
	h := newTestHandler(t, Dependencies{Metrics: metrics})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predict?dish=zzzzzz", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `nutripredict_predictions_total{outcome="not_found"} 1`)
}

func TestParseLimit(t *testing.T) {
	limit, err := parseLimit(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, defaultListLimit, limit)

	limit, err = parseLimit(httptest.NewRequest(http.MethodGet, "/x?limit=5000", nil))
	require.NoError(t, err)
	assert.Equal(t, maxListLimit, limit)

	_, err = parseLimit(httptest.NewRequest(http.MethodGet, "/x?limit=abc", nil))
	assert.Error(t, err)
}

func TestServerStartStop(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Port = 0
	p := samplePredictor(t)
	srv := NewServer(cfg, NewHandlers(Dependencies{Predictor: func() NutritionPredictor { return p }}))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, srv.Stop())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
