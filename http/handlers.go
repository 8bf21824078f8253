package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nutripredict/db"
	"nutripredict/logger"
	"nutripredict/ml"
	"nutripredict/monitoring"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// NutritionPredictor 预测接口，由 *ml.Predictor 实现
type NutritionPredictor interface {
	Predict(dish string) (ml.Nutrition, error)
	Suggest(dish string) (ml.Match, bool)
	Dishes() []string
}

// HistoryStore 训练记录和预测历史存储，由 *db.Store 实现
type HistoryStore interface {
	SavePrediction(ctx context.Context, rec db.PredictionRecord) error
	RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error)
	TrainingRuns(ctx context.Context, limit int) ([]db.TrainingRun, error)
}

// Dependencies 处理器依赖
type Dependencies struct {
	// Predictor 返回当前生效的预测器，重新加载模型后会返回新的实例
	Predictor func() NutritionPredictor
	// History 为空时不记录预测历史
	History HistoryStore
	Metrics *monitoring.Metrics
	// AllowedOrigins WebSocket来源检查
	AllowedOrigins []string
}

// Handlers HTTP处理器
type Handlers struct {
	deps     Dependencies
	upgrader websocket.Upgrader
}

// NewHandlers 创建处理器
func NewHandlers(deps Dependencies) *Handlers {
	h := &Handlers{deps: deps}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Register 注册路由
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /{$}", h.handleFormSubmit)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/predict", h.handlePredictQuery)
	mux.HandleFunc("POST /api/predict", h.handlePredictJSON)
	mux.HandleFunc("GET /api/dishes", h.handleDishes)
	mux.HandleFunc("GET /api/training/log", h.handleTrainingLog)
	mux.HandleFunc("GET /api/predictions/recent", h.handleRecentPredictions)
	mux.HandleFunc("GET /api/ws/suggest", h.handleSuggestSocket)
	if h.deps.Metrics != nil {
		mux.Handle("GET /metrics", h.deps.Metrics.Handler())
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// predictRequest JSON预测请求
type predictRequest struct {
	Dish string `json:"dish"`
}

func (h *Handlers) handlePredictQuery(w http.ResponseWriter, r *http.Request) {
	h.respondPrediction(w, r, r.URL.Query().Get("dish"))
}

func (h *Handlers) handlePredictJSON(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.respondPrediction(w, r, req.Dish)
}

func (h *Handlers) respondPrediction(w http.ResponseWriter, r *http.Request, dish string) {
	result, err := h.predict(r.Context(), dish)
	switch {
	case err == nil:
		respondJSON(w, result)
	case errors.Is(err, ml.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, ml.ErrDishNotFound):
		writeError(w, http.StatusNotFound, "dish not found")
	default:
		writeError(w, http.StatusInternalServerError, "prediction failed")
	}
}

// predict 执行一次预测，记录指标和历史
func (h *Handlers) predict(ctx context.Context, dish string) (ml.Nutrition, error) {
	start := time.Now()
	result, err := h.deps.Predictor().Predict(dish)

	outcome := monitoring.OutcomeFound
	switch {
	case err == nil:
	case errors.Is(err, ml.ErrEmptyInput):
		outcome = monitoring.OutcomeInvalid
	case errors.Is(err, ml.ErrDishNotFound):
		outcome = monitoring.OutcomeNotFound
	default:
		logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(ctx)),
			zap.String("dish", dish),
			zap.Error(err),
		)
		return ml.Nutrition{}, err
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.ObservePrediction(outcome, time.Since(start))
	}

	if err == nil && h.deps.History != nil {
		rec := db.PredictionRecord{
			Query:    strings.TrimSpace(dish),
			Dish:     result.Dish,
			Calories: result.Calories,
			Carbs:    result.Carbs,
			Protein:  result.Protein,
			Fat:      result.Fat,
		}
		// 历史记录失败不影响预测结果
		if herr := h.deps.History.SavePrediction(ctx, rec); herr != nil {
			logger.Warn("failed to record prediction",
				zap.String("request_id", GetRequestID(ctx)),
				zap.Error(herr),
			)
		}
	}
	return result, err
}

func (h *Handlers) handleDishes(w http.ResponseWriter, r *http.Request) {
	dishes := h.deps.Predictor().Dishes()
	respondJSON(w, map[string]interface{}{
		"dishes": dishes,
		"count":  len(dishes),
	})
}

func (h *Handlers) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not enabled")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := h.deps.History.TrainingRuns(r.Context(), limit)
	if err != nil {
		logger.Error("failed to query training log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query training log")
		return
	}
	respondJSON(w, map[string]interface{}{"runs": runs})
}

func (h *Handlers) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not enabled")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.deps.History.RecentPredictions(r.Context(), limit)
	if err != nil {
		logger.Error("failed to query predictions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query predictions")
		return
	}
	respondJSON(w, map[string]interface{}{"predictions": records})
}

// parseLimit 解析limit参数，默认20，最大200
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

func (h *Handlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.deps.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode JSON", zap.Error(err))
	}
}
