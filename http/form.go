package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"nutripredict/logger"
	"nutripredict/ml"
)

const (
	msgEmptyInput   = "Please enter a dish name."
	msgDishNotFound = "Dish not found in database. Try a different name."
	msgPredictError = "Prediction failed. Please try again."
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// pageData 页面渲染数据
type pageData struct {
	Query   string
	Dishes  []string
	Warning string
	Error   string
	Result  *ml.Nutrition
}

func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, pageData{Dishes: h.deps.Predictor().Dishes()})
}

// handleFormSubmit 表单提交，界面状态始终返回200
func (h *Handlers) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	query := r.PostForm.Get("dish")
	data := pageData{Query: query, Dishes: h.deps.Predictor().Dishes()}

	result, err := h.predict(r.Context(), query)
	switch {
	case err == nil:
		data.Result = &result
	case errors.Is(err, ml.ErrEmptyInput):
		data.Warning = msgEmptyInput
	case errors.Is(err, ml.ErrDishNotFound):
		data.Error = msgDishNotFound
	default:
		data.Error = msgPredictError
	}
	h.renderPage(w, data)
}

func (h *Handlers) renderPage(w http.ResponseWriter, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
