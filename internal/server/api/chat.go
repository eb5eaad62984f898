package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/paranroman/bisimo/internal/chat"
	"github.com/paranroman/bisimo/internal/emotion"
	"github.com/paranroman/bisimo/internal/logging"
)

const fallbackReply = "Waduh error nih, coba lagi ya 😅"

// ChatHandler serves the conversation endpoints.
type ChatHandler struct {
	service *chat.Service
	logger  *slog.Logger
}

// NewChatHandler creates a ChatHandler. A nil logger discards output.
func NewChatHandler(s *chat.Service, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ChatHandler{service: s, logger: logger}
}

// Register mounts the handler's routes on mux.
func (h *ChatHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/chat", h.chat)
	mux.HandleFunc("/reset", h.reset)
	mux.HandleFunc("/test-emotion", h.testEmotion)
	mux.HandleFunc("/labels", h.labels)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	reply, err := h.service.Reply(r.Context(), req.SessionID, req.Message)
	if errors.Is(err, chat.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "Message kosong")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "chat reply failed", slog.String("session", req.SessionID), logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, chatErrorResponse{Error: err.Error(), Message: fallbackReply})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type resetResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (h *ChatHandler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = chat.DefaultSessionID
	}

	h.service.Reset(req.SessionID)
	writeJSON(w, http.StatusOK, resetResponse{Message: "Conversation reset!", SessionID: req.SessionID})
}

type testEmotionRequest struct {
	Text string `json:"text"`
}

type modelResult struct {
	Emotion       string             `json:"emotion"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"all_probabilities"`
}

type testEmotionResponse struct {
	Text            string                  `json:"text"`
	FinalEmotion    string                  `json:"final_emotion"`
	FinalConfidence float64                 `json:"final_confidence"`
	DetectionMethod string                  `json:"detection_method"`
	EmotionLabel    string                  `json:"emotion_label"`
	ModelResult     *modelResult            `json:"indobert_result"`
	KeywordResult   *string                 `json:"keyword_result"`
	Analysis        emotion.MessageAnalysis `json:"analysis"`
	ModelActive     bool                    `json:"indobert_active"`
	ModelLabels     map[int]string          `json:"model_labels"`
}

func (h *ChatHandler) testEmotion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req testEmotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	analyzer := h.service.Analyzer()
	b := analyzer.Explain(r.Context(), req.Text)

	resp := testEmotionResponse{
		Text:            req.Text,
		FinalEmotion:    b.Emotion,
		FinalConfidence: round3(b.Confidence),
		DetectionMethod: b.Method,
		EmotionLabel:    "unknown",
		Analysis:        emotion.Analyze(req.Text),
		ModelActive:     analyzer.HasModel(),
		ModelLabels:     analyzer.Labels(),
	}
	if d, ok := emotion.DisplayFor(b.Emotion); ok {
		resp.EmotionLabel = d.Label
	}
	if b.Keyword != "" {
		kw := b.Keyword
		resp.KeywordResult = &kw
	}
	if b.Model != nil {
		resp.ModelResult = &modelResult{
			Emotion:       b.Model.Emotion,
			Confidence:    round3(b.Model.Confidence),
			Probabilities: b.Model.Probabilities,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type labelsResponse struct {
	ModelLabels map[int]string    `json:"indobert_labels"`
	Mapping     map[string]string `json:"emotion_mapping"`
	Supported   []string          `json:"supported_emotions"`
}

func (h *ChatHandler) labels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, labelsResponse{
		ModelLabels: h.service.Analyzer().Labels(),
		Mapping:     emotion.Aliases(),
		Supported:   emotion.Supported(),
	})
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
