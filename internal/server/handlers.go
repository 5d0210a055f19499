package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bz888/cardadvisor/internal/logger"
	"github.com/bz888/cardadvisor/internal/server/ollama"
)

const systemPrompt = "You are a credit card recommendation assistant. " +
	"Read the user's spending habits or question and recommend the credit card that gives them the most benefit. " +
	"Explain the recommendation briefly."

type ChatRequest struct {
	Query string `json:"query"`
}

type Handler struct {
	ollamaClient ollama.ClientInterface
	model        string
	log          *logger.Logger
}

func NewHandler(ollamaClient ollama.ClientInterface, model string) *Handler {
	return &Handler{
		ollamaClient: ollamaClient,
		model:        model,
		log:          logger.NewLogger("Server"),
	}
}

// ChatHandler answers one query with the complete model reply as a JSON string.
func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var clientReq ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&clientReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(clientReq.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	apiReq := ollama.ChatRequest{
		Model: h.model,
		Messages: []ollama.Message{
			{Role: ollama.RoleSystem, Content: systemPrompt},
			{Role: ollama.RoleUser, Content: clientReq.Query},
		},
		Stream: true,
	}

	var reply strings.Builder
	err := h.ollamaClient.Chat(r.Context(), &apiReq, func(bts []byte) error {
		var apiResp ollama.ChatResponse
		if err := json.Unmarshal(bts, &apiResp); err != nil {
			h.log.Error("Failed to unmarshal response:", err)
			h.log.Error("Raw response data:", string(bts))
			return err
		}
		if apiResp.Error != "" {
			return &upstreamError{apiResp.Error}
		}
		reply.WriteString(apiResp.Message.Content)
		if apiResp.Done {
			h.log.Info("Completed response of", reply.Len(), "bytes")
		}
		return nil
	})
	if err != nil {
		h.log.Error("Chat failed:", err)
		http.Error(w, "Failed to process request: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply.String()); err != nil {
		h.log.Error("Failed to encode response:", err)
	}
}

func (h *Handler) ModelHandler(w http.ResponseWriter, r *http.Request) {
	models, err := h.ollamaClient.GetModels(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch data: "+err.Error(), http.StatusBadGateway)
		return
	}

	names := make([]string, len(models))
	for i, model := range models {
		names[i] = model.Name
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(names); err != nil {
		http.Error(w, "Failed to encode response: "+err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	status := struct {
		ServerWorking bool   `json:"server_working"`
		Model         string `json:"model"`
	}{
		ServerWorking: true,
		Model:         h.model,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Error("Failed to encode status:", err)
	}
}

type upstreamError struct {
	msg string
}

func (e *upstreamError) Error() string {
	return "ollama: " + e.msg
}
