package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/set-night/crazegpt/internal/render"
	"github.com/set-night/crazegpt/internal/service"
)

// Handler serves the browser API for a single conversation.
type Handler struct {
	chat   *service.ChatService
	files  *service.FileService
	images *service.ImageService
	events *Broadcaster
}

func New(chat *service.ChatService, files *service.FileService, images *service.ImageService, events *Broadcaster) *Handler {
	return &Handler{chat: chat, files: files, images: images, events: events}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleListSessions)
	r.Post("/sessions", h.handleNewSession)
	r.Get("/sessions/{id}", h.handleSelectSession)
	r.Delete("/sessions/{id}", h.handleDeleteSession)

	r.Get("/chat", h.handleChatState)
	r.Post("/messages", h.handleSend)
	r.Put("/messages/{id}", h.handleEdit)

	r.Post("/render", h.handleRender)
	r.Post("/images", h.handleGenerateImage)
	r.Post("/files", h.handleGenerateFile)
	r.Get("/files/{id}", h.handleDownloadFile)

	r.Get("/models", h.handleListModels)
	r.Put("/model", h.handleSetModel)

	r.Get("/events", h.handleEvents)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.chat.Sessions(r.Context()))
}

func (h *Handler) handleNewSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusCreated, h.chat.NewSession())
}

func (h *Handler) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chat.SelectSession(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		slog.Error("select session", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		slog.Error("delete session", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleChatState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.chat.State())
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text       string             `json:"text"`
		Attachment *domain.Attachment `json:"attachment"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.RequestTimeout)
	defer cancel()

	res, err := h.chat.Send(ctx, service.SendInput{Text: payload.Text, Attachment: payload.Attachment})
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "message is empty")
	case errors.Is(err, domain.ErrActiveRequest):
		respondError(w, http.StatusConflict, "a message is already being sent")
	case err != nil:
		slog.Error("send message", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to send message")
	default:
		respondJSON(w, http.StatusOK, res)
	}
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chat.Edit(r.Context(), id, payload.Text)
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "message is empty")
	case errors.Is(err, domain.ErrMessageNotFound):
		respondError(w, http.StatusNotFound, "message not found")
	case errors.Is(err, domain.ErrNotEditable):
		respondError(w, http.StatusUnprocessableEntity, "only user messages can be edited")
	case err != nil:
		slog.Error("edit message", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to edit message")
	default:
		respondJSON(w, http.StatusOK, msg)
	}
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	respondJSON(w, http.StatusOK, render.Render(payload.Text))
}

func (h *Handler) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	img, err := h.images.Generate(r.Context(), payload.Prompt, payload.Width, payload.Height)
	if err != nil {
		slog.Error("generate image", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to generate image")
		return
	}
	respondJSON(w, http.StatusOK, img)
}

type fileResponse struct {
	domain.GeneratedFile
	DownloadURL string `json:"downloadUrl"`
}

func (h *Handler) handleGenerateFile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Type     string `json:"type"`
		Content  string `json:"content"`
		Filename string `json:"filename"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.files.Generate(payload.Type, payload.Content, payload.Filename)
	if errors.Is(err, domain.ErrUnsupportedFileType) {
		respondError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	if err != nil {
		slog.Error("generate file", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to generate file")
		return
	}
	respondJSON(w, http.StatusCreated, fileResponse{
		GeneratedFile: file,
		DownloadURL:   "/api/files/" + service.BlobID(file.URL),
	})
}

func (h *Handler) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	url := "blob:" + chi.URLParam(r, "id")

	file, err := h.files.Lookup(url)
	if errors.Is(err, domain.ErrBlobNotFound) {
		respondError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load file")
		return
	}

	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	if _, err := h.files.Download(w, url); err != nil {
		slog.Warn("download file", "url", url, "error", err)
	}
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.chat.Models(r.Context()))
}

func (h *Handler) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.chat.SetModel(r.Context(), payload.ID)
	if errors.Is(err, domain.ErrModelNotFound) {
		respondError(w, http.StatusNotFound, "model not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to set model")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
