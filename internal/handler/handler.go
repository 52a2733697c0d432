package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	service "github.com/mxkrv/novellib-backend/internal/services"
	pkgerrors "github.com/mxkrv/novellib-backend/pkg/errors"
)

type Handler struct {
	sessions service.SessionService
	invites  service.InviteService
}

func NewHandler(sessions service.SessionService, invites service.InviteService) *Handler {
	return &Handler{sessions: sessions, invites: invites}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/auth/refresh", h.Refresh).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	r.HandleFunc("/teams/{team_id}/invite", h.InviteUserToTeam).Methods("POST")
	r.HandleFunc("/invites/accept", h.AcceptInvite).Methods("POST")
	r.HandleFunc("/notifications", h.ListNotifications).Methods("GET")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	userID, err := h.sessions.Register(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrUserAlreadyExists) {
			h.writeError(w, http.StatusConflict, err)
		} else if errors.Is(err, pkgerrors.ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int32{"user_id": userID})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login         string `json:"login"`
		Password      string `json:"password"`
		IsLongSession bool   `json:"is_long_session"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	pair, err := h.sessions.Login(r.Context(), req.Login, req.Password, req.IsLongSession)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrIncorrectCredentials) {
			h.writeError(w, http.StatusUnauthorized, err)
		} else if errors.Is(err, pkgerrors.ErrTokenConflict) {
			h.writeError(w, http.StatusConflict, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrIncorrectCredentials) {
			h.writeError(w, http.StatusUnauthorized, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int32)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	if err := h.sessions.Logout(r.Context(), userID); err != nil {
		if errors.Is(err, pkgerrors.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) InviteUserToTeam(w http.ResponseWriter, r *http.Request) {
	if _, ok := r.Context().Value("user_id").(int32); !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	teamID, err := strconv.ParseInt(mux.Vars(r)["team_id"], 10, 32)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid team_id"))
		return
	}

	var req struct {
		UserID int32 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	notification, err := h.invites.InviteUserToTeam(r.Context(), int32(teamID), req.UserID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrTeamNotFound) || errors.Is(err, pkgerrors.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, err)
		} else if errors.Is(err, pkgerrors.ErrAlreadyTeamMember) {
			h.writeError(w, http.StatusConflict, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int32{"notification_id": notification.ID})
}

func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int32)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req struct {
		InviteToken string `json:"invite_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.invites.AcceptInvite(r.Context(), userID, req.InviteToken); err != nil {
		if errors.Is(err, pkgerrors.ErrTokenInvalid) {
			h.writeError(w, http.StatusUnauthorized, err)
		} else if errors.Is(err, pkgerrors.ErrAlreadyTeamMember) {
			h.writeError(w, http.StatusConflict, err)
		} else if errors.Is(err, pkgerrors.ErrTeamNotFound) {
			h.writeError(w, http.StatusNotFound, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int32)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	notifications, err := h.invites.ListNotifications(r.Context(), userID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	type notificationResponse struct {
		ID        int32  `json:"id"`
		Type      string `json:"type"`
		Payload   string `json:"payload"`
		IsWatched bool   `json:"is_watched"`
		CreatedAt string `json:"created_at"`
	}
	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, notificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Payload:   n.Payload,
			IsWatched: n.IsWatched,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}
