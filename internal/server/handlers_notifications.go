package server

import (
	"fmt"
	"net/http"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

func (s *Server) handleNotificationList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := queryLimit(r, 50, 200)
	notifications, err := s.app.Storage.Notifications().List(limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing notifications: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.app.Storage.Notifications().MarkRead(id); err != nil {
		if err == models.ErrNotFound {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Notification %s not found", id))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error marking notification read: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"read": id})
}
