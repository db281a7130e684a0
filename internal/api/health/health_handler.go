package health

import (
	"context"
	"net/http"
	"time"

	"github.com/hsm-gustavo/todo-go/internal/api/response"
	"github.com/hsm-gustavo/todo-go/internal/db"
)

type StatusResponse struct {
	Status  string `json:"status" example:"online"`
	Message string `json:"message" example:"API is working correctly"`
}

// StoreState reports the store handle if one has been bootstrapped.
type StoreState interface {
	Ready() (*db.Store, bool)
}

// HealthHandler godoc
//
//	@Summary		Health check endpoint
//	@Description	Check if the API process is running
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse	"API is healthy"
//	@Router			/health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, StatusResponse{
		Status:  "online",
		Message: "API is working correctly",
	})
}

// ReadyHandler godoc
//
//	@Summary		Readiness check endpoint
//	@Description	Reports whether the store has been bootstrapped and answers a ping. Never triggers a bootstrap.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse	"Store ready"
//	@Failure		503	{object}	StatusResponse	"Store not ready"
//	@Router			/health/ready [get]
func ReadyHandler(state StoreState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := state.Ready()
		if !ok {
			response.JSON(w, http.StatusServiceUnavailable, StatusResponse{
				Status:  "unavailable",
				Message: "Store not connected yet",
			})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.DB.PingContext(ctx); err != nil {
			response.JSON(w, http.StatusServiceUnavailable, StatusResponse{
				Status:  "unavailable",
				Message: "Store is not answering",
			})
			return
		}

		response.JSON(w, http.StatusOK, StatusResponse{
			Status:  "ready",
			Message: "Store connected",
		})
	}
}
