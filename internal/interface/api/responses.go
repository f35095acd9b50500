package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/usecase"
	"killua-service-provider/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ServiceResponse is the wire form of a service
type ServiceResponse struct {
	ID              string          `json:"id"`
	PackageID       int             `json:"packageId"`
	PriestName      string          `json:"priestName"`
	AvailableDate   string          `json:"availableDate"`
	ChurchVenue     string          `json:"churchVenue"`
	Status          entity.Status   `json:"status"`
	EffectiveStatus entity.Status   `json:"effectiveStatus"`
	BookBy          *string         `json:"bookBy"`
	BookDate        *time.Time      `json:"bookDate"`
	AllowedActions  []entity.Action `json:"allowedActions"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func toServiceResponse(v *usecase.ServiceView) ServiceResponse {
	actions := v.AllowedActions
	if actions == nil {
		actions = []entity.Action{}
	}
	return ServiceResponse{
		ID:              v.ID,
		PackageID:       v.PackageID,
		PriestName:      v.PriestName,
		AvailableDate:   utils.FormatDate(v.AvailableDate),
		ChurchVenue:     v.ChurchVenue,
		Status:          v.Status,
		EffectiveStatus: v.EffectiveStatus,
		BookBy:          v.BookBy,
		BookDate:        v.BookDate,
		AllowedActions:  actions,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

// NotificationResponse is the wire form of a notification
type NotificationResponse struct {
	ID           string           `json:"id"`
	EventType    entity.EventType `json:"eventType"`
	Style        entity.Style     `json:"style"`
	ServiceID    string           `json:"serviceId,omitempty"`
	PackageID    int              `json:"packageId"`
	Message      string           `json:"message"`
	Read         bool             `json:"read"`
	CreatedAt    time.Time        `json:"createdAt"`
	DispatchedAt *time.Time       `json:"dispatchedAt,omitempty"`
}

func toNotificationResponse(n *entity.Notification) NotificationResponse {
	return NotificationResponse{
		ID:           n.ID,
		EventType:    n.EventType,
		Style:        n.EventType.Style(),
		ServiceID:    n.ServiceID,
		PackageID:    n.PackageID,
		Message:      n.Message,
		Read:         n.Read,
		CreatedAt:    n.CreatedAt,
		DispatchedAt: n.DispatchedAt,
	}
}

// statusFor maps a domain error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrServiceNotFound), errors.Is(err, entity.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrConcurrentUpdate),
		errors.Is(err, entity.ErrAlreadyNotified):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Store failures are hidden behind a generic message.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	switch status {
	case http.StatusInternalServerError:
		resp.Error = "internal error"
	case http.StatusGatewayTimeout:
		resp.Error = "request timed out"
	}

	c.AbortWithStatusJSON(status, resp)
}
