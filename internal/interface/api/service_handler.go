package api

import (
	"context"
	"net/http"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/usecase"
	"killua-service-provider/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ServiceUsecase is what the service handler needs from the lifecycle layer
type ServiceUsecase interface {
	Create(ctx context.Context, draft entity.ServiceDraft) (*usecase.ServiceView, error)
	Get(ctx context.Context, id string) (*usecase.ServiceView, error)
	List(ctx context.Context, tab entity.Tab) ([]*usecase.ServiceView, error)
	NextPackageID(ctx context.Context) (int, error)
	Request(ctx context.Context, id, requestedBy string) (*usecase.ServiceView, error)
	Accept(ctx context.Context, id string) (*usecase.ServiceView, error)
	Reject(ctx context.Context, id string) (*usecase.ServiceView, error)
	Reactivate(ctx context.Context, id string) (*usecase.ServiceView, error)
	NotifyExpired(ctx context.Context, id string) (*usecase.ServiceView, error)
}

// ServiceHandler serves /api/v1/services
type ServiceHandler struct {
	services ServiceUsecase
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(services ServiceUsecase) *ServiceHandler {
	return &ServiceHandler{services: services}
}

// CreateServiceRequest is the body of POST /services
type CreateServiceRequest struct {
	PriestName    string `json:"priestName"`
	AvailableDate string `json:"availableDate"`
	ChurchVenue   string `json:"churchVenue"`
}

// RequestServiceRequest is the body of POST /services/:id/request
type RequestServiceRequest struct {
	RequestedBy string `json:"requestedBy"`
}

func (h *ServiceHandler) CreateService(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &entity.ValidationError{Field: "body", Reason: err.Error()})
		return
	}

	draft := entity.ServiceDraft{
		PriestName:  req.PriestName,
		ChurchVenue: req.ChurchVenue,
	}
	if req.AvailableDate != "" {
		day, err := utils.ParseDate(req.AvailableDate)
		if err != nil {
			writeError(c, &entity.ValidationError{Field: "availableDate", Reason: err.Error()})
			return
		}
		draft.AvailableDate = day
	}

	svc, err := h.services.Create(c.Request.Context(), draft)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toServiceResponse(svc))
}

func (h *ServiceHandler) ListServices(c *gin.Context) {
	tab, ok := entity.ParseTab(c.Query("tab"))
	if !ok {
		writeError(c, &entity.ValidationError{Field: "tab", Reason: "unknown tab " + c.Query("tab")})
		return
	}

	views, err := h.services.List(c.Request.Context(), tab)
	if err != nil {
		writeError(c, err)
		return
	}

	data := make([]ServiceResponse, 0, len(views))
	for _, v := range views {
		data = append(data, toServiceResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{
		"tab":   tab,
		"count": len(data),
		"data":  data,
	})
}

func (h *ServiceHandler) GetService(c *gin.Context) {
	svc, err := h.services.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceResponse(svc))
}

func (h *ServiceHandler) NextPackageID(c *gin.Context) {
	next, err := h.services.NextPackageID(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packageId": next})
}

func (h *ServiceHandler) RequestService(c *gin.Context) {
	var req RequestServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &entity.ValidationError{Field: "requestedBy", Reason: err.Error()})
		return
	}
	h.respond(c, func(ctx context.Context, id string) (*usecase.ServiceView, error) {
		return h.services.Request(ctx, id, req.RequestedBy)
	})
}

func (h *ServiceHandler) AcceptService(c *gin.Context) {
	h.respond(c, h.services.Accept)
}

func (h *ServiceHandler) RejectService(c *gin.Context) {
	h.respond(c, h.services.Reject)
}

func (h *ServiceHandler) ReactivateService(c *gin.Context) {
	h.respond(c, h.services.Reactivate)
}

func (h *ServiceHandler) NotifyExpired(c *gin.Context) {
	h.respond(c, h.services.NotifyExpired)
}

func (h *ServiceHandler) respond(c *gin.Context, action func(ctx context.Context, id string) (*usecase.ServiceView, error)) {
	svc, err := action(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceResponse(svc))
}
