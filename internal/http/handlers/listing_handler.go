package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/accmarket-backend/internal/dto"
	"github.com/ignatzorin/accmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/accmarket-backend/internal/models"
	"github.com/ignatzorin/accmarket-backend/internal/service"
)

// Estimator выдаёт ориентировочную оценку стоимости аккаунта.
type Estimator interface {
	Estimate(ctx context.Context, profile *models.AccountProfile) (int64, error)
}

// ListingHandler предоставляет HTTP слой реестра листингов.
type ListingHandler struct {
	listings  *service.ListingService
	fetcher   service.ProfileFetcher
	estimator Estimator
}

// NewListingHandler создаёт хэндлер.
func NewListingHandler(listings *service.ListingService, fetcher service.ProfileFetcher, estimator Estimator) *ListingHandler {
	return &ListingHandler{listings: listings, fetcher: fetcher, estimator: estimator}
}

// Create обрабатывает POST /listings — заявку продавца на листинг.
func (h *ListingHandler) Create(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.CreateListingRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	res, err := h.listings.CreateListing(c.Request.Context(), sellerID, service.CreateListingInput{
		Username:      req.Username,
		FollowerCount: req.FollowerCount,
		AvgViews:      req.AvgViews,
		Price:         req.Price,
		EvidenceRef:   req.EvidenceRef,
	})
	if err != nil {
		c.Error(err)
		return
	}

	// Отклонённая заявка — не ошибка запроса: запись создана и несёт
	// полный список причин для повторной подачи.
	if !res.Verification.Approved() {
		c.JSON(http.StatusUnprocessableEntity, dto.VerificationRejectedResponse{
			Error:   "verification_rejected",
			Reasons: res.Verification.Reasons,
			Listing: dto.NewListingResponse(res.Listing, res.Verification),
		})
		return
	}

	c.JSON(http.StatusCreated, dto.NewListingResponse(res.Listing, res.Verification))
}

// Get обрабатывает GET /listings/:id.
func (h *ListingHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, rec, err := h.listings.GetListing(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListingResponse(listing, rec))
}

// List обрабатывает GET /listings — витрину доступных листингов.
func (h *ListingHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	listings, err := h.listings.ListAvailable(c.Request.Context(), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.PaginatedListingsResponse{
		Data: listings,
		Pagination: dto.Pagination{
			Total:   len(listings),
			Limit:   limit,
			Offset:  offset,
			HasMore: len(listings) == limit,
		},
	})
}

// Mine обрабатывает GET /listings/my — листинги текущего продавца.
func (h *ListingHandler) Mine(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}
	limit, offset := common.GetPagination(c)

	listings, err := h.listings.ListBySeller(c.Request.Context(), sellerID, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

// Withdraw обрабатывает POST /listings/:id/withdraw.
func (h *ListingHandler) Withdraw(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.listings.WithdrawListing(c.Request.Context(), id, sellerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// Estimate обрабатывает GET /listings/estimate — необязывающую оценку
// стоимости аккаунта до подачи заявки.
func (h *ListingHandler) Estimate(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		common.RespondBadRequest(c, "параметр username обязателен")
		return
	}

	profile, err := h.fetcher.Fetch(c.Request.Context(), username)
	if err != nil {
		c.Error(err)
		return
	}
	if !profile.Exists {
		common.RespondNotFound(c, "аккаунт не найден")
		return
	}

	estimate, err := h.estimator.Estimate(c.Request.Context(), profile)
	if err != nil {
		c.Error(err)
		return
	}

	// Вилка ±20%: оценка сугубо ориентировочная.
	c.JSON(http.StatusOK, dto.EstimateResponse{
		Username:      username,
		EstimatedMin:  estimate * 80 / 100,
		EstimatedMax:  estimate * 120 / 100,
		Informational: true,
	})
}
