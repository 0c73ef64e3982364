package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/accmarket-backend/internal/dto"
	"github.com/ignatzorin/accmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/accmarket-backend/internal/service"
)

// TransactionHandler предоставляет HTTP слой покупки через эскроу.
type TransactionHandler struct {
	listings *service.ListingService
}

// NewTransactionHandler создаёт хэндлер.
func NewTransactionHandler(listings *service.ListingService) *TransactionHandler {
	return &TransactionHandler{listings: listings}
}

// Purchase обрабатывает POST /purchases — попытку купить листинг.
func (h *TransactionHandler) Purchase(c *gin.Context) {
	buyerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.PurchaseRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор листинга")
		return
	}

	tx, err := h.listings.InitiatePurchase(c.Request.Context(), listingID, buyerID, req.Amount)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// Finalize обрабатывает POST /purchases/:id/finalize — завершение сделки
// после AML-проверки.
func (h *TransactionHandler) Finalize(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondUnauthorized(c, "")
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	tx, err := h.listings.FinalizeSale(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// Get обрабатывает GET /purchases/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	tx, err := h.listings.GetTransaction(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	// Транзакцию видят только её стороны.
	listing, _, err := h.listings.GetListing(c.Request.Context(), tx.ListingID)
	if err != nil {
		c.Error(err)
		return
	}
	if userID != tx.BuyerID && userID != listing.SellerID {
		common.RespondForbidden(c, "")
		return
	}

	c.JSON(http.StatusOK, tx)
}
