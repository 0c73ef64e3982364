package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/accmarket-backend/internal/dto"
	"github.com/ignatzorin/accmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/accmarket-backend/internal/storage"
)

// EvidenceHandler принимает и отдаёт улики владения аккаунтом.
type EvidenceHandler struct {
	store *storage.EvidenceStorage
}

// NewEvidenceHandler создаёт хэндлер.
func NewEvidenceHandler(store *storage.EvidenceStorage) *EvidenceHandler {
	return &EvidenceHandler{store: store}
}

// Upload обрабатывает POST /evidence — multipart загрузку улики.
func (h *EvidenceHandler) Upload(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "файл обязателен")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}
	defer file.Close()

	ref, err := h.store.Put(c.Request.Context(), file)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.EvidenceUploadResponse{
		Ref:  ref,
		Size: fileHeader.Size,
	})
}

// Download обрабатывает GET /evidence/:ref.
func (h *EvidenceHandler) Download(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	ref := c.Param("ref")
	rc, err := h.store.Get(c.Request.Context(), ref)
	if err != nil {
		common.RespondNotFound(c, "улика не найдена")
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		// Ответ уже начат, остаётся только оборвать соединение.
		c.Abort()
	}
}
