package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/service"
)

// FileHandler serves public image downloads. Book documents go through
// BookHandler.Read so the book's visibility is checked.
type FileHandler struct {
	Files *service.FileService
}

func NewFileHandler(files *service.FileService) *FileHandler {
	return &FileHandler{Files: files}
}

// Image streams an image blob (covers, recipe images).
func (h *FileHandler) Image(c echo.Context) error {
	obj, err := h.Files.OpenImage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return stream(c, obj, "")
}
