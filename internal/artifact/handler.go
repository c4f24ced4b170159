package artifact

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves published artifacts over HTTP.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Register mounts GET, HEAD and DELETE /recordings/:id.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/recordings/:id", h.serve)
	r.HEAD("/recordings/:id", h.serve)
	r.DELETE("/recordings/:id", h.revoke)
}

func (h *Handler) serve(c *gin.Context) {
	item, err := h.store.Get(c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", item.MimeType)
	c.Header("Cache-Control", "no-store")
	http.ServeContent(c.Writer, c.Request, "", item.CreatedAt, bytes.NewReader(item.Data))
}

func (h *Handler) revoke(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.Get(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.store.Revoke(id)
	c.Status(http.StatusNoContent)
}
