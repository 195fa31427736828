package gallery

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/xwurfel/gallerykit/internal/media"
	"github.com/xwurfel/gallerykit/internal/source"
)

// Handler exposes the controller over HTTP and WebSocket so out-of-process
// hosts can embed the gallery. Every command endpoint mutates the controller
// and returns the resulting state snapshot.
type Handler struct {
	controller *Controller
	repo       source.Repository
	cfg        Config
	thumbs     *media.Thumbnailer
}

func NewHandler(controller *Controller, repo source.Repository, cfg Config) *Handler {
	return &Handler{
		controller: controller,
		repo:       repo,
		cfg:        cfg,
		thumbs:     media.NewThumbnailer(),
	}
}

func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/gallery")

	api.Get("/state", h.GetState)
	api.Get("/config", h.GetConfig)
	api.Get("/filter", h.GetFilter)
	api.Get("/item", h.GetItem)
	api.Get("/thumbnail", h.GetThumbnail)

	api.Post("/refresh", h.Refresh)
	api.Post("/album", h.OpenAlbum)
	api.Post("/filter", h.UpdateFilter)
	api.Post("/selection/toggle", h.ToggleSelection)
	api.Post("/selection/clear", h.ClearSelection)
	api.Post("/selection/confirm", h.ConfirmSelection)
	api.Post("/view-mode/toggle", h.ToggleViewMode)
	api.Post("/columns", h.SetGridColumns)
	api.Post("/click", h.MediaClicked)
	api.Post("/back", h.BackPressed)

	app.Use("/ws/gallery", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/gallery", websocket.New(h.StreamState))
}

func (h *Handler) GetState(c *fiber.Ctx) error {
	return c.JSON(h.controller.State())
}

func (h *Handler) GetConfig(c *fiber.Ctx) error {
	return c.JSON(h.cfg)
}

func (h *Handler) GetFilter(c *fiber.Ctx) error {
	return c.JSON(h.controller.Filter())
}

func (h *Handler) GetItem(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id query parameter is required",
		})
	}

	item, err := h.repo.FetchItem(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch media item",
		})
	}
	if item == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "media item not found",
		})
	}
	return c.JSON(item)
}

// GetThumbnail renders a square cover thumbnail for a local item. Cloud items
// already expose presigned URLs and are served by their store directly.
func (h *Handler) GetThumbnail(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id query parameter is required",
		})
	}

	item, err := h.repo.FetchItem(c.Context(), id)
	if err != nil || item == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "media item not found",
		})
	}
	if !item.IsLocal || item.Path == "" || !item.IsImage() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "item has no local thumbnail",
		})
	}

	f, err := os.Open(item.Path)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "media file not readable",
		})
	}
	defer f.Close()

	data, format, err := h.thumbs.Generate(f)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate thumbnail",
		})
	}

	c.Set("Content-Type", "image/"+format)
	return c.Send(data)
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	h.controller.Refresh(c.Context())
	return c.JSON(h.controller.State())
}

func (h *Handler) OpenAlbum(c *fiber.Ctx) error {
	var req struct {
		AlbumID string `json:"album_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	h.controller.OpenAlbum(c.Context(), req.AlbumID)
	return c.JSON(h.controller.State())
}

func (h *Handler) UpdateFilter(c *fiber.Ctx) error {
	var filter media.Filter
	if err := c.BodyParser(&filter); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if len(filter.MediaTypes) == 0 {
		filter.MediaTypes = []media.Type{media.TypeImage, media.TypeVideo}
	}
	if filter.SortBy == "" {
		filter.SortBy = media.SortDateModifiedDesc
	}
	h.controller.UpdateFilter(c.Context(), filter)
	return c.JSON(h.controller.State())
}

func (h *Handler) ToggleSelection(c *fiber.Ctx) error {
	var item media.Item
	if err := c.BodyParser(&item); err != nil || item.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid media item",
		})
	}
	h.controller.ToggleSelection(item)
	return c.JSON(h.controller.State())
}

func (h *Handler) ClearSelection(c *fiber.Ctx) error {
	h.controller.ClearSelection()
	return c.JSON(h.controller.State())
}

func (h *Handler) ConfirmSelection(c *fiber.Ctx) error {
	h.controller.ConfirmSelection()
	return c.JSON(fiber.Map{
		"confirmed": len(h.controller.State().Selected),
	})
}

func (h *Handler) ToggleViewMode(c *fiber.Ctx) error {
	h.controller.ToggleViewMode()
	return c.JSON(h.controller.State())
}

func (h *Handler) SetGridColumns(c *fiber.Ctx) error {
	var req struct {
		Columns int `json:"columns"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	h.controller.SetGridColumns(req.Columns)
	return c.JSON(h.controller.State())
}

func (h *Handler) MediaClicked(c *fiber.Ctx) error {
	var item media.Item
	if err := c.BodyParser(&item); err != nil || item.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid media item",
		})
	}
	h.controller.MediaClicked(item)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) BackPressed(c *fiber.Ctx) error {
	h.controller.BackPressed(c.Context())
	return c.JSON(h.controller.State())
}

// StreamState pushes every state snapshot to the socket, starting with the
// current one. The read loop exists only to notice the peer closing.
func (h *Handler) StreamState(conn *websocket.Conn) {
	states, unsubscribe := h.controller.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case state, ok := <-states:
			if !ok {
				return
			}
			if err := conn.WriteJSON(state); err != nil {
				log.Printf("Gallery state stream write failed: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
