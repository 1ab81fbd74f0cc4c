package site

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterHealthRoutes(app *fiber.App, gatherer prometheus.Gatherer) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// RegisterModelRoutes exposes every registered model under /api. Writes
// require a signed-in session.
func RegisterModelRoutes(app *fiber.App, h *Handler, requireSession fiber.Handler) {
	api := app.Group("/api")

	api.Get("/:model", h.List)
	api.Get("/:model/:id", h.GetByID)
	api.Post("/:model", requireSession, h.Create)
	api.Put("/:model/:id", requireSession, h.Update)
	api.Delete("/:model/:id", requireSession, h.Delete)
}

func RegisterEditionRoutes(app *fiber.App, h *EditionHandler, requireSession fiber.Handler) {
	ed := app.Group("/edition")

	ed.Post("/create/handler", requireSession, h.Create)
	ed.Get("/:bbid", h.Show)
	ed.Get("/:bbid/revisions", h.Revisions)
	ed.Post("/:bbid/edit/handler", requireSession, h.Edit)
	ed.Post("/:bbid/delete/confirm", requireSession, h.ConfirmDelete)
	ed.Get("/:bbid/merge/select", requireSession, h.MergeSelect)
	ed.Get("/:bbid/merge/remove", requireSession, h.MergeRemove)
	ed.Get("/:bbid/merge/cancel", requireSession, h.MergeCancel)
	ed.Get("/:bbid/merge", requireSession, h.Merge)
}
