// Package site serves the BookBrainz site routes on top of the model engine.
package site

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"bookbrainz-site/internal/auth"
	"bookbrainz-site/internal/engine"
	"bookbrainz-site/internal/metadata"
)

// Handler serves generic model routes under /api.
type Handler struct {
	engine *engine.Engine
	log    zerolog.Logger
}

func NewHandler(e *engine.Engine, log zerolog.Logger) *Handler {
	return &Handler{engine: e, log: log}
}

// List handles GET /api/:model
func (h *Handler) List(c *fiber.Ctx) error {
	model, err := h.resolveModel(c)
	if err != nil {
		return err
	}

	opts := readOptions(c)
	rows, err := h.engine.Find(c.UserContext(), model, opts)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []engine.Entity{}
	}

	return c.JSON(fiber.Map{
		"data": rows,
		"meta": fiber.Map{"total": len(rows)},
	})
}

// GetByID handles GET /api/:model/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	model, err := h.resolveModel(c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	row, err := h.engine.FindOne(c.UserContext(), model, id, readOptions(c))
	if err != nil {
		return err
	}
	if row == nil {
		return engine.NotFoundError(model.Name(), id)
	}

	return c.JSON(fiber.Map{"data": row, "title": h.title(model, row)})
}

// Create handles POST /api/:model
func (h *Handler) Create(c *fiber.Ctx) error {
	model, err := h.resolveModel(c)
	if err != nil {
		return err
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	resp, err := h.engine.Create(c.UserContext(), model, body, engine.WriteOptions{Session: auth.GetSession(c)})
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": resp})
}

// Update handles PUT /api/:model/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	model, err := h.resolveModel(c)
	if err != nil {
		return err
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	resp, err := h.engine.Update(c.UserContext(), model, c.Params("id"), body, engine.WriteOptions{Session: auth.GetSession(c)})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Delete handles DELETE /api/:model/:id. An optional body carries deletion
// metadata such as the revision note.
func (h *Handler) Delete(c *fiber.Ctx) error {
	model, err := h.resolveModel(c)
	if err != nil {
		return err
	}

	var body map[string]any
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
		}
	}

	resp, err := h.engine.Delete(c.UserContext(), model, c.Params("id"), body, engine.WriteOptions{Session: auth.GetSession(c)})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resp})
}

func (h *Handler) resolveModel(c *fiber.Ctx) (*metadata.Model, error) {
	name := c.Params("model")
	model := h.engine.Registry().Lookup(name)
	if model == nil {
		return nil, engine.UnknownModelError(name)
	}
	return model, nil
}

// title renders the display title, using the concrete child for results of
// abstract models.
func (h *Handler) title(model *metadata.Model, row engine.Entity) string {
	if tag, ok := row["_type"].(string); ok && model.Abstract() {
		if child, ok := model.Child(tag); ok {
			model = child
		}
	}
	title, err := model.Title(row)
	if err != nil {
		h.log.Warn().Err(err).Str("model", model.Name()).Msg("title evaluation failed")
		return model.Name()
	}
	return title
}

// readOptions maps the query string onto find options: populate lists the
// references to resolve, every other parameter goes to the web service.
func readOptions(c *fiber.Ctx) engine.FindOptions {
	opts := engine.FindOptions{Session: auth.GetSession(c)}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		if k == "populate" {
			opts.Populate = append(opts.Populate, engine.Populate(string(value))...)
			return
		}
		if opts.Params == nil {
			opts.Params = map[string][]string{}
		}
		opts.Params.Add(k, string(value))
	})
	return opts
}
