package site

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bookbrainz-site/internal/auth"
	"bookbrainz-site/internal/changeset"
	"bookbrainz-site/internal/engine"
	"bookbrainz-site/internal/entities"
	"bookbrainz-site/internal/metadata"
)

// editionPopulate is what the edition page and edit handler resolve.
var editionPopulate = []string{
	"publication", "publisher", "creator_credit", "edition_format",
	"edition_status", "language", "aliases", "identifiers",
}

// EditionHandler serves the edition pages and form handlers.
type EditionHandler struct {
	engine   *engine.Engine
	sessions *auth.Sessions
	edition  *metadata.Model
	revision *metadata.Model
	user     *metadata.Model
	log      zerolog.Logger
}

func NewEditionHandler(e *engine.Engine, sessions *auth.Sessions, log zerolog.Logger) (*EditionHandler, error) {
	h := &EditionHandler{engine: e, sessions: sessions, log: log}
	for name, dst := range map[string]**metadata.Model{
		entities.Edition:  &h.edition,
		entities.Revision: &h.revision,
		entities.User:     &h.user,
	} {
		m := e.Registry().Lookup(name)
		if m == nil {
			return nil, fmt.Errorf("edition routes: model %s is not declared", name)
		}
		*dst = m
	}
	return h, nil
}

// Show handles GET /edition/:bbid
func (h *EditionHandler) Show(c *fiber.Ctx) error {
	populate := editionPopulate
	if p := c.Query("populate"); p != "" {
		populate = engine.Populate(p)
	}
	edition, err := h.load(c, populate)
	if err != nil {
		return err
	}

	selection, err := h.sessions.Selection(c)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data":        edition,
		"title":       h.title(edition),
		"merge_level": changeset.MergeLevel(selection, c.Params("bbid")),
	})
}

// Create handles POST /edition/create/handler
func (h *EditionHandler) Create(c *fiber.Ctx) error {
	form, err := parseForm(c)
	if err != nil {
		return err
	}

	revision, err := h.engine.Create(c.UserContext(), h.edition, changeset.CreateChanges(*form),
		engine.WriteOptions{Session: auth.GetSession(c)})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": revision})
}

// Edit handles POST /edition/:bbid/edit/handler
func (h *EditionHandler) Edit(c *fiber.Ctx) error {
	form, err := parseForm(c)
	if err != nil {
		return err
	}
	current, err := h.load(c, editionPopulate)
	if err != nil {
		return err
	}

	revision, err := h.engine.Update(c.UserContext(), h.edition, c.Params("bbid"),
		changeset.EditChanges(current, *form), engine.WriteOptions{Session: auth.GetSession(c)})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": revision})
}

// ConfirmDelete handles POST /edition/:bbid/delete/confirm
func (h *EditionHandler) ConfirmDelete(c *fiber.Ctx) error {
	var body struct {
		Note string `json:"note" form:"note"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
		}
	}

	bbid := c.Params("bbid")
	if _, err := h.load(c, nil); err != nil {
		return err
	}

	_, err := h.engine.Delete(c.UserContext(), h.edition, bbid,
		map[string]any{"revision": map[string]any{"note": body.Note}},
		engine.WriteOptions{Session: auth.GetSession(c)})
	if err != nil {
		return err
	}
	return c.Redirect("/edition/"+bbid, fiber.StatusSeeOther)
}

// Revisions handles GET /edition/:bbid/revisions. Each distinct revision
// author is fetched once.
func (h *EditionHandler) Revisions(c *fiber.Ctx) error {
	edition, err := h.load(c, nil)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	sess := auth.GetSession(c)
	revisions, err := h.engine.Find(ctx, h.revision, engine.FindOptions{
		Path:    "/edition/" + url.PathEscape(c.Params("bbid")) + "/revisions",
		Session: sess,
	})
	if err != nil {
		return err
	}

	var userIDs []string
	seen := map[string]bool{}
	for _, rev := range revisions {
		id := userID(rev)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		userIDs = append(userIDs, id)
	}

	found := make([]engine.Entity, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range userIDs {
		i, id := i, id
		g.Go(func() error {
			u, err := h.engine.FindOne(gctx, h.user, id, engine.FindOptions{Session: sess})
			if err != nil {
				return err
			}
			found[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	users := make(map[string]engine.Entity, len(userIDs))
	for i, id := range userIDs {
		users[id] = found[i]
	}

	if revisions == nil {
		revisions = []engine.Entity{}
	}
	return c.JSON(fiber.Map{
		"title": h.title(edition),
		"data":  revisions,
		"users": users,
	})
}

// MergeSelect handles GET /edition/:bbid/merge/select
func (h *EditionHandler) MergeSelect(c *fiber.Ctx) error {
	return h.updateSelection(c, changeset.Select)
}

// MergeRemove handles GET /edition/:bbid/merge/remove
func (h *EditionHandler) MergeRemove(c *fiber.Ctx) error {
	return h.updateSelection(c, changeset.Remove)
}

// MergeCancel handles GET /edition/:bbid/merge/cancel
func (h *EditionHandler) MergeCancel(c *fiber.Ctx) error {
	return h.updateSelection(c, func([]string, string) []string { return nil })
}

func (h *EditionHandler) updateSelection(c *fiber.Ctx, update func([]string, string) []string) error {
	bbid := c.Params("bbid")
	if _, err := h.load(c, nil); err != nil {
		return err
	}
	selection, err := h.sessions.Selection(c)
	if err != nil {
		return err
	}
	if err := h.sessions.SetSelection(c, update(selection, bbid)); err != nil {
		return err
	}
	return c.Redirect("/edition/" + bbid)
}

// Merge handles GET /edition/:bbid/merge. Every selected edition is loaded
// and the fields they disagree on are reported.
func (h *EditionHandler) Merge(c *fiber.Ctx) error {
	selection, err := h.sessions.Selection(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	opts := engine.FindOptions{Populate: []string{"publication", "publisher"}, Session: auth.GetSession(c)}
	editions := make([]engine.Entity, len(selection))
	g, gctx := errgroup.WithContext(ctx)
	for i, bbid := range selection {
		i, bbid := i, bbid
		g.Go(func() error {
			ed, err := h.engine.FindOne(gctx, h.edition, bbid, opts)
			if err != nil {
				return err
			}
			editions[i] = ed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"editions": editions,
			"fields":   changeset.ConflictingFields(editions),
		},
	})
}

func (h *EditionHandler) load(c *fiber.Ctx, populate []string) (engine.Entity, error) {
	bbid := c.Params("bbid")
	edition, err := h.engine.FindOne(c.UserContext(), h.edition, bbid, engine.FindOptions{
		Populate: populate,
		Session:  auth.GetSession(c),
	})
	if err != nil {
		return nil, err
	}
	if edition == nil {
		return nil, engine.NotFoundError(h.edition.Name(), bbid)
	}
	return edition, nil
}

func (h *EditionHandler) title(edition engine.Entity) string {
	title, err := h.edition.Title(edition)
	if err != nil {
		h.log.Warn().Err(err).Msg("edition title evaluation failed")
		return h.edition.Name()
	}
	return title
}

func parseForm(c *fiber.Ctx) (*changeset.EditionForm, error) {
	var form changeset.EditionForm
	if err := c.BodyParser(&form); err != nil {
		return nil, engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if err := form.Validate(); err != nil {
		return nil, validationError(err)
	}
	return &form, nil
}

// userID reads the author id embedded in a revision.
func userID(rev engine.Entity) string {
	user, _ := rev["user"].(map[string]any)
	switch id := user["user_id"].(type) {
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case string:
		return id
	}
	return ""
}
