package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"bookbrainz-site/internal/engine"
	"bookbrainz-site/internal/ws"
)

// TokenIssuer is the part of the web service client used to sign in.
type TokenIssuer interface {
	Post(ctx context.Context, path string, body any, opts ws.RequestOptions) (map[string]any, error)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthHandler handles sign in and sign out.
type AuthHandler struct {
	ws        TokenIssuer
	sessions  *Sessions
	jwtSecret string
	clientID  string
	validate  *validator.Validate
	log       zerolog.Logger
}

func NewAuthHandler(issuer TokenIssuer, sessions *Sessions, jwtSecret, clientID string, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		ws:        issuer,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		clientID:  clientID,
		validate:  validator.New(),
		log:       log,
	}
}

// Login handles POST /auth/login. The credentials are exchanged for an
// access token at the web service token endpoint.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if err := h.validate.Struct(&body); err != nil {
		return engine.UnauthorizedError("Username and password are required")
	}

	resp, err := h.ws.Post(c.UserContext(), "/oauth/token", map[string]any{
		"grant_type": "password",
		"username":   body.Username,
		"password":   body.Password,
		"client_id":  h.clientID,
	}, ws.RequestOptions{})
	if err != nil {
		var statusErr *ws.StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusBadRequest || statusErr.StatusCode == http.StatusUnauthorized) {
			return engine.UnauthorizedError("Invalid username or password")
		}
		return err
	}

	token, _ := resp["access_token"].(string)
	if token == "" {
		return engine.NewAppError("UPSTREAM_PAYLOAD", 502, "Token response carried no access token")
	}

	userID, err := subject(token, h.jwtSecret)
	if err != nil {
		h.log.Warn().Err(err).Msg("token from web service failed verification")
		return engine.UnauthorizedError("Invalid or expired token")
	}

	sess, err := h.sessions.Start(c, token, userID)
	if err != nil {
		return err
	}
	h.log.Info().Str("user_id", userID).Msg("signed in")

	return c.JSON(fiber.Map{"data": sess})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Destroy(c); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func RegisterAuthRoutes(app *fiber.App, h *AuthHandler) {
	auth := app.Group("/auth")
	auth.Post("/login", h.Login)
	auth.Post("/logout", h.Logout)
}
