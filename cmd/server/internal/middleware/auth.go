package middleware

import (
	"context"
	"crypto/subtle"
	"os"
	"reflect"

	"github.com/alexedwards/argon2id"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/classgrade/autograder/internal/config"
	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/response"
)

// Used when doing a fake compare in the error case of BasicAuthValidator
var defaultHashForError string

const name string = "github.com/classgrade/autograder/server/middleware"

var tracer = otel.Tracer(name)

// Context key the authenticated *config.APIKey is stored under
const AuthKey = "auth"

// Generate a hash
func init() {
	var err error

	defaultHashForError, err = argon2id.CreateHash(
		"bnZSraUCS+nZh3MI8F3iiXbKFBcAyJhvAB6u/GBJzhC00ZPAQlyYVpQ+aryw7QvE2ZI=",
		argon2id.DefaultParams,
	)
	if err != nil {
		logger.Logger.Error("error creating default hash", "error", err)
		os.Exit(1)
	}
}

// Does a fake hash and compare for a hard coded password. Used when BasicAuthValidator hits an unknown key id.
func fakePasswordHash(ctx context.Context) {
	_, span := tracer.Start(ctx, "fakePasswordHash")
	defer span.End()

	_, err := argon2id.ComparePasswordAndHash("i am a very real password", defaultHashForError)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compare fake password with default hash for error")
		return
	}

	span.AddEvent("compared fake password and default hash for error")
}

// API keys from config, looked up by id
type Handler struct {
	keys map[string]*config.APIKey
}

func NewHandler(auth *config.AuthConfig) *Handler {
	h := &Handler{keys: make(map[string]*config.APIKey)}
	if auth == nil {
		return h
	}

	for i := range auth.APIKeys {
		key := &auth.APIKeys[i]
		h.keys[key.ID] = key
	}

	return h
}

func (h *Handler) lookup(id string) (*config.APIKey, bool) {
	// walk every key so timing does not reveal which ids exist
	var found *config.APIKey
	for keyID, key := range h.keys {
		if subtle.ConstantTimeCompare([]byte(keyID), []byte(id)) == 1 {
			found = key
		}
	}

	return found, found != nil
}

// Validates a basic auth against the configured API keys
func (h *Handler) BasicAuthValidator(id, token string, c echo.Context) (bool, error) {
	ctx, span := tracer.Start(c.Request().Context(), "BasicAuthValidator")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	span.AddEvent("getting api key by id")
	key, ok := h.lookup(id)
	if !ok {
		// Waste time for unknown ids
		fakePasswordHash(ctx)
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "api key not found")
		return false, nil
	}

	span.SetAttributes(
		attribute.String("note", key.Note),
		attribute.Bool("active", key.Active != nil && *key.Active),
	)

	span.AddEvent("checking hash")
	comparison, params, err := argon2id.CheckHash(token, key.Token)
	// All expensive ops have been performed that may result in a forbidden
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check token")
		return false, response.InternalServerError
	}

	if key.Active == nil || !*key.Active {
		span.AddEvent("api key is not active")
		return false, nil
	}

	if !reflect.DeepEqual(params, argon2id.DefaultParams) {
		// keys live in config so they can't be rehashed in place
		logger.Logger.WarnContext(ctx, "api key hash uses outdated argon2id params", "id", key.ID)
	}

	if comparison {
		span.AddEvent("successful login attempt")
		c.Set(AuthKey, key)
	} else {
		span.AddEvent("failed login attempt")
	}

	return comparison, nil
}
