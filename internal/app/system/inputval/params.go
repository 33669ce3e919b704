// internal/app/system/inputval/params.go
package inputval

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/dalemusser/lingohub/internal/app/system/auth"
	"github.com/dalemusser/lingohub/internal/app/system/normalize"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal returns the signed-in user's id.
func Principal(r *http.Request) (primitive.ObjectID, error) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, apperr.Unauthorized("Unauthorized - no session")
	}
	id, err := u.ObjectID()
	if err != nil {
		return primitive.NilObjectID, apperr.Unauthorized("Unauthorized - invalid session")
	}
	return id, nil
}

// PathID parses the chi URL parameter key as an ObjectID. what names the
// parameter in the error message.
func PathID(r *http.Request, key, what string) (primitive.ObjectID, error) {
	id, err := normalize.ObjectID(chi.URLParam(r, key))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation(apperr.CodeInvalidID, "Invalid "+what+" id")
	}
	return id, nil
}

// ObjectIDs parses body ids; the whole list fails on the first bad one.
func ObjectIDs(hexes []string, what string) ([]primitive.ObjectID, error) {
	ids, err := normalize.ObjectIDs(hexes)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidID, "Invalid "+what+" id")
	}
	return ids, nil
}

// Page reads the 1-based ?page= parameter. Missing or unusable values
// mean page 1.
func Page(r *http.Request) int {
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		return p
	}
	return 1
}
