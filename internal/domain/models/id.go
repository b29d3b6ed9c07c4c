package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
)

// ParseID parses a hex object id received from a client. field names the input in the error.
func ParseID(field, hex string) (primitive.ObjectID, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return primitive.NilObjectID, apperr.Validation("%s is required", field)
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("%s %q is not a valid id", field, hex)
	}
	return id, nil
}
