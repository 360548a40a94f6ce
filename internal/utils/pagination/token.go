package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// Cursor marks the last row of a page ordered by (SortDate DESC, CreatedAt DESC, ID DESC).
type Cursor struct {
	SortDate  time.Time
	CreatedAt time.Time
	ID        string
}

// EncodeToken creates an opaque, base64 encoded token for the next page.
func EncodeToken(c Cursor) string {
	tokenStr := fmt.Sprintf("%s|%s|%s", c.SortDate.Format(timeFormat), c.CreatedAt.Format(timeFormat), c.ID)
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token produced by EncodeToken. Errors match apperrors.ErrValidation
// because a bad token is always caller input.
func DecodeToken(token string) (Cursor, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, apperrors.NewValidationError("invalid pagination token format (base64 decode): %v", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 3)
	if len(parts) != 3 || parts[2] == "" {
		return Cursor{}, apperrors.NewValidationError("invalid pagination token format (split)")
	}

	sortDate, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, apperrors.NewValidationError("invalid pagination token format (sort date parse): %v", err)
	}
	createdAt, err := time.Parse(timeFormat, parts[1])
	if err != nil {
		return Cursor{}, apperrors.NewValidationError("invalid pagination token format (created_at parse): %v", err)
	}

	return Cursor{SortDate: sortDate, CreatedAt: createdAt, ID: parts[2]}, nil
}

// NextToken returns the token for the page after rows when the query fetched
// limit+1 rows, and nil on the last page.
func NextToken(fetched, limit int, last Cursor) *string {
	if fetched <= limit {
		return nil
	}
	token := EncodeToken(last)
	return &token
}
