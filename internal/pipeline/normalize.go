package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/viability-cli/internal/model"
)

// NormalizeAddress applies NFC normalization, trims and collapses runs of
// whitespace to a single space.
func NormalizeAddress(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Normalize derives the canonical input of a validated request.
func Normalize(req model.AnalyzeRequest) model.NormalizedInput {
	country := strings.ToUpper(strings.TrimSpace(req.CountryBias))
	if country == "" {
		country = model.DefaultCountryBias
	}
	bucket, _ := req.AvgTicket.Bucket()
	return model.NormalizedInput{
		RawAddress:        req.Address,
		NormalizedAddress: NormalizeAddress(req.Address),
		Category:          req.BusinessCategory,
		AvgTicket:         req.AvgTicket,
		TicketBucket:      bucket,
		CountryBias:       country,
		PlaceID:           strings.TrimSpace(req.PlaceID),
	}
}

// Fingerprint is the cache key of an input: the hex SHA-256 of the
// lower-cased address, place id, category, ticket bucket and country joined
// by "|".
func Fingerprint(in model.NormalizedInput) string {
	payload := strings.Join([]string{
		strings.ToLower(in.NormalizedAddress),
		in.PlaceID,
		string(in.Category),
		string(in.TicketBucket),
		in.CountryBias,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// NewRequestID returns req_<unix millis in base 36>_<8 chars of a UUIDv4>.
func NewRequestID(now time.Time) string {
	return fmt.Sprintf("req_%s_%s", strconv.FormatInt(now.UnixMilli(), 36), uuid.NewString()[:8])
}
