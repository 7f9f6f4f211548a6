package features

import (
	"fmt"

	"github.com/sells-group/viability-cli/internal/model"
)

// bandOrder breaks ties when picking the dominant band.
var bandOrder = []string{Band1, Band2to3, Band4}

// SuggestedBand maps a ticket bucket to the band it would compete in.
func SuggestedBand(b model.TicketBucket) (string, bool) {
	switch b {
	case model.TicketLow:
		return Band1, true
	case model.TicketMid:
		return Band2to3, true
	case model.TicketHigh:
		return Band4, true
	default:
		return "", false
	}
}

// DetectPriceGap looks for a price band the ticket could occupy that the
// dominant competition leaves open. A gap needs a dominant band with at
// least 60% share, a suggested band, and either a different suggested band
// or a suggested band holding at most 15%.
func DetectPriceGap(dist map[string]int, bucket model.TicketBucket) model.PriceGap {
	bands := map[string]int{
		Band1:    dist["1"],
		Band2to3: dist["2"] + dist["3"],
		Band4:    dist["4"],
	}
	total := bands[Band1] + bands[Band2to3] + bands[Band4]
	if total == 0 {
		return model.PriceGap{IsGap: false, Detail: detailNoSignal}
	}

	dominant := bandOrder[0]
	for _, b := range bandOrder[1:] {
		if bands[b] > bands[dominant] {
			dominant = b
		}
	}
	dominantShare := float64(bands[dominant]) / float64(total)

	suggested, ok := SuggestedBand(bucket)
	isGap := false
	if ok && dominantShare >= dominantShareMin {
		suggestedShare := float64(bands[suggested]) / float64(total)
		isGap = suggested != dominant || suggestedShare <= suggestedShareMax
	}

	if !isGap {
		return model.PriceGap{IsGap: false, Suggested: suggested, Dominant: dominant, Detail: detailNoGap}
	}
	return model.PriceGap{
		IsGap:     true,
		Suggested: suggested,
		Dominant:  dominant,
		Detail:    fmt.Sprintf(detailGap, dominant, suggested),
	}
}
