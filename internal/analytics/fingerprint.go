package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/energyinsight/energyinsight/pkg/models"
)

// Fingerprint derives a stable digest over the semantic content of a dataset,
// scoped to the uploading user. Row order and source formatting do not affect
// it; any change to a (date, time, kwh, cost) tuple or to the user does.
func Fingerprint(userID string, readings []models.Reading) string {
	lines := make([]string, 0, len(readings))
	for _, r := range readings {
		lines = append(lines, fmt.Sprintf("%s|%s|%.6f|%.6f",
			r.DateString(), r.TimeString(), r.KWh, r.Cost))
	}
	sort.Strings(lines)

	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}
