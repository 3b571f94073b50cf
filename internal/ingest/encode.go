package ingest

import (
	"fmt"
	"strings"

	"github.com/glycostack/glyco-engine/internal/models"
)

// canonicalLayout is the timestamp encoding of the canonical text format.
// Second precision; sub-second detail does not survive a round trip.
const canonicalLayout = "2006-01-02 15:04:05"

// EncodeCanonical serializes a series to the canonical delimited text
// encoding. Re-parsing the output yields a sample-for-sample identical
// series. Outlier flags are not encoded; flagging is recomputed on parse.
func EncodeCanonical(series models.GlucoseSeries) string {
	var b strings.Builder
	b.WriteString("timestamp,glucose\n")
	for i := 0; i < series.Len(); i++ {
		s := series.At(i)
		fmt.Fprintf(&b, "%s,%g\n", s.Timestamp.Format(canonicalLayout), s.Value)
	}
	return b.String()
}
