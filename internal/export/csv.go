package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/vidstats/go-stats-index/internal/aggregate"
)

// WriteCSV writes the aggregation as flat rows:
//
//	label,kind,key,count
//
// where key is the scalar value for value rows and "dx:dy" for vector rows.
func WriteCSV(w io.Writer, data []aggregate.CollectedData) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"label", "kind", "key", "count"}); err != nil {
		return err
	}

	for _, cd := range data {
		switch cd.Kind {
		case aggregate.KindValue:
			for _, vc := range cd.Values {
				row := []string{
					cd.Label,
					cd.Kind.String(),
					fmt.Sprintf("%d", vc.Value),
					fmt.Sprintf("%d", vc.Count),
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		case aggregate.KindVector:
			for _, pc := range cd.Points {
				row := []string{
					cd.Label,
					cd.Kind.String(),
					fmt.Sprintf("%d:%d", pc.Point.X, pc.Point.Y),
					fmt.Sprintf("%d", pc.Count),
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
