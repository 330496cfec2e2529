package counter

import (
	"fmt"
	"io"
)

//WriteReport prints the final incoming and outgoing tallies, one line per class
func WriteReport(w io.Writer, counts Counts) error {
	if _, err := fmt.Fprintln(w, "Final Counts:"); err != nil {
		return err
	}

	sections := []struct {
		title  string
		counts map[VehicleClass]int
	}{
		{"Incoming Vehicles:", counts.Incoming},
		{"Outgoing Vehicles:", counts.Outgoing},
	}

	for _, s := range sections {
		if _, err := fmt.Fprintln(w, s.title); err != nil {
			return err
		}
		for _, class := range Classes() {
			if _, err := fmt.Fprintf(w, "%s: %d\n", class, s.counts[class]); err != nil {
				return err
			}
		}
	}

	return nil
}
