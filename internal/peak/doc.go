// Package peak finds oscillation peaks in a sampled signal.
//
// A [Detector] compares every new sample against a trailing lookback window of earlier
// samples. A sample above the whole window is a maximum, one below it is a minimum. The
// detector alternates between a HIGH and a LOW phase; a maximum is confirmed as a peak once a
// minimum ends its HIGH phase.
//
//	d := peak.NewDetector(10, dynamo.SystemClock{})
//	for _, v := range readings {
//	    if err := d.Add(v); err != nil {
//	        return err
//	    }
//	}
//	last3 := d.Recent(3)
//
// Peaks past the capacity are counted but not stored.
package peak
