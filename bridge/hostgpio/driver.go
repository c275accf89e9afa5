//go:build linux

package hostgpio

import "gbprinter/gbp"

// Driver polls SCK/SIN in a tight loop and feeds every observed level
// change into a gbp.Engine via OnEdge, driving SOUT with the result.
// Unlike the RP2040 bridge's PIO-sampled edges, every transition here
// is caught by racing a software poll loop against the host's
// scheduler, so it trades the RP2040 path's hardware-timed precision
// for running with no extra board at all. Fine for the printer's
// relatively slow cable clock; not a fit for a direct Game Boy Color
// link at its fastest internal-clock setting.
type Driver struct {
	lines  *Lines
	engine *gbp.Engine
}

// NewDriver pairs an opened set of Lines with the engine they drive.
func NewDriver(lines *Lines, engine *gbp.Engine) *Driver {
	return &Driver{lines: lines, engine: engine}
}

// Run polls until stop is closed, calling OnEdge on every SCK level
// change it observes and writing the returned bit to SOUT.
func (d *Driver) Run(stop <-chan struct{}) error {
	lastSCK, err := d.lines.ReadSCK()
	if err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		sck, err := d.lines.ReadSCK()
		if err != nil {
			return err
		}
		if sck == lastSCK {
			continue
		}
		lastSCK = sck

		sin, err := d.lines.ReadSIN()
		if err != nil {
			return err
		}

		out := d.engine.OnEdge(sck, sin)
		if err := d.lines.WriteSOUT(out); err != nil {
			return err
		}
	}
}
