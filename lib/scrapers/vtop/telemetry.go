package vtop

import (
	"vtop-backend/lib/restyutil"
	"vtop-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("vtop.lib.scrapers.vtop")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput makes clients created afterwards dump their
// http exchanges into out when debug logging is enabled.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
