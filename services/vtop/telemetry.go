package vtop

import (
	"vtop-backend/lib/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tracer = telemetry.Tracer("vtop.services.vtop")

const (
	outcomeOk      = "ok"
	outcomeFailed  = "failed"
	outcomeBlanked = "blanked"
)

var scrapePhaseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vtop_scrape_phase_total",
	Help: "Outcomes of the phases of a scrape, semester phases count once per semester.",
}, []string{"phase", "outcome"})

var loginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vtop_login_total",
	Help: "Outcomes of login attempts against the portal.",
}, []string{"outcome"})
