package apply

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

// DefaultWindow is how long signals are captured after a commit settles.
// The duration is a heuristic, not a correctness guarantee: signals emitted
// after the window closes are lost, and unrelated diagnostics that happen to
// match the filter are false positives. Tune it per deployment.
const DefaultWindow = time.Second

// defaultMarkers are the substrings that distinguish rule-structure
// validation failures from unrelated diagnostics on the shared channel.
var defaultMarkers = []string{
	"rule element",
	"RuleElement",
	"rule validation",
	"invalid rule",
	"malformed rule",
}

// Monitor captures validation signals from a ValidationChannel during a
// bounded window.
type Monitor struct {
	channel ValidationChannel
	markers []string
	logger  *zap.Logger
}

// NewMonitor builds a monitor. Empty markers fall back to the defaults.
func NewMonitor(channel ValidationChannel, markers []string, logger *zap.Logger) *Monitor {
	if len(markers) == 0 {
		markers = defaultMarkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{channel: channel, markers: markers, logger: logger}
}

// Observation is one installed interception of the diagnostic channel.
type Observation struct {
	mu      sync.Mutex
	signals []rules.ValidationSignal
	cancel  func()
	done    chan struct{}
}

// Begin installs the interception and starts collecting matching messages.
// The caller must finish with End, which uninstalls it.
func (m *Monitor) Begin(ctx context.Context) *Observation {
	token := uuid.NewString()
	ch, cancel := m.channel.Subscribe(token)
	obs := &Observation{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(obs.done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !m.matches(msg) {
					continue
				}
				sig := rules.ValidationSignal{Message: msg, CapturedAt: time.Now().UTC()}
				obs.mu.Lock()
				obs.signals = append(obs.signals, sig)
				obs.mu.Unlock()
				m.logger.Debug("validation signal captured", zap.String("message", msg))
			}
		}
	}()
	return obs
}

// End waits out the window, uninstalls the interception and returns whatever
// was captured. Returns early if ctx is cancelled; window <= 0 skips the wait
// and uninstalls immediately.
func (m *Monitor) End(ctx context.Context, obs *Observation, window time.Duration) []rules.ValidationSignal {
	if window > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(window):
		}
	}
	obs.cancel()
	<-obs.done

	obs.mu.Lock()
	defer obs.mu.Unlock()
	out := make([]rules.ValidationSignal, len(obs.signals))
	copy(out, obs.signals)
	return out
}

func (m *Monitor) matches(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range m.markers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
