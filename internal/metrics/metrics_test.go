package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSave(t *testing.T) {
	before := testutil.ToFloat64(saves.WithLabelValues("silent", "ok"))
	RecordSave("silent", "ok", 0.01)
	assert.Equal(t, before+1, testutil.ToFloat64(saves.WithLabelValues("silent", "ok")))
}

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(transitions.WithLabelValues("lock", "ok"))
	RecordTransition("lock", "ok")
	RecordTransition("lock", "ok")
	assert.Equal(t, before+2, testutil.ToFloat64(transitions.WithLabelValues("lock", "ok")))
}

func TestRecordSignalAndConfirmation(t *testing.T) {
	beforeSignals := testutil.ToFloat64(signals.WithLabelValues("visibility"))
	beforeConfirmations := testutil.ToFloat64(confirmations.WithLabelValues("visibility"))
	RecordConfirmation("visibility")
	RecordConfirmation("visibility")
	RecordSignal("visibility")
	assert.Equal(t, beforeConfirmations+2, testutil.ToFloat64(confirmations.WithLabelValues("visibility")))
	assert.Equal(t, beforeSignals+1, testutil.ToFloat64(signals.WithLabelValues("visibility")))
}

func TestRecordAudit(t *testing.T) {
	before := testutil.ToFloat64(audits.WithLabelValues("client", "absent"))
	RecordAudit("client", "absent")
	assert.Equal(t, before+1, testutil.ToFloat64(audits.WithLabelValues("client", "absent")))
}
