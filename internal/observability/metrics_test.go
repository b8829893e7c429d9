package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordDelivery("role_update", false)
	m.RecordDelivery("role_update", false)
	m.RecordDelivery("role_update", true)
	m.RecordForward("kyc_status", false)

	snap := m.Sync()
	assert.Equal(t, int64(2), snap.Deliveries["role_update"])
	assert.Equal(t, int64(1), snap.Failures["role_update"])
	assert.Equal(t, int64(1), snap.Forwards["kyc_status|false"])

	snap.Deliveries["role_update"] = 99
	assert.Equal(t, int64(2), m.Sync().Deliveries["role_update"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordDelivery("admin_action", true)
	m.RecordForward("admin_action", true)
	assert.Empty(t, m.Sync().Deliveries)
}
