package chrono

import (
	"testing"
	"time"

	"rrcpermits-backend/internal/components/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardImplLocation(t *testing.T) {
	impl, err := NewStandardImpl()
	require.NoError(t, err)
	require.Equal(t, "America/Chicago", impl.Location().String())
	require.Equal(t, impl.Location(), impl.Now().Location())
}

func TestStandardCronRejectsBadSpec(t *testing.T) {
	cronner := NewStandardCron(FixedImpl{At: time.Now().UTC()}, telemetry.NewRecorderAPI())
	defer cronner.Stop()

	require.Error(t, cronner.Cron("not a cron spec", func() {}))
	require.NoError(t, cronner.Cron("0 6 * * *", func() {}))
}

func TestCronLoggerReportsErrors(t *testing.T) {
	rec := telemetry.NewRecorderAPI()
	logger := cronLogger{tel: rec}
	logger.Error(assert.AnError, "panic", "job", "daily")

	reports := rec.Find(telemetry.SEVERITY_BROKEN, "cron")
	require.Len(t, reports, 1)
	require.Len(t, reports[0].Params, 2)
	require.Equal(t, "job: daily", reports[0].Params[1])
}
