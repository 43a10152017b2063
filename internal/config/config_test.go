package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperAppliesMonitorDefaults(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.True(t, cfg.Monitor.Enabled)
	require.Equal(t, 5*time.Minute, cfg.Monitor.Interval)
	require.Equal(t, time.Minute, cfg.Monitor.TickTimeout)
	require.False(t, cfg.Monitor.RefreshOnSkip)
	require.Equal(t, int64(100), cfg.Monitor.LastHourMax)
	require.Equal(t, int64(500), cfg.Monitor.Last24HoursMax)
	require.Equal(t, []string{"CREATE", "UPDATE", "DELETE", "FAILED_LOGIN"}, cfg.Monitor.QualifyingActions)
	require.Equal(t, []string{"admin"}, cfg.Monitor.AdminRoles)
	require.Empty(t, cfg.Monitor.MentorEmails)
	require.Equal(t, 30*time.Second, cfg.FrequencyCacheTTL)
}

func TestFromViperParsesMentorGrantList(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("monitor.mentor_emails", " lead@mentora.io , ,ops@mentora.io")
	v.Set("monitor.last_hour.max", 3)

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, []string{"lead@mentora.io", "ops@mentora.io"}, cfg.Monitor.MentorEmails)
	require.Equal(t, int64(3), cfg.Monitor.LastHourMax)
}

func TestFromViperRejectsInvalidValues(t *testing.T) {
	v := viper.New()
	_, err := fromViper(v)
	require.Error(t, err)

	v = viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("monitor.interval", "soon")
	_, err = fromViper(v)
	require.Error(t, err)

	v = viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("monitor.interval", "100ms")
	_, err = fromViper(v)
	require.Error(t, err)
}
