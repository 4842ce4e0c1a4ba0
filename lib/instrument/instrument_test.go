package instrument

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	consumed := testutil.ToFloat64(packagesConsumed)
	relayed := testutil.ToFloat64(packagesRelayed)
	fees := testutil.ToFloat64(relayFees)
	delivered := testutil.ToFloat64(packagesDelivered.WithLabelValues("Neighborhood"))
	dropped := testutil.ToFloat64(packagesDropped.WithLabelValues("decryption"))

	PackageConsumed()
	PackageRelayed(150)
	PackageRelayed(50)
	PackageDelivered("Neighborhood")
	PackageDropped("decryption")

	assert.Equal(t, consumed+1, testutil.ToFloat64(packagesConsumed))
	assert.Equal(t, relayed+2, testutil.ToFloat64(packagesRelayed))
	assert.Equal(t, fees+200, testutil.ToFloat64(relayFees))
	assert.Equal(t, delivered+1, testutil.ToFloat64(packagesDelivered.WithLabelValues("Neighborhood")))
	assert.Equal(t, dropped+1, testutil.ToFloat64(packagesDropped.WithLabelValues("decryption")))
}

func TestHandlerExposesCounters(t *testing.T) {
	PackageConsumed()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hopper_consumed_packages_total")
}
